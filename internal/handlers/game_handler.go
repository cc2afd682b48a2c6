package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"wordhero/internal/models"
	"wordhero/internal/progress"
	"wordhero/internal/repository"
	"wordhero/internal/service"
)

const (
	defaultWordCount = 10
	maxWordCount     = 50
)

// WordSource loads the word bank visible to a grade and section
type WordSource interface {
	LoadWords(ctx context.Context, gradeLevel, section string) (*service.WordList, error)
}

// WordPicker chooses the words of a game
type WordPicker interface {
	Select(ctx context.Context, userID string, pool []models.Word, count int, difficulty *models.Difficulty) (*service.Selection, error)
}

// SessionSubmitter records finished games
type SessionSubmitter interface {
	SubmitSession(ctx context.Context, session *models.GameSession, userID string) (*service.SubmitResult, error)
}

// ProfileLoader loads the signed-in account
type ProfileLoader interface {
	Load(ctx context.Context, userID string) (*service.Profile, error)
}

// GameHandler serves word selection and session submission for the agent's user
type GameHandler struct {
	words     WordSource
	picker    WordPicker
	submitter SessionSubmitter
	profiles  ProfileLoader
	userID    string
}

// NewGameHandler creates a new game handler
func NewGameHandler(words WordSource, picker WordPicker, submitter SessionSubmitter, profiles ProfileLoader, userID string) *GameHandler {
	return &GameHandler{
		words:     words,
		picker:    picker,
		submitter: submitter,
		profiles:  profiles,
		userID:    userID,
	}
}

type wordsResponse struct {
	Words        []models.Word `json:"words"`
	Offline      bool          `json:"offline"`
	PoolWasReset bool          `json:"poolWasReset"`
}

type submitResponse struct {
	Queued    bool              `json:"queued"`
	PendingID int64             `json:"pendingId,omitempty"`
	Summary   *progress.Summary `json:"summary,omitempty"`
	Awards    []progress.Award  `json:"awards,omitempty"`
}

// earnedAwards resolves the badges and achievements of a summary for display
func earnedAwards(s progress.Summary) []progress.Award {
	var awards []progress.Award
	for _, id := range append(append([]string{}, s.NewBadges...), s.NewAchievements...) {
		if a, ok := progress.LookupAward(id); ok {
			awards = append(awards, a)
		}
	}
	return awards
}

// Words picks the words of a new game: GET /words?difficulty=EASY&count=10
func (h *GameHandler) Words(w http.ResponseWriter, r *http.Request) {
	var difficulty *models.Difficulty
	if raw := r.URL.Query().Get("difficulty"); raw != "" {
		d, err := models.ParseDifficulty(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
			return
		}
		difficulty = &d
	}

	count := defaultWordCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxWordCount {
			respondWithError(w, http.StatusBadRequest, "count must be between 1 and 50", "", nil)
			return
		}
		count = n
	}

	profile, err := h.profiles.Load(r.Context(), h.userID)
	if err != nil {
		if repository.IsNotFound(err) {
			respondWithError(w, http.StatusNotFound, "Account not found", "", err)
			return
		}
		respondWithError(w, http.StatusServiceUnavailable, "Account unavailable", "Failed to load account", err)
		return
	}
	grade, section := profile.StudentScope()

	list, err := h.words.LoadWords(r.Context(), grade, section)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Word list unavailable", "Failed to load words", err)
		return
	}

	sel, err := h.picker.Select(r.Context(), h.userID, list.Words, count, difficulty)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to pick words", "", err)
		return
	}

	respondWithJSON(w, http.StatusOK, wordsResponse{
		Words:        sel.Words,
		Offline:      list.Offline,
		PoolWasReset: sel.PoolWasReset,
	})
}

// SubmitSession records a finished game: POST /sessions
func (h *GameHandler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	if id, ok := GetIdentityFromContext(r.Context()); !ok || !id.IsStudent() {
		respondWithError(w, http.StatusForbidden, "Only students can record progress", "", nil)
		return
	}

	var session models.GameSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid session body", "", nil)
		return
	}

	res, err := h.submitter.SubmitSession(r.Context(), &session, h.userID)
	switch {
	case errors.Is(err, models.ErrNotEligible):
		respondWithError(w, http.StatusForbidden, "Only students can record progress", "", nil)
		return
	case models.IsValidationError(err):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, "Failed to record session", "", err)
		return
	}

	if res.Queued {
		respondWithJSON(w, http.StatusAccepted, submitResponse{Queued: true, PendingID: res.PendingID})
		return
	}
	respondWithJSON(w, http.StatusOK, submitResponse{
		Summary: &res.Result.Summary,
		Awards:  earnedAwards(res.Result.Summary),
	})
}

// Routes registers the endpoints on mux
func (h *GameHandler) Routes(mux *http.ServeMux, m *Middleware) {
	mux.HandleFunc("GET /words", h.Words)
	mux.HandleFunc("POST /sessions", m.RequireToken(h.SubmitSession))
}
