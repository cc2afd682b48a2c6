package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"wordhero/internal/security"
	"wordhero/internal/service"
)

// SyncEngine is the part of the sync engine exposed over HTTP
type SyncEngine interface {
	Status(ctx context.Context) (service.SyncStatus, error)
	DrainQueue(ctx context.Context, userID string) (int, error)
}

// StorageState reports whether the local cache fell back to memory
type StorageState interface {
	Degraded() bool
}

// LeaderboardSource ranks the students of the remote store
type LeaderboardSource func(ctx context.Context) ([]service.StudentRank, error)

// StatusHandler serves the agent's health and sync endpoints
type StatusHandler struct {
	engine      SyncEngine
	storage     StorageState
	leaderboard LeaderboardSource
	userID      string
	limiter     *security.RateLimiter
}

// NewStatusHandler creates a new status handler. leaderboard may be nil.
func NewStatusHandler(engine SyncEngine, storage StorageState, leaderboard LeaderboardSource, userID string, limiter *security.RateLimiter) *StatusHandler {
	return &StatusHandler{
		engine:      engine,
		storage:     storage,
		leaderboard: leaderboard,
		userID:      userID,
		limiter:     limiter,
	}
}

type statusResponse struct {
	UserID       string     `json:"userId"`
	Online       bool       `json:"online"`
	Pending      int        `json:"pending"`
	Degraded     bool       `json:"storageDegraded"`
	LastDrainAt  *time.Time `json:"lastDrainAt,omitempty"`
	LastSynced   int        `json:"lastSynced"`
	LastFailures int        `json:"lastFailures"`
}

// Health reports that the agent is running
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports connectivity, queue length and storage state
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Status(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Local cache unavailable", "Failed to read sync status", err)
		return
	}

	resp := statusResponse{
		UserID:       h.userID,
		Online:       st.Online,
		Pending:      st.Pending,
		Degraded:     h.storage.Degraded(),
		LastSynced:   st.LastSynced,
		LastFailures: st.LastFailures,
	}
	if !st.LastDrainAt.IsZero() {
		resp.LastDrainAt = &st.LastDrainAt
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Drain replays the agent user's queued sessions now
func (h *StatusHandler) Drain(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(h.userID) {
		respondWithError(w, http.StatusTooManyRequests, "Too many drain requests, try again later", "", nil)
		return
	}

	if id, ok := GetIdentityFromContext(r.Context()); ok {
		log.Printf("[sync] manual drain for %s requested by %s", h.userID, id.UserID)
	}

	n, err := h.engine.DrainQueue(r.Context(), h.userID)
	if errors.Is(err, service.ErrDrainInProgress) {
		respondWithError(w, http.StatusConflict, "A drain is already running", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Drain failed", "", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"synced": n})
}

// Leaderboard returns the current ranking
func (h *StatusHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if h.leaderboard == nil {
		respondWithError(w, http.StatusNotFound, "Leaderboard not available", "", nil)
		return
	}
	rows, err := h.leaderboard(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Leaderboard unavailable while offline", "Failed to load leaderboard", err)
		return
	}
	respondWithJSON(w, http.StatusOK, rows)
}

// Routes registers the endpoints on mux
func (h *StatusHandler) Routes(mux *http.ServeMux, m *Middleware) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /sync/status", h.Status)
	mux.HandleFunc("POST /sync/drain", m.RequireToken(h.Drain))
	mux.HandleFunc("GET /leaderboard", h.Leaderboard)
}
