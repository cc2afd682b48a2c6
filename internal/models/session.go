package models

import "fmt"

// WordResult is the outcome of one word in a game
type WordResult struct {
	WordID    string `json:"wordId" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Attempts  int    `json:"attempts" validate:"gte=0"`
}

// GameSession is a completed game, produced by gameplay and consumed once by reconciliation
type GameSession struct {
	Difficulty          Difficulty   `json:"difficulty" validate:"required,difficulty"`
	Words               []Word       `json:"words" validate:"dive"`
	Results             []WordResult `json:"results" validate:"dive"`
	TotalSparkiesEarned int          `json:"totalSparkiesEarned" validate:"gte=0"`
	Streak              int          `json:"streak" validate:"gte=0"`
	TimeSpent           int64        `json:"timeSpent,omitempty" validate:"gte=0"`
}

// Validate checks field constraints and that every result refers to a word of the session
func (s *GameSession) Validate() error {
	if err := validateStruct(s); err != nil {
		return err
	}
	if len(s.Results) > len(s.Words) {
		return ValidationError{
			Field:   "results",
			Message: fmt.Sprintf("%d results for %d words", len(s.Results), len(s.Words)),
		}
	}
	ids := make(map[string]struct{}, len(s.Words))
	for _, w := range s.Words {
		ids[w.ID] = struct{}{}
	}
	for _, r := range s.Results {
		if _, ok := ids[r.WordID]; !ok {
			return ValidationError{Field: "results", Message: fmt.Sprintf("word %q is not part of the session", r.WordID)}
		}
	}
	return nil
}

// CorrectCount returns the number of correctly spelled words
func (s *GameSession) CorrectCount() int {
	n := 0
	for _, r := range s.Results {
		if r.IsCorrect {
			n++
		}
	}
	return n
}

// WrongWordIDs returns the ids of misspelled words in result order
func (s *GameSession) WrongWordIDs() []string {
	var ids []string
	for _, r := range s.Results {
		if !r.IsCorrect {
			ids = append(ids, r.WordID)
		}
	}
	return ids
}

// WordIDs returns the ids of every word served in the session
func (s *GameSession) WordIDs() []string {
	ids := make([]string, 0, len(s.Words))
	for _, w := range s.Words {
		ids = append(ids, w.ID)
	}
	return ids
}

// Mastery is the rounded percentage of correct words, 0 to 100
func (s *GameSession) Mastery() int {
	total := len(s.Words)
	if total < 1 {
		total = 1
	}
	return (s.CorrectCount()*200 + total) / (2 * total)
}
