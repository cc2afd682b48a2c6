package models

// PendingResult is a game session waiting to be applied to the remote store
type PendingResult struct {
	ID        int64       `json:"id"`
	UserID    string      `json:"userId"`
	Session   GameSession `json:"session"`
	Timestamp int64       `json:"timestamp"`
	Synced    bool        `json:"synced"`
}

// UsedWord is one ledger row: a word served to a user
type UsedWord struct {
	UserID string `json:"userId" db:"user_id"`
	WordID string `json:"wordId" db:"word_id"`
	UsedAt int64  `json:"usedAt" db:"used_at"`
}

// UserSnapshot is the last known good copy of a user's account
type UserSnapshot struct {
	UserID      string  `json:"userId"`
	Account     Account `json:"-"`
	LastUpdated int64   `json:"lastUpdated"`
}
