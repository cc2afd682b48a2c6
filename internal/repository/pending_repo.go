package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"wordhero/internal/database"
	"wordhero/internal/models"
)

// PendingRepository is the durable queue of sessions not yet applied remotely
type PendingRepository struct {
	db  *database.DB
	now func() time.Time
}

func NewPendingRepository(db *database.DB) *PendingRepository {
	return &PendingRepository{db: db, now: time.Now}
}

type pendingRow struct {
	ID        int64  `db:"id"`
	UserID    string `db:"user_id"`
	Session   string `db:"session"`
	Timestamp int64  `db:"timestamp"`
	Synced    bool   `db:"synced"`
}

func (row pendingRow) toModel() (models.PendingResult, error) {
	result := models.PendingResult{
		ID:        row.ID,
		UserID:    row.UserID,
		Timestamp: row.Timestamp,
		Synced:    row.Synced,
	}
	if err := json.Unmarshal([]byte(row.Session), &result.Session); err != nil {
		return result, fmt.Errorf("failed to decode pending result %d: %w", row.ID, err)
	}
	return result, nil
}

// Enqueue appends a session to the queue and returns its id
func (r *PendingRepository) Enqueue(ctx context.Context, session *models.GameSession, userID string) (int64, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return 0, fmt.Errorf("failed to encode session: %w", err)
	}

	query := `INSERT INTO pending_results (user_id, session, timestamp, synced) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, userID, string(data), r.now().UnixMilli(), false)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue pending result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending result ID: %w", err)
	}
	return id, nil
}

// List returns every queued entry, oldest first
func (r *PendingRepository) List(ctx context.Context) ([]models.PendingResult, error) {
	return r.list(ctx, `SELECT id, user_id, session, timestamp, synced FROM pending_results ORDER BY id`)
}

// ListForUser returns one user's queued entries, oldest first
func (r *PendingRepository) ListForUser(ctx context.Context, userID string) ([]models.PendingResult, error) {
	return r.list(ctx, `SELECT id, user_id, session, timestamp, synced FROM pending_results WHERE user_id = ? ORDER BY id`, userID)
}

func (r *PendingRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.PendingResult, error) {
	var rows []pendingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list pending results: %w", err)
	}

	results := make([]models.PendingResult, 0, len(rows))
	for _, row := range rows {
		result, err := row.toModel()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Count returns the number of queued entries
func (r *PendingRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM pending_results`)
	return count, err
}

// Remove deletes the given entries. Ids that no longer exist are ignored.
func (r *PendingRepository) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM pending_results WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to remove pending results: %w", err)
	}
	return nil
}
