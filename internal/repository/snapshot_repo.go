package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wordhero/internal/database"
	"wordhero/internal/models"
)

// SnapshotRepository keeps the last known good copy of each user's account
type SnapshotRepository struct {
	db  *database.DB
	now func() time.Time
}

func NewSnapshotRepository(db *database.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: time.Now}
}

// Save stores the account, stamped with the current time
func (r *SnapshotRepository) Save(ctx context.Context, userID string, account models.Account) error {
	data, err := models.MarshalAccount(account)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	query := r.db.Dialect.UpsertQuery("user_snapshots", []string{"user_id"}, []string{"user_id", "data", "last_updated"})
	if _, err := r.db.ExecContext(ctx, query, userID, string(data), r.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot or ErrNotFound
func (r *SnapshotRepository) Load(ctx context.Context, userID string) (*models.UserSnapshot, error) {
	var row struct {
		Data        string `db:"data"`
		LastUpdated int64  `db:"last_updated"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT data, last_updated FROM user_snapshots WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	account, err := models.UnmarshalAccount([]byte(row.Data))
	if err != nil {
		return nil, err
	}
	return &models.UserSnapshot{UserID: userID, Account: account, LastUpdated: row.LastUpdated}, nil
}

// List returns every stored snapshot
func (r *SnapshotRepository) List(ctx context.Context) ([]models.UserSnapshot, error) {
	var rows []struct {
		UserID      string `db:"user_id"`
		Data        string `db:"data"`
		LastUpdated int64  `db:"last_updated"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT user_id, data, last_updated FROM user_snapshots ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	snapshots := make([]models.UserSnapshot, 0, len(rows))
	for _, row := range rows {
		account, err := models.UnmarshalAccount([]byte(row.Data))
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, models.UserSnapshot{UserID: row.UserID, Account: account, LastUpdated: row.LastUpdated})
	}
	return snapshots, nil
}
