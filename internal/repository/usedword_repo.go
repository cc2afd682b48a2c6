package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"wordhero/internal/database"
	"wordhero/internal/models"
)

// UsedWordRepository is the ledger of words served to each user.
// Rows are cumulative: serving a word twice writes two rows.
type UsedWordRepository struct {
	db  *database.DB
	now func() time.Time
}

func NewUsedWordRepository(db *database.DB) *UsedWordRepository {
	return &UsedWordRepository{db: db, now: time.Now}
}

// MarkWordsUsed appends one ledger row per word
func (r *UsedWordRepository) MarkWordsUsed(ctx context.Context, userID string, wordIDs []string) error {
	if len(wordIDs) == 0 {
		return nil
	}
	usedAt := r.now().UnixMilli()
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `INSERT INTO used_words (user_id, word_id, used_at) VALUES (?, ?, ?)`
		for _, id := range wordIDs {
			if _, err := tx.ExecContext(ctx, query, userID, id, usedAt); err != nil {
				return fmt.Errorf("failed to mark word %s used: %w", id, err)
			}
		}
		return nil
	})
}

// GetUsedWordIDs returns the distinct word ids ever served to the user, across all difficulties
func (r *UsedWordRepository) GetUsedWordIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	query := `SELECT DISTINCT word_id FROM used_words WHERE user_id = ? ORDER BY word_id`
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get used words: %w", err)
	}
	return ids, nil
}

// GetUsedWords returns one row per distinct word with the most recent time it was served
func (r *UsedWordRepository) GetUsedWords(ctx context.Context, userID string) ([]models.UsedWord, error) {
	used := []models.UsedWord{}
	query := `
		SELECT user_id, word_id, MAX(used_at) AS used_at
		FROM used_words
		WHERE user_id = ?
		GROUP BY user_id, word_id
		ORDER BY used_at, word_id
	`
	if err := r.db.SelectContext(ctx, &used, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get used words: %w", err)
	}
	return used, nil
}

// ResetUsedWords deletes the user's whole ledger
func (r *UsedWordRepository) ResetUsedWords(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM used_words WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to reset used words: %w", err)
	}
	return nil
}

// ResetUsedWordsFor deletes the user's ledger rows for the given words only
func (r *UsedWordRepository) ResetUsedWordsFor(ctx context.Context, userID string, wordIDs []string) error {
	if len(wordIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM used_words WHERE user_id = ? AND word_id IN (?)`, userID, wordIDs)
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to reset used words: %w", err)
	}
	return nil
}
