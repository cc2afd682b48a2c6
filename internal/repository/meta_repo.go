package repository

import (
	"context"
	"database/sql"
	"errors"

	"wordhero/internal/database"
)

// MetaRepository stores small key/value facts about the local cache
type MetaRepository struct {
	db database.DBTX
}

func NewMetaRepository(db database.DBTX) *MetaRepository {
	return &MetaRepository{db: db}
}

// Get retrieves a value by key, returning ErrNotFound when the key was never set
func (r *MetaRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM cache_meta WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Set updates or inserts a value
func (r *MetaRepository) Set(ctx context.Context, key, value string) error {
	query := r.db.GetDialect().UpsertQuery("cache_meta", []string{"key"}, []string{"key", "value"})
	_, err := r.db.ExecContext(ctx, query, key, value)
	return err
}
