package repository

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"wordhero/internal/database"
	"wordhero/internal/models"
)

const (
	metaWordsLastUpdated = "words.last_updated"
	metaWordsFingerprint = "words.fingerprint"
	metaWordsCount       = "words.count"
)

const wordColumns = `id, term, difficulty, category, hint, scenario, hint_localized, scenario_localized, grade_levels, sections`

// WordCacheRepository mirrors the remote word list. The list is only ever replaced whole.
type WordCacheRepository struct {
	db  *database.DB
	now func() time.Time
}

func NewWordCacheRepository(db *database.DB) *WordCacheRepository {
	return &WordCacheRepository{db: db, now: time.Now}
}

// Fingerprint hashes the sorted (id, term) pairs of a word list
func Fingerprint(words []models.Word) string {
	pairs := make([]string, 0, len(words))
	for _, w := range words {
		pairs = append(pairs, w.ID+"\x00"+w.Term)
	}
	sort.Strings(pairs)

	h, _ := blake2b.New256(nil)
	for _, p := range pairs {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SaveWordList replaces the cached list unless its fingerprint is unchanged and force is false.
// It reports whether anything was written. Readers never observe a partially replaced list.
func (r *WordCacheRepository) SaveWordList(ctx context.Context, words []models.Word, force bool) (bool, error) {
	fingerprint := Fingerprint(words)

	if !force {
		current, err := NewMetaRepository(r.db).Get(ctx, metaWordsFingerprint)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("failed to read word list fingerprint: %w", err)
		}
		if err == nil && current == fingerprint {
			return false, nil
		}
	}

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cached_words`); err != nil {
			return fmt.Errorf("failed to clear cached words: %w", err)
		}

		query := `INSERT INTO cached_words (position, ` + wordColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		for i, w := range words {
			if _, err := tx.ExecContext(ctx, query,
				i, w.ID, w.Term, w.Difficulty, w.Category, w.Hint, w.Scenario,
				w.HintLocalized, w.ScenarioLocalized, w.GradeLevels, w.Sections,
			); err != nil {
				return fmt.Errorf("failed to cache word %s: %w", w.ID, err)
			}
		}

		meta := NewMetaRepository(tx)
		if err := meta.Set(ctx, metaWordsLastUpdated, strconv.FormatInt(r.now().UnixMilli(), 10)); err != nil {
			return err
		}
		if err := meta.Set(ctx, metaWordsFingerprint, fingerprint); err != nil {
			return err
		}
		return meta.Set(ctx, metaWordsCount, strconv.Itoa(len(words)))
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// LoadWordList returns the cached words in the order they were saved. Empty if never populated.
func (r *WordCacheRepository) LoadWordList(ctx context.Context) ([]models.Word, error) {
	words := []models.Word{}
	query := `SELECT ` + wordColumns + ` FROM cached_words ORDER BY position`
	if err := r.db.SelectContext(ctx, &words, query); err != nil {
		return nil, fmt.Errorf("failed to load cached words: %w", err)
	}
	return words, nil
}

// Meta returns the metadata of the cached list, or nil if the list was never saved
func (r *WordCacheRepository) Meta(ctx context.Context) (*models.WordListMeta, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	err := r.db.SelectContext(ctx, &rows, `SELECT key, value FROM cache_meta WHERE key IN (?, ?, ?)`,
		metaWordsLastUpdated, metaWordsFingerprint, metaWordsCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read word list metadata: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	meta := &models.WordListMeta{}
	for _, row := range rows {
		switch row.Key {
		case metaWordsLastUpdated:
			meta.LastUpdated, _ = strconv.ParseInt(row.Value, 10, 64)
		case metaWordsFingerprint:
			meta.Fingerprint = row.Value
		case metaWordsCount:
			meta.Count, _ = strconv.Atoi(row.Value)
		}
	}
	return meta, nil
}
