package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"wordhero/internal/database"
	"wordhero/internal/models"
)

const metaOwner = "agent.owner"

// LocalCache is the durable client-side store: cached word list and its metadata,
// the pending result queue, user snapshots and the used-word ledger.
// It is opened once at startup and passed to the components that need it.
type LocalCache struct {
	db        *database.DB
	degraded  bool
	words     *WordCacheRepository
	pending   *PendingRepository
	snapshots *SnapshotRepository
	usedWords *UsedWordRepository
	meta      *MetaRepository
}

// OpenLocalCache opens (creating if needed) the cache file at path and applies migrations.
// Any failure is reported as ErrStorageUnavailable.
func OpenLocalCache(ctx context.Context, path string) (*LocalCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
	}
	db, err := database.Initialize(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return newLocalCache(ctx, db, false)
}

// OpenMemoryCache opens a cache that lives only as long as the process.
// It reports itself as degraded: nothing queued in it survives a restart.
func OpenMemoryCache(ctx context.Context) (*LocalCache, error) {
	db, err := database.InitializeMemory()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return newLocalCache(ctx, db, true)
}

// OpenLocalCacheOrMemory falls back to a memory-only cache when the file cannot be used
func OpenLocalCacheOrMemory(ctx context.Context, path string) (*LocalCache, error) {
	cache, err := OpenLocalCache(ctx, path)
	if err == nil {
		return cache, nil
	}
	log.Printf("[cache] %v; continuing memory-only, offline results will not survive a restart", err)
	return OpenMemoryCache(ctx)
}

func newLocalCache(ctx context.Context, db *database.DB, degraded bool) (*LocalCache, error) {
	if err := db.RunMigrations(ctx, database.CacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return &LocalCache{
		db:        db,
		degraded:  degraded,
		words:     NewWordCacheRepository(db),
		pending:   NewPendingRepository(db),
		snapshots: NewSnapshotRepository(db),
		usedWords: NewUsedWordRepository(db),
		meta:      NewMetaRepository(db),
	}, nil
}

// SetClock replaces the time source used for timestamps
func (c *LocalCache) SetClock(now func() time.Time) {
	c.words.now = now
	c.pending.now = now
	c.snapshots.now = now
	c.usedWords.now = now
}

// Degraded reports whether the cache is memory-only
func (c *LocalCache) Degraded() bool {
	return c.degraded
}

// Close releases the underlying database
func (c *LocalCache) Close() error {
	return c.db.Close()
}

// SchemaVersion returns the number of cache migrations applied
func (c *LocalCache) SchemaVersion(ctx context.Context) (int, error) {
	return c.db.SchemaVersion(ctx, database.CacheSchema)
}

func (c *LocalCache) SaveWordList(ctx context.Context, words []models.Word, force bool) (bool, error) {
	return c.words.SaveWordList(ctx, words, force)
}

func (c *LocalCache) LoadWordList(ctx context.Context) ([]models.Word, error) {
	return c.words.LoadWordList(ctx)
}

func (c *LocalCache) WordListMeta(ctx context.Context) (*models.WordListMeta, error) {
	return c.words.Meta(ctx)
}

func (c *LocalCache) EnqueuePendingResult(ctx context.Context, session *models.GameSession, userID string) (int64, error) {
	return c.pending.Enqueue(ctx, session, userID)
}

func (c *LocalCache) ListPendingResults(ctx context.Context) ([]models.PendingResult, error) {
	return c.pending.List(ctx)
}

func (c *LocalCache) ListPendingResultsForUser(ctx context.Context, userID string) ([]models.PendingResult, error) {
	return c.pending.ListForUser(ctx, userID)
}

func (c *LocalCache) CountPendingResults(ctx context.Context) (int, error) {
	return c.pending.Count(ctx)
}

func (c *LocalCache) RemovePendingResults(ctx context.Context, ids []int64) error {
	return c.pending.Remove(ctx, ids)
}

func (c *LocalCache) SaveUserSnapshot(ctx context.Context, userID string, account models.Account) error {
	return c.snapshots.Save(ctx, userID, account)
}

func (c *LocalCache) LoadUserSnapshot(ctx context.Context, userID string) (*models.UserSnapshot, error) {
	return c.snapshots.Load(ctx, userID)
}

func (c *LocalCache) ListUserSnapshots(ctx context.Context) ([]models.UserSnapshot, error) {
	return c.snapshots.List(ctx)
}

func (c *LocalCache) MarkWordsUsed(ctx context.Context, userID string, wordIDs []string) error {
	return c.usedWords.MarkWordsUsed(ctx, userID, wordIDs)
}

func (c *LocalCache) GetUsedWordIDs(ctx context.Context, userID string) ([]string, error) {
	return c.usedWords.GetUsedWordIDs(ctx, userID)
}

func (c *LocalCache) GetUsedWords(ctx context.Context, userID string) ([]models.UsedWord, error) {
	return c.usedWords.GetUsedWords(ctx, userID)
}

func (c *LocalCache) ResetUsedWords(ctx context.Context, userID string) error {
	return c.usedWords.ResetUsedWords(ctx, userID)
}

func (c *LocalCache) ResetUsedWordsFor(ctx context.Context, userID string, wordIDs []string) error {
	return c.usedWords.ResetUsedWordsFor(ctx, userID, wordIDs)
}

// ClaimOwner records userID as the account this cache syncs for and returns the previous owner,
// or "" for a new cache
func (c *LocalCache) ClaimOwner(ctx context.Context, userID string) (string, error) {
	previous, err := c.meta.Get(ctx, metaOwner)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if previous == userID {
		return previous, nil
	}
	if err := c.meta.Set(ctx, metaOwner, userID); err != nil {
		return "", err
	}
	return previous, nil
}
