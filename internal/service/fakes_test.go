package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"wordhero/internal/models"
	"wordhero/internal/repository"
)

// fakeStore is an in-memory RemoteStore with optimistic versioning
type fakeStore struct {
	mu       sync.Mutex
	docs     map[string]models.Account
	versions map[string]int64
	words    []models.Word
	down     bool

	// beforeUpdate runs (unlocked) before each update is checked
	beforeUpdate func(userID string)
	updates      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]models.Account{}, versions: map[string]int64{}}
}

func (f *fakeStore) unavailable(op string) error {
	return fmt.Errorf("%s: %w", op, repository.ErrRemoteUnavailable)
}

func (f *fakeStore) GetUserDocument(ctx context.Context, userID string) (*repository.UserDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, f.unavailable("get")
	}
	acc, ok := f.docs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if st, ok := acc.(*models.Student); ok {
		c := *st
		c.Progress = st.Progress.Clone()
		acc = &c
	}
	return &repository.UserDocument{Account: acc, Version: f.versions[userID]}, nil
}

func (f *fakeStore) UpdateUserDocument(ctx context.Context, userID string, update repository.DocumentUpdate) (int64, error) {
	if f.beforeUpdate != nil {
		f.beforeUpdate(userID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return 0, f.unavailable("update")
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("update: %w: %w", repository.ErrRemoteUnavailable, err)
	}
	acc, ok := f.docs[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	st, ok := acc.(*models.Student)
	if !ok {
		return 0, models.ErrNotEligible
	}
	if f.versions[userID] != update.ExpectedVersion {
		return 0, repository.ErrConflictOnWrite
	}
	st.Progress = update.Progress.Clone()
	st.TotalCompletionTime += update.CompletionTimeDelta
	if update.LastRankUpdate != "" {
		st.LastRankUpdate = update.LastRankUpdate
	}
	f.versions[userID]++
	f.updates++
	return f.versions[userID], nil
}

func (f *fakeStore) PutUserDocument(ctx context.Context, account models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := account.(*models.Student); ok && st.Progress == nil {
		st.Progress = models.NewStudentProgress()
	}
	f.docs[account.AccountID()] = account
	f.versions[account.AccountID()]++
	return nil
}

func (f *fakeStore) ListStudents(ctx context.Context) ([]*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, f.unavailable("list")
	}
	var out []*models.Student
	for _, acc := range f.docs {
		if st, ok := acc.(*models.Student); ok && !st.Deleted {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) QueryWords(ctx context.Context, filter repository.WordFilter) ([]models.Word, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, f.unavailable("query")
	}
	words := f.words
	if filter.Difficulty != "" {
		words = models.FilterByDifficulty(words, filter.Difficulty)
	}
	return models.FilterForStudent(append([]models.Word{}, words...), filter.GradeLevel, filter.Section), nil
}

func (f *fakeStore) PutWord(ctx context.Context, word models.Word, createdBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.words = append(f.words, word)
	return nil
}

func (f *fakeStore) DeleteWord(ctx context.Context, wordID string) error { return nil }

func (f *fakeStore) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return f.unavailable("ping")
	}
	return nil
}

func (f *fakeStore) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *fakeStore) student(id string) *models.Student {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[id].(*models.Student)
}

func openCache(t *testing.T) *repository.LocalCache {
	t.Helper()
	cache, err := repository.OpenLocalCache(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenLocalCache() error = %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

// gameSession builds a session of n words, all spelled correctly
func gameSession(d models.Difficulty, n, sparkies int) *models.GameSession {
	s := &models.GameSession{Difficulty: d, TotalSparkiesEarned: sparkies}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%d", d, i)
		s.Words = append(s.Words, models.Word{ID: id, Term: id, Difficulty: d})
		s.Results = append(s.Results, models.WordResult{WordID: id, IsCorrect: true, Attempts: 1})
	}
	return s
}

func wordPool(d models.Difficulty, n int) []models.Word {
	words := make([]models.Word, n)
	for i := range words {
		id := fmt.Sprintf("%s-%d", d, i)
		words[i] = models.Word{ID: id, Term: id, Difficulty: d}
	}
	return words
}
