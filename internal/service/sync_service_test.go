package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"wordhero/internal/connectivity"
	"wordhero/internal/models"
	"wordhero/internal/progress"
	"wordhero/internal/repository"
)

// fakeReconciler records applied sessions and fails those whose sparkies are listed
type fakeReconciler struct {
	mu      sync.Mutex
	applied []int
	fail    map[int]error
	block   chan struct{}
}

func (r *fakeReconciler) ApplySession(ctx context.Context, userID string, session *models.GameSession) (*progress.Result, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.fail[session.TotalSparkiesEarned]; ok {
		r.applied = append(r.applied, -session.TotalSparkiesEarned)
		return nil, err
	}
	r.applied = append(r.applied, session.TotalSparkiesEarned)
	return &progress.Result{}, nil
}

func (r *fakeReconciler) calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.applied...)
}

func newEngine(t *testing.T, rec *fakeReconciler, online bool) (*SyncEngine, *repository.LocalCache, *connectivity.Monitor) {
	t.Helper()
	cache := openCache(t)
	monitor := connectivity.NewMonitor(func(ctx context.Context) error { return nil }, time.Hour)
	monitor.SetOnline(online)
	return NewSyncEngine(rec, cache, monitor, time.Second), cache, monitor
}

func TestSubmitSession(t *testing.T) {
	unavailable := fmt.Errorf("update: %w", repository.ErrRemoteUnavailable)
	tests := []struct {
		name       string
		online     bool
		fail       error
		wantQueued bool
		wantErr    error
	}{
		{"online success", true, nil, false, nil},
		{"offline", false, nil, true, nil},
		{"remote unavailable", true, unavailable, true, nil},
		{"conflict", true, repository.ErrConflictOnWrite, true, nil},
		{"timeout", true, context.DeadlineExceeded, true, nil},
		{"not eligible", true, models.ErrNotEligible, false, models.ErrNotEligible},
		{"missing document", true, fmt.Errorf("get: %w", repository.ErrNotFound), true, nil},
		{"corrupt document", true, fmt.Errorf("get: %w", repository.ErrCorruptDocument), true, nil},
		{"canceled", true, context.Canceled, true, nil},
		{"unclassified failure", true, errors.New("reconcile: unexpected state"), true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeReconciler{fail: map[int]error{}}
			if tt.fail != nil {
				rec.fail[10] = tt.fail
			}
			engine, cache, _ := newEngine(t, rec, tt.online)

			res, err := engine.SubmitSession(context.Background(), gameSession(models.DifficultyEasy, 1, 10), "s1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SubmitSession() error = %v, want %v", err, tt.wantErr)
			}

			count, _ := cache.CountPendingResults(context.Background())
			wantCount := 0
			if tt.wantQueued {
				wantCount = 1
			}
			if count != wantCount {
				t.Errorf("pending = %d, want %d", count, wantCount)
			}
			if err == nil && res.Queued != tt.wantQueued {
				t.Errorf("Queued = %v, want %v", res.Queued, tt.wantQueued)
			}
		})
	}
}

func TestSubmitSessionRejectsInvalidSession(t *testing.T) {
	engine, cache, _ := newEngine(t, &fakeReconciler{}, false)

	session := gameSession(models.DifficultyEasy, 1, 10)
	session.Results = append(session.Results, models.WordResult{WordID: "stranger", IsCorrect: true})

	_, err := engine.SubmitSession(context.Background(), session, "s1")
	if !models.IsValidationError(err) {
		t.Errorf("SubmitSession() error = %v, want validation error", err)
	}
	if count, _ := cache.CountPendingResults(context.Background()); count != 0 {
		t.Errorf("pending = %d, want 0", count)
	}
}

func TestSubmitSessionTimesOut(t *testing.T) {
	rec := &fakeReconciler{block: make(chan struct{})}
	cache := openCache(t)
	monitor := connectivity.NewMonitor(func(ctx context.Context) error { return nil }, time.Hour)
	monitor.SetOnline(true)
	engine := NewSyncEngine(rec, cache, monitor, 20*time.Millisecond)

	res, err := engine.SubmitSession(context.Background(), gameSession(models.DifficultyEasy, 1, 10), "s1")
	if err != nil {
		t.Fatalf("SubmitSession() error = %v", err)
	}
	if !res.Queued {
		t.Error("Queued = false, want true after timeout")
	}
}

func TestDrainQueueKeepsFailures(t *testing.T) {
	rec := &fakeReconciler{fail: map[int]error{2: repository.ErrRemoteUnavailable}}
	engine, cache, monitor := newEngine(t, rec, false)
	ctx := context.Background()

	for sparkies := 1; sparkies <= 3; sparkies++ {
		if _, err := engine.SubmitSession(ctx, gameSession(models.DifficultyEasy, 1, sparkies), "s1"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := engine.SubmitSession(ctx, gameSession(models.DifficultyEasy, 1, 9), "other"); err != nil {
		t.Fatal(err)
	}
	monitor.SetOnline(true)

	n, err := engine.DrainQueue(ctx, "s1")
	if err != nil {
		t.Fatalf("DrainQueue() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DrainQueue() = %d, want 2", n)
	}
	if got, want := fmt.Sprint(rec.calls()), "[1 -2 3]"; got != want {
		t.Errorf("apply order = %s, want %s", got, want)
	}

	left, _ := cache.ListPendingResultsForUser(ctx, "s1")
	if len(left) != 1 || left[0].Session.TotalSparkiesEarned != 2 {
		t.Errorf("remaining = %+v, want only the failed session", left)
	}
	if others, _ := cache.ListPendingResultsForUser(ctx, "other"); len(others) != 1 {
		t.Errorf("other user's queue = %d, want untouched", len(others))
	}

	// The next drain succeeds once the store recovers
	rec.mu.Lock()
	delete(rec.fail, 2)
	rec.mu.Unlock()
	if n, err := engine.DrainQueue(ctx, "s1"); err != nil || n != 1 {
		t.Errorf("second DrainQueue() = %d, %v, want 1, nil", n, err)
	}

	status, err := engine.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Pending != 1 || !status.Online || status.LastSynced != 1 || status.LastDrainAt.IsZero() {
		t.Errorf("Status() = %+v", status)
	}
}

func TestDrainQueueKeepsRejectedEntries(t *testing.T) {
	rec := &fakeReconciler{fail: map[int]error{5: models.ErrNotEligible}}
	engine, cache, _ := newEngine(t, rec, false)
	ctx := context.Background()

	engine.SubmitSession(ctx, gameSession(models.DifficultyEasy, 1, 5), "t1")
	if n, _ := engine.DrainQueue(ctx, "t1"); n != 0 {
		t.Errorf("DrainQueue() = %d, want 0", n)
	}
	if count, _ := cache.CountPendingResults(ctx); count != 1 {
		t.Errorf("pending = %d, want 1", count)
	}
}

func TestDrainQueueIsExclusivePerUser(t *testing.T) {
	rec := &fakeReconciler{block: make(chan struct{})}
	cache := openCache(t)
	monitor := connectivity.NewMonitor(func(ctx context.Context) error { return nil }, time.Hour)
	engine := NewSyncEngine(rec, cache, monitor, 0)
	ctx := context.Background()

	engine.SubmitSession(ctx, gameSession(models.DifficultyEasy, 1, 1), "s1")

	done := make(chan int)
	go func() {
		n, _ := engine.DrainQueue(ctx, "s1")
		done <- n
	}()

	// Wait until the first drain holds the user
	deadline := time.Now().Add(2 * time.Second)
	for engine.draining.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if _, err := engine.DrainQueue(ctx, "s1"); !errors.Is(err, ErrDrainInProgress) {
		t.Errorf("concurrent DrainQueue() error = %v, want ErrDrainInProgress", err)
	}

	close(rec.block)
	if n := <-done; n != 1 {
		t.Errorf("first DrainQueue() = %d, want 1", n)
	}
	if count, _ := cache.CountPendingResults(ctx); count != 0 {
		t.Errorf("pending = %d, want 0", count)
	}
}

func TestStartDrainsOnReconnect(t *testing.T) {
	rec := &fakeReconciler{}
	engine, cache, monitor := newEngine(t, rec, false)
	ctx := context.Background()

	engine.SubmitSession(ctx, gameSession(models.DifficultyEasy, 1, 1), "s1")
	engine.SubmitSession(ctx, gameSession(models.DifficultyEasy, 1, 2), "s2")

	stop := engine.Start(ctx)
	defer stop()
	monitor.SetOnline(true)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count, _ := cache.CountPendingResults(ctx); count == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("queue was not drained after going online")
}

// flakyQueue fails the first removeFailures calls to RemovePendingResults
type flakyQueue struct {
	*repository.LocalCache
	removeFailures int
	removeCalls    int
}

func (q *flakyQueue) RemovePendingResults(ctx context.Context, ids []int64) error {
	q.removeCalls++
	if q.removeCalls <= q.removeFailures {
		return errors.New("disk I/O error")
	}
	return q.LocalCache.RemovePendingResults(ctx, ids)
}

func TestDrainQueueRetriesRemove(t *testing.T) {
	tests := []struct {
		name        string
		failures    int
		wantErr     bool
		wantPending int
	}{
		{"first remove fails", 1, false, 0},
		{"both removes fail", 2, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			queue := &flakyQueue{LocalCache: openCache(t), removeFailures: tt.failures}
			monitor := connectivity.NewMonitor(func(ctx context.Context) error { return nil }, time.Hour)
			rec := &fakeReconciler{}
			engine := NewSyncEngine(rec, queue, monitor, time.Second)

			for sparkies := 1; sparkies <= 2; sparkies++ {
				if _, err := engine.SubmitSession(ctx, gameSession(models.DifficultyEasy, 1, sparkies), "s1"); err != nil {
					t.Fatal(err)
				}
			}

			monitor.SetOnline(true)
			_, err := engine.DrainQueue(ctx, "s1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("DrainQueue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if queue.removeCalls != 2 {
				t.Errorf("remove calls = %d, want 2", queue.removeCalls)
			}
			if count, _ := queue.CountPendingResults(ctx); count != tt.wantPending {
				t.Errorf("pending = %d, want %d", count, tt.wantPending)
			}
			if got := rec.calls(); len(got) != 2 {
				t.Errorf("applied = %v, want each entry applied once", got)
			}
		})
	}
}
