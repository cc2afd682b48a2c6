package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"wordhero/internal/models"
	"wordhero/internal/progress"
	"wordhero/internal/repository"
)

// ErrDrainInProgress is returned when a drain for the same user is already running
var ErrDrainInProgress = errors.New("drain already in progress")

// Reconciler applies a session to the authoritative state
type Reconciler interface {
	ApplySession(ctx context.Context, userID string, session *models.GameSession) (*progress.Result, error)
}

// PendingQueue is the durable queue of sessions awaiting the remote store
type PendingQueue interface {
	EnqueuePendingResult(ctx context.Context, session *models.GameSession, userID string) (int64, error)
	ListPendingResults(ctx context.Context) ([]models.PendingResult, error)
	ListPendingResultsForUser(ctx context.Context, userID string) ([]models.PendingResult, error)
	CountPendingResults(ctx context.Context) (int, error)
	RemovePendingResults(ctx context.Context, ids []int64) error
}

// Connectivity reports online status and transitions
type Connectivity interface {
	IsOnline() bool
	OnTransition(onOnline, onOffline func()) (unsubscribe func())
}

// SubmitResult is the outcome of SubmitSession: either applied now or queued for later
type SubmitResult struct {
	Result    *progress.Result
	Queued    bool
	PendingID int64
}

// SyncStatus describes the engine for status endpoints
type SyncStatus struct {
	Online       bool      `json:"online"`
	Pending      int       `json:"pending"`
	LastDrainAt  time.Time `json:"lastDrainAt"`
	LastSynced   int       `json:"lastSynced"`
	LastFailures int       `json:"lastFailures"`
}

// SyncEngine makes sure every finished session is applied to the remote store exactly once
// a confirmation arrives, queueing it locally while the store cannot be reached.
type SyncEngine struct {
	reconciler Reconciler
	queue      PendingQueue
	monitor    Connectivity
	timeout    time.Duration
	draining   *UserLocks

	mu           sync.Mutex
	lastDrainAt  time.Time
	lastSynced   int
	lastFailures int
}

// NewSyncEngine creates a sync engine. timeout bounds each remote attempt; zero means no bound.
func NewSyncEngine(reconciler Reconciler, queue PendingQueue, monitor Connectivity, timeout time.Duration) *SyncEngine {
	return &SyncEngine{
		reconciler: reconciler,
		queue:      queue,
		monitor:    monitor,
		timeout:    timeout,
		draining:   NewUserLocks(),
	}
}

// Start drains the queue on every transition to online until ctx is done.
// The returned function unsubscribes.
func (e *SyncEngine) Start(ctx context.Context) (stop func()) {
	return e.monitor.OnTransition(func() {
		go func() {
			if _, err := e.DrainAll(ctx); err != nil {
				log.Printf("[sync] drain after reconnect failed: %v", err)
			}
		}()
	}, nil)
}

// SubmitSession applies a session right away when online, and queues it when the apply fails
// for any reason other than validation or eligibility. Those are returned and never queued.
func (e *SyncEngine) SubmitSession(ctx context.Context, session *models.GameSession, userID string) (*SubmitResult, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	if e.monitor.IsOnline() {
		result, err := e.apply(ctx, userID, session)
		if err == nil {
			return &SubmitResult{Result: result}, nil
		}
		if models.IsValidationError(err) {
			return nil, err
		}
		if shouldQueue(err) {
			log.Printf("[sync] remote apply for %s failed, queueing: %v", userID, err)
		} else {
			log.Printf("[sync] remote apply for %s rejected, queueing for a later drain: %v", userID, err)
		}
	}

	// The result must be kept even if the caller gave up waiting for the remote store
	id, err := e.queue.EnqueuePendingResult(context.WithoutCancel(ctx), session, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to queue session for %s: %w", userID, err)
	}
	log.Printf("[sync] queued %s session for %s as #%d", session.Difficulty, userID, id)
	return &SubmitResult{Queued: true, PendingID: id}, nil
}

// DrainQueue replays a user's queued sessions oldest first. Each entry is attempted even if an
// earlier one failed; applied entries are removed together at the end and failed ones stay queued.
// It returns the number of entries applied.
func (e *SyncEngine) DrainQueue(ctx context.Context, userID string) (int, error) {
	unlock, ok := e.draining.TryLock(userID)
	if !ok {
		return 0, ErrDrainInProgress
	}
	defer unlock()

	entries, err := e.queue.ListPendingResultsForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending results: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	runID := uuid.NewString()[:8]
	log.Printf("[sync] drain %s: %d pending for %s", runID, len(entries), userID)

	var synced []int64
	failures := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		session := entry.Session
		if _, err := e.apply(ctx, userID, &session); err != nil {
			failures++
			if shouldQueue(err) {
				log.Printf("[sync] drain %s: #%d not applied, will retry: %v", runID, entry.ID, err)
			} else {
				log.Printf("[sync] drain %s: #%d rejected, kept in queue: %v", runID, entry.ID, err)
			}
			continue
		}
		synced = append(synced, entry.ID)
	}

	if err := e.removeApplied(ctx, synced); err != nil {
		log.Printf("[sync] drain %s: entries %v were applied but are still queued and would be replayed", runID, synced)
		e.record(0, len(entries))
		return 0, fmt.Errorf("applied %d results but failed to clear them: %w", len(synced), err)
	}

	e.record(len(synced), failures)
	log.Printf("[sync] drain %s: synced %d, failed %d", runID, len(synced), failures)
	return len(synced), nil
}

// DrainAll drains the queue of every user with pending entries
func (e *SyncEngine) DrainAll(ctx context.Context) (int, error) {
	entries, err := e.queue.ListPendingResults(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending results: %w", err)
	}

	var users []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		if !seen[entry.UserID] {
			seen[entry.UserID] = true
			users = append(users, entry.UserID)
		}
	}

	total := 0
	var errs []error
	for _, userID := range users {
		n, err := e.DrainQueue(ctx, userID)
		total += n
		if err != nil && !errors.Is(err, ErrDrainInProgress) {
			errs = append(errs, fmt.Errorf("%s: %w", userID, err))
		}
	}
	return total, errors.Join(errs...)
}

// Status reports connectivity, queue length and the last drain
func (e *SyncEngine) Status(ctx context.Context) (SyncStatus, error) {
	pending, err := e.queue.CountPendingResults(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	return SyncStatus{
		Online:       e.monitor.IsOnline(),
		Pending:      pending,
		LastDrainAt:  e.lastDrainAt,
		LastSynced:   e.lastSynced,
		LastFailures: e.lastFailures,
	}, err
}

func (e *SyncEngine) apply(ctx context.Context, userID string, session *models.GameSession) (*progress.Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.reconciler.ApplySession(ctx, userID, session)
}

// removeApplied clears applied entries, trying once more so they are not replayed
func (e *SyncEngine) removeApplied(ctx context.Context, ids []int64) error {
	ctx = context.WithoutCancel(ctx)
	err := e.queue.RemovePendingResults(ctx, ids)
	if err == nil {
		return nil
	}
	log.Printf("[sync] failed to clear %d applied entries, retrying: %v", len(ids), err)
	return e.queue.RemovePendingResults(ctx, ids)
}

func (e *SyncEngine) record(synced, failures int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastDrainAt = time.Now()
	e.lastSynced = synced
	e.lastFailures = failures
}

// shouldQueue reports whether a failed apply may succeed later
func shouldQueue(err error) bool {
	return repository.IsRetryable(err) ||
		errors.Is(err, repository.ErrConflictOnWrite) ||
		errors.Is(err, context.DeadlineExceeded)
}
