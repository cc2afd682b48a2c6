package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"wordhero/internal/models"
	"wordhero/internal/progress"
	"wordhero/internal/repository"
)

// CertificateNotifier is told about every newly earned certificate
type CertificateNotifier interface {
	NotifyCertificate(ctx context.Context, student *models.Student, cert models.Certificate) error
}

// SnapshotSaver keeps the last known good copy of an account
type SnapshotSaver interface {
	SaveUserSnapshot(ctx context.Context, userID string, account models.Account) error
}

// ProgressService applies finished sessions to the authoritative student document.
// Sessions of one user are applied one at a time.
type ProgressService struct {
	store              repository.RemoteStore
	locks              *UserLocks
	notifier           CertificateNotifier
	snapshots          SnapshotSaver
	defaultTeacherName string
	maxConflictRetries int
	debug              bool
	now                func() time.Time
}

// ProgressOption configures a ProgressService
type ProgressOption func(*ProgressService)

func WithCertificateNotifier(n CertificateNotifier) ProgressOption {
	return func(s *ProgressService) { s.notifier = n }
}

func WithSnapshots(saver SnapshotSaver) ProgressOption {
	return func(s *ProgressService) { s.snapshots = saver }
}

func WithDefaultTeacherName(name string) ProgressOption {
	return func(s *ProgressService) { s.defaultTeacherName = name }
}

func WithMaxConflictRetries(n int) ProgressOption {
	return func(s *ProgressService) { s.maxConflictRetries = n }
}

func WithClock(now func() time.Time) ProgressOption {
	return func(s *ProgressService) { s.now = now }
}

func WithDebug(debug bool) ProgressOption {
	return func(s *ProgressService) { s.debug = debug }
}

// NewProgressService creates a new progress service
func NewProgressService(store repository.RemoteStore, opts ...ProgressOption) *ProgressService {
	s := &ProgressService{
		store:              store,
		locks:              NewUserLocks(),
		defaultTeacherName: progress.DefaultTeacherName,
		maxConflictRetries: 3,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplySession reconciles a finished session into the user's document and persists it.
// A concurrent write by another device is resolved by re-reading and recomputing.
func (s *ProgressService) ApplySession(ctx context.Context, userID string, session *models.GameSession) (*progress.Result, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		doc, err := s.store.GetUserDocument(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to read progress of %s: %w", userID, err)
		}
		student, ok := doc.Account.(*models.Student)
		if !ok {
			return nil, models.ErrNotEligible
		}

		now := s.now()
		result, err := progress.Reconcile(student, session, progress.Env{
			Now:                now,
			PoolSize:           s.poolSize(ctx, student, session.Difficulty),
			DefaultTeacherName: s.defaultTeacherName,
			NewCertificateID:   uuid.NewString,
		})
		if err != nil {
			return nil, err
		}

		update := repository.DocumentUpdate{
			ExpectedVersion: doc.Version,
			Progress:        result.Progress,
		}
		if session.TimeSpent > 0 {
			update.CompletionTimeDelta = session.TimeSpent
			update.LastRankUpdate = now.UTC().Format(time.RFC3339)
		}

		_, err = s.store.UpdateUserDocument(ctx, userID, update)
		if errors.Is(err, repository.ErrConflictOnWrite) && attempt < s.maxConflictRetries {
			log.Printf("[progress] document of %s changed during update, recomputing (attempt %d)", userID, attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save progress of %s: %w", userID, err)
		}

		if s.debug {
			log.Printf("[DEBUG] Applied %s session for %s: %s", session.Difficulty, userID, result.Summary)
		}

		updated := *student
		updated.Progress = result.Progress
		updated.TotalCompletionTime += update.CompletionTimeDelta
		if update.LastRankUpdate != "" {
			updated.LastRankUpdate = update.LastRankUpdate
		}
		s.afterApply(ctx, &updated, result)
		return result, nil
	}
}

// poolSize counts the words of a difficulty the student can be served. Zero when unknown.
func (s *ProgressService) poolSize(ctx context.Context, student *models.Student, difficulty models.Difficulty) int {
	words, err := s.store.QueryWords(ctx, repository.WordFilter{
		Difficulty: difficulty,
		GradeLevel: student.GradeLevel,
		Section:    student.Section,
	})
	if err != nil {
		log.Printf("[progress] failed to count %s words for %s, using session length: %v", difficulty, student.ID, err)
		return 0
	}
	return len(words)
}

func (s *ProgressService) afterApply(ctx context.Context, student *models.Student, result *progress.Result) {
	if s.snapshots != nil {
		if err := s.snapshots.SaveUserSnapshot(ctx, student.ID, student); err != nil {
			log.Printf("[progress] failed to cache snapshot of %s: %v", student.ID, err)
		}
	}
	if cert := result.Summary.NewCertificate; cert != nil && s.notifier != nil {
		if err := s.notifier.NotifyCertificate(ctx, student, *cert); err != nil {
			log.Printf("[progress] failed to send certificate notification for %s: %v", student.ID, err)
		}
	}
}
