package repository

import (
	"context"
	"fmt"
	"time"

	"wordhero/internal/models"
)

// BackoffFunc returns how long to wait before the given retry (1 = first retry)
type BackoffFunc func(retry int) time.Duration

// ExponentialBackoff doubles base on every retry, capped at max
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	return func(retry int) time.Duration {
		d := base
		for i := 1; i < retry; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}

// RetryPolicy retries operations that failed with ErrRemoteUnavailable
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// Do runs fn until it succeeds, fails with a non-retryable error, or attempts run out
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrRemoteUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}

// RetryingRemoteStore applies a RetryPolicy to every call of the wrapped store.
// Version conflicts are not retried here: the caller has to re-read and recompute.
type RetryingRemoteStore struct {
	store  RemoteStore
	policy RetryPolicy
}

func NewRetryingRemoteStore(store RemoteStore, policy RetryPolicy) *RetryingRemoteStore {
	return &RetryingRemoteStore{store: store, policy: policy}
}

func (r *RetryingRemoteStore) GetUserDocument(ctx context.Context, userID string) (*UserDocument, error) {
	var doc *UserDocument
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		doc, err = r.store.GetUserDocument(ctx, userID)
		return err
	})
	return doc, err
}

func (r *RetryingRemoteStore) UpdateUserDocument(ctx context.Context, userID string, update DocumentUpdate) (int64, error) {
	var version int64
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		version, err = r.store.UpdateUserDocument(ctx, userID, update)
		return err
	})
	return version, err
}

func (r *RetryingRemoteStore) PutUserDocument(ctx context.Context, account models.Account) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.store.PutUserDocument(ctx, account)
	})
}

func (r *RetryingRemoteStore) ListStudents(ctx context.Context) ([]*models.Student, error) {
	var students []*models.Student
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		students, err = r.store.ListStudents(ctx)
		return err
	})
	return students, err
}

func (r *RetryingRemoteStore) QueryWords(ctx context.Context, filter WordFilter) ([]models.Word, error) {
	var words []models.Word
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		words, err = r.store.QueryWords(ctx, filter)
		return err
	})
	return words, err
}

func (r *RetryingRemoteStore) PutWord(ctx context.Context, word models.Word, createdBy string) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.store.PutWord(ctx, word, createdBy)
	})
}

func (r *RetryingRemoteStore) DeleteWord(ctx context.Context, wordID string) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.store.DeleteWord(ctx, wordID)
	})
}

// Ping is not retried; it is used as a connectivity probe
func (r *RetryingRemoteStore) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}
