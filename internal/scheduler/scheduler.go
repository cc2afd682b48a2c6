package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Drainer replays queued sessions
type Drainer interface {
	DrainAll(ctx context.Context) (int, error)
}

// WordRefresher reloads the word bank into the local cache
type WordRefresher interface {
	RefreshWords(ctx context.Context) error
}

// OnlineChecker reports connectivity
type OnlineChecker interface {
	IsOnline() bool
}

// Scheduler runs the periodic sync jobs
type Scheduler struct {
	scheduler *gocron.Scheduler
	drainer   Drainer
	words     WordRefresher
	online    OnlineChecker
	ctx       context.Context
}

// New creates a new scheduler. words may be nil to skip word list refreshes.
func New(ctx context.Context, drainer Drainer, words WordRefresher, online OnlineChecker) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		drainer:   drainer,
		words:     words,
		online:    online,
		ctx:       ctx,
	}
}

// Start schedules the retry drain every retryInterval and the word refresh every refreshInterval,
// then runs them in the background. A zero interval disables that job.
func (s *Scheduler) Start(retryInterval, refreshInterval time.Duration) error {
	if retryInterval > 0 {
		if _, err := s.scheduler.Every(retryInterval).WaitForSchedule().Do(s.retryPending); err != nil {
			return fmt.Errorf("failed to schedule retry job: %w", err)
		}
	}
	if refreshInterval > 0 && s.words != nil {
		if _, err := s.scheduler.Every(refreshInterval).Do(s.refreshWords); err != nil {
			return fmt.Errorf("failed to schedule word refresh job: %w", err)
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled jobs
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// retryPending drains the queue when the remote store is reachable
func (s *Scheduler) retryPending() {
	if !s.online.IsOnline() {
		return
	}
	n, err := s.drainer.DrainAll(s.ctx)
	if err != nil {
		log.Printf("[sync] scheduled drain failed: %v", err)
	}
	if n > 0 {
		log.Printf("[sync] scheduled drain applied %d results", n)
	}
}

func (s *Scheduler) refreshWords() {
	if !s.online.IsOnline() {
		return
	}
	if err := s.words.RefreshWords(s.ctx); err != nil {
		log.Printf("[words] scheduled refresh failed: %v", err)
	}
}
