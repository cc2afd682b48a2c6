package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wordhero/internal/models"
	"wordhero/internal/repository"
)

var fixedNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.Local)

type recordingNotifier struct {
	mu    sync.Mutex
	certs []models.Certificate
	err   error
}

func (n *recordingNotifier) NotifyCertificate(ctx context.Context, student *models.Student, cert models.Certificate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.certs = append(n.certs, cert)
	return n.err
}

func seededStore(t *testing.T) *fakeStore {
	t.Helper()
	store := newFakeStore()
	err := store.PutUserDocument(context.Background(), &models.Student{
		ID:           "s1",
		Name:         "Ana",
		TeacherName:  "Ms. Reyes",
		TeacherEmail: "reyes@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestApplySessionPersistsProgress(t *testing.T) {
	store := seededStore(t)
	svc := NewProgressService(store, WithClock(func() time.Time { return fixedNow }))

	session := gameSession(models.DifficultyEasy, 5, 50)
	session.TimeSpent = 120

	result, err := svc.ApplySession(context.Background(), "s1", session)
	if err != nil {
		t.Fatalf("ApplySession() error = %v", err)
	}
	if result.Summary.SessionMastery != 100 {
		t.Errorf("SessionMastery = %d, want 100", result.Summary.SessionMastery)
	}

	st := store.student("s1")
	if st.Progress.TotalGames != 1 || st.Progress.Sparkies != 50 {
		t.Errorf("stored progress = %d games %d sparkies, want 1 and 50", st.Progress.TotalGames, st.Progress.Sparkies)
	}
	if st.TotalCompletionTime != 120 {
		t.Errorf("TotalCompletionTime = %d, want 120", st.TotalCompletionTime)
	}
	if want := fixedNow.UTC().Format(time.RFC3339); st.LastRankUpdate != want {
		t.Errorf("LastRankUpdate = %q, want %q", st.LastRankUpdate, want)
	}
}

func TestApplySessionWithoutTimeKeepsRankFields(t *testing.T) {
	store := seededStore(t)
	svc := NewProgressService(store)

	if _, err := svc.ApplySession(context.Background(), "s1", gameSession(models.DifficultyEasy, 3, 30)); err != nil {
		t.Fatalf("ApplySession() error = %v", err)
	}
	st := store.student("s1")
	if st.TotalCompletionTime != 0 || st.LastRankUpdate != "" {
		t.Errorf("rank fields = %d %q, want untouched", st.TotalCompletionTime, st.LastRankUpdate)
	}
}

func TestApplySessionRecomputesOnConflict(t *testing.T) {
	store := seededStore(t)
	svc := NewProgressService(store)

	// Another device finishes a game between our read and our write, once
	var once sync.Once
	store.beforeUpdate = func(userID string) {
		once.Do(func() {
			store.mu.Lock()
			st := store.docs[userID].(*models.Student)
			st.Progress.TotalGames++
			st.Progress.Sparkies += 7
			store.versions[userID]++
			store.mu.Unlock()
		})
	}

	if _, err := svc.ApplySession(context.Background(), "s1", gameSession(models.DifficultyEasy, 2, 20)); err != nil {
		t.Fatalf("ApplySession() error = %v", err)
	}

	st := store.student("s1")
	if st.Progress.TotalGames != 2 || st.Progress.Sparkies != 27 {
		t.Errorf("progress = %d games %d sparkies, want 2 and 27", st.Progress.TotalGames, st.Progress.Sparkies)
	}
	if store.updates != 1 {
		t.Errorf("updates = %d, want 1", store.updates)
	}
}

func TestApplySessionGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := seededStore(t)
	svc := NewProgressService(store, WithMaxConflictRetries(2))

	store.beforeUpdate = func(userID string) {
		store.mu.Lock()
		store.versions[userID]++
		store.mu.Unlock()
	}

	_, err := svc.ApplySession(context.Background(), "s1", gameSession(models.DifficultyEasy, 2, 20))
	if !errors.Is(err, repository.ErrConflictOnWrite) {
		t.Errorf("ApplySession() error = %v, want ErrConflictOnWrite", err)
	}
}

func TestApplySessionErrors(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		down   bool
		want   error
	}{
		{"teacher account", "t1", false, models.ErrNotEligible},
		{"unknown user", "nobody", false, repository.ErrNotFound},
		{"store down", "s1", true, repository.ErrRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore(t)
			store.PutUserDocument(context.Background(), &models.Teacher{ID: "t1", Name: "Ms. Reyes"})
			store.setDown(tt.down)

			_, err := NewProgressService(store).ApplySession(context.Background(), tt.userID, gameSession(models.DifficultyEasy, 2, 20))
			if !errors.Is(err, tt.want) {
				t.Errorf("ApplySession() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplySessionNotifiesCertificateOnce(t *testing.T) {
	store := seededStore(t)
	notifier := &recordingNotifier{}
	cache := openCache(t)
	svc := NewProgressService(store, WithCertificateNotifier(notifier), WithSnapshots(cache))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.ApplySession(ctx, "s1", gameSession(models.DifficultyMedium, 10, 100)); err != nil {
			t.Fatalf("ApplySession() error = %v", err)
		}
	}

	if len(notifier.certs) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.certs))
	}
	if cert := notifier.certs[0]; cert.Difficulty != models.DifficultyMedium || cert.TeacherName != "Ms. Reyes" || cert.ID == "" {
		t.Errorf("certificate = %+v", cert)
	}

	snap, err := cache.LoadUserSnapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadUserSnapshot() error = %v", err)
	}
	st, ok := snap.Account.(*models.Student)
	if !ok || st.Progress.TotalGames != 2 {
		t.Errorf("snapshot = %+v, want student with 2 games", snap.Account)
	}
}

func TestApplySessionIgnoresNotifierFailure(t *testing.T) {
	store := seededStore(t)
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	svc := NewProgressService(store, WithCertificateNotifier(notifier))

	if _, err := svc.ApplySession(context.Background(), "s1", gameSession(models.DifficultyHard, 10, 100)); err != nil {
		t.Errorf("ApplySession() error = %v, want nil", err)
	}
	if len(store.student("s1").Progress.Certificates) != 1 {
		t.Error("certificate was not stored")
	}
}

func TestApplySessionSerializesPerUser(t *testing.T) {
	store := seededStore(t)
	svc := NewProgressService(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ApplySession(context.Background(), "s1", gameSession(models.DifficultyEasy, 2, 10)); err != nil {
				t.Errorf("ApplySession() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.student("s1").Progress.TotalGames; got != 8 {
		t.Errorf("TotalGames = %d, want 8", got)
	}
}
