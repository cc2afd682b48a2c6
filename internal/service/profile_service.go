package service

import (
	"context"
	"fmt"
	"log"

	"wordhero/internal/models"
	"wordhero/internal/repository"
)

// SnapshotStore reads and writes cached accounts
type SnapshotStore interface {
	SaveUserSnapshot(ctx context.Context, userID string, account models.Account) error
	LoadUserSnapshot(ctx context.Context, userID string) (*models.UserSnapshot, error)
}

// Profile is a loaded account. Offline is set when it came from the local snapshot.
type Profile struct {
	Account models.Account
	Offline bool
}

// ProfileService loads the signed-in account, keeping a snapshot for offline use
type ProfileService struct {
	store     repository.RemoteStore
	snapshots SnapshotStore
	monitor   Connectivity
}

// NewProfileService creates a new profile service
func NewProfileService(store repository.RemoteStore, snapshots SnapshotStore, monitor Connectivity) *ProfileService {
	return &ProfileService{store: store, snapshots: snapshots, monitor: monitor}
}

// Load returns the remote account when reachable and refreshes the snapshot.
// Otherwise the last snapshot is returned, or ErrNotFound when there is none.
func (s *ProfileService) Load(ctx context.Context, userID string) (*Profile, error) {
	if s.monitor.IsOnline() {
		doc, err := s.store.GetUserDocument(ctx, userID)
		if err == nil {
			if err := s.snapshots.SaveUserSnapshot(ctx, userID, doc.Account); err != nil {
				log.Printf("[cache] failed to save snapshot of %s: %v", userID, err)
			}
			return &Profile{Account: doc.Account}, nil
		}
		if repository.IsNotFound(err) {
			return nil, err
		}
		log.Printf("[cache] remote read of %s failed, using snapshot: %v", userID, err)
	}

	snap, err := s.snapshots.LoadUserSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("no cached account for %s: %w", userID, err)
	}
	return &Profile{Account: snap.Account, Offline: true}, nil
}

// StudentScope returns the grade and section used to filter words. Both are empty for non-students.
func (p *Profile) StudentScope() (gradeLevel, section string) {
	if st, ok := p.Account.(*models.Student); ok {
		return st.GradeLevel, st.Section
	}
	return "", ""
}
