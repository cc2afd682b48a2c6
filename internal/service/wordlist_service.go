package service

import (
	"context"
	"log"

	"wordhero/internal/models"
	"wordhero/internal/repository"
)

// WordCache is the part of the local cache that mirrors the word bank
type WordCache interface {
	SaveWordList(ctx context.Context, words []models.Word, force bool) (bool, error)
	LoadWordList(ctx context.Context) ([]models.Word, error)
}

// WordList is a loaded word list. Offline is set when it came from the local cache.
type WordList struct {
	Words   []models.Word
	Offline bool
}

// WordListService loads the word bank, falling back to the cached copy while offline
type WordListService struct {
	store   repository.RemoteStore
	cache   WordCache
	monitor Connectivity
}

// NewWordListService creates a new word list service
func NewWordListService(store repository.RemoteStore, cache WordCache, monitor Connectivity) *WordListService {
	return &WordListService{store: store, cache: cache, monitor: monitor}
}

// LoadWords returns the words visible to a grade and section (both empty for teachers and admins).
// When online the full bank is fetched and mirrored into the cache; otherwise, or if the fetch
// fails, the cached list is used. An empty list means nothing was ever cached.
func (s *WordListService) LoadWords(ctx context.Context, gradeLevel, section string) (*WordList, error) {
	if s.monitor.IsOnline() {
		words, err := s.store.QueryWords(ctx, repository.WordFilter{})
		if err == nil {
			if _, err := s.cache.SaveWordList(ctx, words, false); err != nil {
				log.Printf("[words] failed to cache word list: %v", err)
			}
			return &WordList{Words: models.FilterForStudent(words, gradeLevel, section)}, nil
		}
		log.Printf("[words] remote fetch failed, using cached list: %v", err)
	}

	words, err := s.cache.LoadWordList(ctx)
	if err != nil {
		log.Printf("[words] failed to read cached word list: %v", err)
		return &WordList{Words: []models.Word{}, Offline: true}, nil
	}
	return &WordList{Words: models.FilterForStudent(words, gradeLevel, section), Offline: true}, nil
}

// RefreshWords mirrors the remote word bank into the cache
func (s *WordListService) RefreshWords(ctx context.Context) error {
	words, err := s.store.QueryWords(ctx, repository.WordFilter{})
	if err != nil {
		return err
	}
	changed, err := s.cache.SaveWordList(ctx, words, false)
	if err != nil {
		return err
	}
	if changed {
		log.Printf("[words] cached %d words", len(words))
	}
	return nil
}
