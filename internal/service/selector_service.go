package service

import (
	"context"
	"log"
	"math/rand"
	"sort"

	"wordhero/internal/models"
)

// UsedWordLedger is the part of the local cache the selector reads and writes
type UsedWordLedger interface {
	GetUsedWords(ctx context.Context, userID string) ([]models.UsedWord, error)
	MarkWordsUsed(ctx context.Context, userID string, wordIDs []string) error
	ResetUsedWordsFor(ctx context.Context, userID string, wordIDs []string) error
}

// Selection is the set of words chosen for a game
type Selection struct {
	Words        []models.Word
	FreshCount   int  // words the student had never been served
	PoolWasReset bool // every word had been served, so the ledger restarted
	Degraded     bool // the ledger could not be read or written
}

// WordSelector picks the words of a game, preferring words the student has not seen.
type WordSelector struct {
	ledger  UsedWordLedger
	shuffle func(n int, swap func(i, j int))
}

// NewWordSelector creates a selector with a uniform random shuffle
func NewWordSelector(ledger UsedWordLedger) *WordSelector {
	return &WordSelector{ledger: ledger, shuffle: rand.Shuffle}
}

// Select returns min(count, available) words from pool, narrowed to difficulty when it is not nil.
// Words that were never served come first. When every available word has been served, the
// ledger for those words is cleared and the whole pool is drawn from again. The returned words
// are recorded as served.
func (s *WordSelector) Select(ctx context.Context, userID string, pool []models.Word, count int, difficulty *models.Difficulty) (*Selection, error) {
	sel := &Selection{Words: []models.Word{}}

	available := pool
	if difficulty != nil {
		available = models.FilterByDifficulty(pool, *difficulty)
	}
	if len(available) == 0 || count <= 0 {
		return sel, nil
	}

	lastUsed := make(map[string]int64)
	used, err := s.ledger.GetUsedWords(ctx, userID)
	if err != nil {
		log.Printf("[selector] failed to read used words for %s, treating all words as fresh: %v", userID, err)
		sel.Degraded = true
	}
	for _, u := range used {
		if t, ok := lastUsed[u.WordID]; !ok || u.UsedAt > t {
			lastUsed[u.WordID] = u.UsedAt
		}
	}

	var fresh, seen []models.Word
	for _, w := range available {
		if _, ok := lastUsed[w.ID]; ok {
			seen = append(seen, w)
		} else {
			fresh = append(fresh, w)
		}
	}
	sel.FreshCount = len(fresh)

	switch {
	case len(fresh) >= count:
		sel.Words = s.take(fresh, count)

	case len(fresh) == 0:
		// Pool exhausted: start over with everything
		if err := s.ledger.ResetUsedWordsFor(ctx, userID, wordIDs(available)); err != nil {
			log.Printf("[selector] failed to reset used words for %s: %v", userID, err)
			sel.Degraded = true
		}
		sel.PoolWasReset = true
		sel.Words = s.take(available, count)

	default:
		// Top up with the least recently served words, ties broken randomly
		seen = s.shuffled(seen)
		sort.SliceStable(seen, func(i, j int) bool {
			return lastUsed[seen[i].ID] < lastUsed[seen[j].ID]
		})
		need := count - len(fresh)
		if need > len(seen) {
			need = len(seen)
		}
		mixed := append(s.shuffled(fresh), seen[:need]...)
		sel.Words = s.shuffled(mixed)
	}

	if err := s.ledger.MarkWordsUsed(ctx, userID, wordIDs(sel.Words)); err != nil {
		log.Printf("[selector] failed to record served words for %s: %v", userID, err)
		sel.Degraded = true
	}
	return sel, nil
}

// take returns the first n words of a shuffled copy
func (s *WordSelector) take(words []models.Word, n int) []models.Word {
	out := s.shuffled(words)
	if n < len(out) {
		out = out[:n]
	}
	return out
}

func (s *WordSelector) shuffled(words []models.Word) []models.Word {
	out := append([]models.Word(nil), words...)
	s.shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func wordIDs(words []models.Word) []string {
	ids := make([]string, len(words))
	for i, w := range words {
		ids[i] = w.ID
	}
	return ids
}
