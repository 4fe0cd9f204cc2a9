package queue

import (
	"errors"
	"sync"

	"github.com/Aitbek01/arena-gauntlet/models"
)

var (
	ErrAlreadyQueued = errors.New("competitor is already queued")
	ErrNotQueued     = errors.New("competitor is not queued")
)

// Store is the ordered membership set of waiting competitors. Entries live
// in a dense slice; index maps competitor id to position+1, with 0 meaning
// "absent", so membership checks and removals are O(1).
type Store struct {
	mu      sync.RWMutex
	entries []models.QueueEntry
	index   map[int64]int
}

func NewStore() *Store {
	return &Store{
		index: make(map[int64]int),
	}
}

func (s *Store) Add(entry models.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index[entry.CompetitorID] != 0 {
		return ErrAlreadyQueued
	}
	s.entries = append(s.entries, entry)
	s.index[entry.CompetitorID] = len(s.entries)
	return nil
}

// Remove deletes a competitor by swapping the last entry into its slot and
// shrinking the slice. The displaced entry's stored index is rewritten
// inside the same critical section, so the index always matches the true
// position.
func (s *Store) Remove(competitorID int64) (models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.index[competitorID]
	if pos == 0 {
		return models.QueueEntry{}, ErrNotQueued
	}
	i := pos - 1
	removed := s.entries[i]

	last := len(s.entries) - 1
	if i != last {
		s.entries[i] = s.entries[last]
		s.index[s.entries[i].CompetitorID] = pos
	}
	s.entries = s.entries[:last]
	delete(s.index, competitorID)
	return removed, nil
}

func (s *Store) Contains(competitorID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index[competitorID] != 0
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// At returns the entry at the given position. Positions are dense but
// order-churned by swap-and-pop removals.
func (s *Store) At(i int) (models.QueueEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.entries) {
		return models.QueueEntry{}, false
	}
	return s.entries[i], true
}

// Snapshot returns a copy of the current entries in position order.
func (s *Store) Snapshot() []models.QueueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.QueueEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
