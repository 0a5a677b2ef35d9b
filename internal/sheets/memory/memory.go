package memory

import (
	"context"
	"errors"
	"sync"

	"housebudget/internal/core"
	"housebudget/internal/sheets"
)

// Store keeps the latest snapshot per person in memory. It backs the
// export worker in development and in tests.
type Store struct {
	mu     sync.Mutex
	snaps  map[string]sheets.Snapshot
	writes int
}

var _ sheets.SnapshotWriter = (*Store)(nil)

func New() *Store {
	return &Store{snaps: make(map[string]sheets.Snapshot)}
}

// WriteSnapshot replaces the stored snapshot for the person.
func (s *Store) WriteSnapshot(_ context.Context, snap sheets.Snapshot) error {
	if snap.Person == "" {
		return errors.New("snapshot has no person")
	}
	records := append([]core.Outgoing(nil), snap.Records...)
	snap.Records = records

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.Person] = snap
	s.writes++
	return nil
}

// Snapshot returns the last snapshot written for person.
func (s *Store) Snapshot(person string) (sheets.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[person]
	return snap, ok
}

// Writes counts successful WriteSnapshot calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
