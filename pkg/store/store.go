package store

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"coin-swap/pkg/types"
)

// Store owns the swap collection. All changes go through Dispatch.
type Store struct {
	mu        sync.RWMutex
	saveMu    sync.Mutex // orders snapshots with their saves
	state     Collection
	persister CodePersister
	logger    *logrus.Entry
}

// NewStore creates an empty store. persister may be nil for an in-memory session.
func NewStore(persister CodePersister, logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{
		state:     Collection{},
		persister: persister,
		logger:    logger.WithField("component", "store"),
	}
}

// Restore loads persisted charge codes and adds a stub for each unknown one
func (s *Store) Restore() error {
	if s.persister == nil {
		return nil
	}

	codes, err := s.persister.Load()
	if err != nil {
		return fmt.Errorf("failed to restore charge codes: %w", err)
	}

	s.logger.WithField("codes", len(codes)).Debug("Restoring charge codes")
	s.Dispatch(BulkRestore{ChargeCodes: codes})
	return nil
}

// Dispatch applies ev and persists the code set when it changed
func (s *Store) Dispatch(ev Event) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	prev := s.state
	s.state = Apply(s.state, ev)
	changed := !sameCodes(prev, s.state)
	codes := s.state.Codes()
	s.mu.Unlock()

	if !changed || s.persister == nil {
		return
	}
	if _, restoring := ev.(BulkRestore); restoring {
		return
	}
	if err := s.persister.Save(codes); err != nil {
		// The in-memory collection stays authoritative for this session.
		s.logger.WithError(err).Warn("Failed to persist charge codes")
	}
}

// Records returns a copy of the collection
func (s *Store) Records() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Collection, len(s.state))
	for i, r := range s.state {
		out[i] = r.Clone()
	}
	return out
}

// Get returns the record with the given charge code
func (s *Store) Get(chargeCode string) (types.SwapRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.state.Find(chargeCode)
	if i < 0 {
		return types.SwapRecord{}, false
	}
	return s.state[i].Clone(), true
}

// Codes returns the known charge codes, oldest first
func (s *Store) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Codes()
}

// Count returns the number of records
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state)
}

func sameCodes(a, b Collection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ChargeCode != b[i].ChargeCode {
			return false
		}
	}
	return true
}
