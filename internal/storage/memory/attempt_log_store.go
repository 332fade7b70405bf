package memory

import (
	"context"
	"sync"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/storage"
)

// AttemptLogStore is an in-memory implementation of storage.AttemptLogStore.
type AttemptLogStore struct {
	mu      sync.RWMutex
	entries []attemptEntry
}

type attemptEntry struct {
	runID   string
	outcome domain.AttemptOutcome
}

// NewAttemptLogStore creates a new in-memory attempt log.
func NewAttemptLogStore() *AttemptLogStore {
	return &AttemptLogStore{}
}

// Append adds one attempt of pass runID.
func (s *AttemptLogStore) Append(_ context.Context, runID string, o *domain.AttemptOutcome) error {
	if o == nil || runID == "" || o.BotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, attemptEntry{runID: runID, outcome: *o})
	return nil
}

// GetByBotID returns up to limit most recent attempts for a bot, newest first.
// A non-positive limit returns all of them.
func (s *AttemptLogStore) GetByBotID(_ context.Context, botID string, limit int) ([]*domain.AttemptOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AttemptOutcome
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].outcome.BotID != botID {
			continue
		}
		o := s.entries[i].outcome
		result = append(result, &o)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// RunIDs returns the distinct run ids in append order.
func (s *AttemptLogStore) RunIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, e := range s.entries {
		if _, ok := seen[e.runID]; ok {
			continue
		}
		seen[e.runID] = struct{}{}
		ids = append(ids, e.runID)
	}
	return ids
}

var _ storage.AttemptLogStore = (*AttemptLogStore)(nil)
