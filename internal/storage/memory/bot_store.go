package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/storage"
)

// BotStore is an in-memory implementation of storage.BotStore.
// Successful trades are written to the attached TradeRecordStore under the
// same lock that updates the counters.
type BotStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.BotConfig // keyed by bot id
	trades *TradeRecordStore
}

// NewBotStore creates a new in-memory bot store writing trades to trades.
func NewBotStore(trades *TradeRecordStore) *BotStore {
	if trades == nil {
		trades = NewTradeRecordStore()
	}
	return &BotStore{
		data:   make(map[string]*domain.BotConfig),
		trades: trades,
	}
}

// Put creates or replaces a bot.
func (s *BotStore) Put(b *domain.BotConfig) error {
	if b == nil || b.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[b.ID] = cloneBot(b)
	return nil
}

// ListEligible returns running bots due at now+buffer, ordered by id.
func (s *BotStore) ListEligible(_ context.Context, now time.Time, buffer time.Duration) ([]*domain.BotConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BotConfig
	for _, b := range s.data {
		if b.IsEligible(now, buffer) {
			result = append(result, cloneBot(b))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetByID retrieves a bot by its ID. Returns ErrNotFound if not exists.
func (s *BotStore) GetByID(_ context.Context, botID string) (*domain.BotConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[botID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneBot(b), nil
}

// RecordSuccess inserts the trade and applies counters as one unit.
func (s *BotStore) RecordSuccess(ctx context.Context, botID string, delta domain.CounterDelta, trade *domain.TradeRecord, now, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.data[botID]
	if !exists {
		return storage.ErrNotFound
	}
	if err := s.trades.Insert(ctx, trade); err != nil {
		return err
	}

	delta.Apply(b)
	b.LastTradeTime = &now
	b.NextTradeTime = &next
	b.LastError = nil
	b.LastErrorAt = nil
	return nil
}

// RecordFailure writes the error fields and applies update.
func (s *BotStore) RecordFailure(_ context.Context, botID string, update storage.FailureUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.data[botID]
	if !exists {
		return storage.ErrNotFound
	}

	msg := update.Message
	at := update.At
	b.LastError = &msg
	b.LastErrorAt = &at
	if update.Pause {
		b.Status = domain.BotStatusPaused
	}
	if update.CountFailure {
		b.TotalTrades++
		b.FailedTrades++
	}
	return nil
}

// cloneBot copies b including its pointer fields.
func cloneBot(b *domain.BotConfig) *domain.BotConfig {
	c := *b
	c.LastTradeTime = cloneTime(b.LastTradeTime)
	c.NextTradeTime = cloneTime(b.NextTradeTime)
	c.LastErrorAt = cloneTime(b.LastErrorAt)
	if b.LastError != nil {
		msg := *b.LastError
		c.LastError = &msg
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var _ storage.BotStore = (*BotStore)(nil)
