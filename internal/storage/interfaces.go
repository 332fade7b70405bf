package storage

import (
	"context"
	"time"

	"xrpl-amm-bot/internal/domain"
)

// FailureUpdate describes how a failed attempt is written back to a bot row.
type FailureUpdate struct {
	Message string    // stored in last_error
	At      time.Time // stored in last_error_at
	// Pause sets status to paused.
	Pause bool
	// CountFailure increments total_trades and failed_trades.
	CountFailure bool
}

// BotStore provides access to bots joined with their token and wallet rows.
type BotStore interface {
	// ListEligible returns running bots whose next_trade_time is null or <= now+buffer.
	ListEligible(ctx context.Context, now time.Time, buffer time.Duration) ([]*domain.BotConfig, error)

	// GetByID retrieves a bot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, botID string) (*domain.BotConfig, error)

	// RecordSuccess inserts trade and applies delta, last/next trade times and
	// clears error fields as one unit. Counters are incremented in place, never
	// read-modify-written. Returns ErrNotFound if the bot does not exist and
	// ErrDuplicateKey if the trade was already recorded.
	RecordSuccess(ctx context.Context, botID string, delta domain.CounterDelta, trade *domain.TradeRecord, now, next time.Time) error

	// RecordFailure writes the error fields and applies update.
	// Returns ErrNotFound if the bot does not exist.
	RecordFailure(ctx context.Context, botID string, update FailureUpdate) error
}

// TradeRecordStore provides read access to trade_records.
// Rows are written by BotStore.RecordSuccess.
type TradeRecordStore interface {
	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByBotID retrieves all trades for a bot, ordered by created_at ASC.
	GetByBotID(ctx context.Context, botID string) ([]*domain.TradeRecord, error)
}

// AttemptLogStore is an append-only log of every bot attempt.
type AttemptLogStore interface {
	// Append adds one attempt of pass runID.
	Append(ctx context.Context, runID string, o *domain.AttemptOutcome) error

	// GetByBotID returns up to limit most recent attempts for a bot, newest first.
	GetByBotID(ctx context.Context, botID string, limit int) ([]*domain.AttemptOutcome, error)
}
