package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a bot row cannot be traded as loaded.
var ErrInvalidConfig = errors.New("invalid bot config")

// BotStatus is the lifecycle state of a bot.
type BotStatus string

// Bot status constants
const (
	BotStatusRunning BotStatus = "running"
	BotStatusPaused  BotStatus = "paused"
	BotStatusStopped BotStatus = "stopped"
)

// Strategy selects the direction bias of a bot.
type Strategy string

// Strategy constants
const (
	StrategyAccumulate Strategy = "accumulate"
	StrategyDistribute Strategy = "distribute"
	StrategyNeutral    Strategy = "neutral"
	StrategyCustom     Strategy = "custom"
)

// DefaultTradeModeBias is the buy weight used when trade_mode is unset.
const DefaultTradeModeBias = 50

// BotConfig represents a trading strategy instance joined with its token and wallet.
// Corresponds to the bots table (plus tokens and wallets rows) in PostgreSQL.
type BotConfig struct {
	ID       string
	Name     string
	WalletID string
	TokenID  string

	Status          BotStatus
	Strategy        Strategy
	IntervalMinutes int     // minutes between trades
	MinTradeXRP     float64 // minimum trade size (XRP)
	MaxTradeXRP     float64 // maximum trade size (XRP)
	SlippagePct     float64 // slippage tolerance, percent
	TradeModeBias   int     // 0-100, buy weight for neutral/custom strategies

	LastTradeTime *time.Time
	NextTradeTime *time.Time

	// Counters
	TotalTrades       int64
	SuccessfulTrades  int64
	FailedTrades      int64
	TotalXRPSpent     float64
	TotalXRPReceived  float64
	TotalTokensBought float64
	TotalTokensSold   float64
	NetProfitXRP      float64

	LastError   *string
	LastErrorAt *time.Time

	Token  TargetToken
	Wallet SigningWallet
}

// IsEligible reports whether the bot is due at now, allowing buffer of forward slack.
func (b *BotConfig) IsEligible(now time.Time, buffer time.Duration) bool {
	if b.Status != BotStatusRunning {
		return false
	}
	if b.NextTradeTime == nil {
		return true
	}
	return !b.NextTradeTime.After(now.Add(buffer))
}

// BuyBias returns the configured buy weight clamped to [0,100].
// Out of range values fall back to DefaultTradeModeBias.
func (b *BotConfig) BuyBias() int {
	if b.TradeModeBias < 0 || b.TradeModeBias > 100 {
		return DefaultTradeModeBias
	}
	return b.TradeModeBias
}

// Interval returns the trade interval as a duration.
func (b *BotConfig) Interval() time.Duration {
	return time.Duration(b.IntervalMinutes) * time.Minute
}

// Validate checks every field an attempt depends on before any network call.
func (b *BotConfig) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: missing bot id", ErrInvalidConfig)
	}
	if b.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidConfig, b.IntervalMinutes)
	}
	if b.MinTradeXRP <= 0 {
		return fmt.Errorf("%w: min trade amount must be positive, got %v", ErrInvalidConfig, b.MinTradeXRP)
	}
	if b.MaxTradeXRP < b.MinTradeXRP {
		return fmt.Errorf("%w: max trade amount %v below min %v", ErrInvalidConfig, b.MaxTradeXRP, b.MinTradeXRP)
	}
	if b.SlippagePct < 0 {
		return fmt.Errorf("%w: negative slippage %v", ErrInvalidConfig, b.SlippagePct)
	}
	if err := b.Token.Validate(); err != nil {
		return err
	}
	return b.Wallet.Validate()
}
