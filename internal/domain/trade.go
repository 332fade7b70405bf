package domain

import "time"

// Direction is the side of a trade relative to the token.
type Direction string

// Direction constants
const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// TradeRecord is an immutable log entry of a validated trade.
// Corresponds to trade_records table in PostgreSQL.
type TradeRecord struct {
	ID          string    // deterministic hash of bot_id and tx_hash
	BotID       string    // FK to bots
	Direction   Direction // BUY | SELL
	TokenAmount float64   // tokens bought or sold (estimated at decision time)
	XRPAmount   float64   // XRP spent or received (decision-time size)
	Price       float64   // pool price in XRP per token at decision time
	TxHash      string    // ledger transaction hash
	Status      string    // always TradeStatusCompleted
	CreatedAt   time.Time
}

// TradeStatusCompleted marks a trade whose transaction validated with tesSUCCESS.
const TradeStatusCompleted = "completed"

// CounterDelta is the change a validated trade applies to its bot's counters.
type CounterDelta struct {
	XRPSpent     float64
	XRPReceived  float64
	TokensBought float64
	TokensSold   float64
}

// DeltaFor returns the counter change for t.
func DeltaFor(t *TradeRecord) CounterDelta {
	if t.Direction == DirectionBuy {
		return CounterDelta{XRPSpent: t.XRPAmount, TokensBought: t.TokenAmount}
	}
	return CounterDelta{XRPReceived: t.XRPAmount, TokensSold: t.TokenAmount}
}

// Apply adds the delta and one successful trade to b, recomputing net profit.
func (d CounterDelta) Apply(b *BotConfig) {
	b.TotalTrades++
	b.SuccessfulTrades++
	b.TotalXRPSpent += d.XRPSpent
	b.TotalXRPReceived += d.XRPReceived
	b.TotalTokensBought += d.TokensBought
	b.TotalTokensSold += d.TokensSold
	b.NetProfitXRP = b.TotalXRPReceived - b.TotalXRPSpent
}
