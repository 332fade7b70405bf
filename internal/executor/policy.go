// Package executor runs trading bots against XRPL AMM pools.
//
// A pass lists the bots due for a trade and attempts each one in turn:
// connect → fetch pool → fetch balance → decide → validate → submit → record → close.
// A failing bot never stops the pass; only failing to list bots does.
package executor

import (
	"math/rand"
	"sync"

	"xrpl-amm-bot/internal/domain"
)

// RandSource yields uniform values in [0,1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// Buy weights, in percent, of the fixed strategies.
const (
	accumulateBuyPct = 75
	distributeBuyPct = 25
)

// DecideDirection draws r in [0,100) and returns BUY when r falls under the
// strategy's buy weight: 75 for accumulate, 25 for distribute, and the bot's
// trade-mode bias otherwise. Holdings are not consulted; validation rejects
// trades the wallet cannot cover.
func DecideDirection(rng RandSource, b *domain.BotConfig) domain.Direction {
	r := rng.Float64() * 100

	var buyPct float64
	switch b.Strategy {
	case domain.StrategyAccumulate:
		buyPct = accumulateBuyPct
	case domain.StrategyDistribute:
		buyPct = distributeBuyPct
	default:
		buyPct = float64(b.BuyBias())
	}

	if r < buyPct {
		return domain.DirectionBuy
	}
	return domain.DirectionSell
}

// PickTradeSize draws a trade size uniformly from [min, max].
func PickTradeSize(rng RandSource, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rng.Float64()*(max-min)
}

// lockedRand serializes access to a *rand.Rand, which is not safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRand returns a RandSource seeded with seed that is safe for concurrent use.
func NewRand(seed int64) RandSource {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}
