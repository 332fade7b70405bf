package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/storage"
)

func TestTradeRecordStore_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertBot(t, ctx, pool, createTestBot("a", domain.BotStatusRunning, nil))
	bots := NewBotStore(pool)
	store := NewTradeRecordStore(pool)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	trade := &domain.TradeRecord{
		ID: "trade-001", BotID: "a", Direction: domain.DirectionSell, TokenAmount: 4000,
		XRPAmount: 2, Price: 0.0005, TxHash: "ABCDEF", Status: domain.TradeStatusCompleted, CreatedAt: now,
	}
	require.NoError(t, bots.RecordSuccess(ctx, "a", domain.DeltaFor(trade), trade, now, now.Add(time.Minute)))

	got, err := store.GetByID(ctx, "trade-001")
	require.NoError(t, err)
	assert.Equal(t, "a", got.BotID)
	assert.Equal(t, domain.DirectionSell, got.Direction)
	assert.InDelta(t, 4000.0, got.TokenAmount, 1e-9)
	assert.Equal(t, "ABCDEF", got.TxHash)
	assert.True(t, got.CreatedAt.Equal(now))

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	empty, err := store.GetByBotID(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
