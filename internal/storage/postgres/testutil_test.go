package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/storage/migrations"
)

// setupTestDB creates a PostgreSQL container for testing and applies migrations.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool), "failed to apply migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// insertBot writes the token, wallet and bot rows of b.
func insertBot(t *testing.T, ctx context.Context, pool *Pool, b *domain.BotConfig) {
	t.Helper()

	_, err := pool.Exec(ctx, `
		INSERT INTO tokens (id, currency_code, issuer_address, token_name)
		VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING
	`, b.Token.ID, b.Token.Currency, b.Token.Issuer, b.Token.Name)
	require.NoError(t, err, "insert token")

	_, err = pool.Exec(ctx, `
		INSERT INTO wallets (id, address, seed)
		VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING
	`, b.Wallet.ID, b.Wallet.Address, b.Wallet.Seed)
	require.NoError(t, err, "insert wallet")

	var tradeMode *int
	if b.TradeModeBias != domain.DefaultTradeModeBias {
		tradeMode = &b.TradeModeBias
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO bots (
			id, name, wallet_id, token_id, status, strategy, interval_minutes,
			min_trade_amount, max_trade_amount, slippage_tolerance, trade_mode,
			next_trade_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.ID, b.Name, b.Wallet.ID, b.Token.ID, string(b.Status), string(b.Strategy), b.IntervalMinutes,
		b.MinTradeXRP, b.MaxTradeXRP, b.SlippagePct, tradeMode, b.NextTradeTime)
	require.NoError(t, err, "insert bot")
}

// createTestBot returns a bot joined with a token and wallet named after id.
func createTestBot(id string, status domain.BotStatus, next *time.Time) *domain.BotConfig {
	return &domain.BotConfig{
		ID:              id,
		Name:            "bot " + id,
		WalletID:        "wallet-" + id,
		TokenID:         "token-" + id,
		Status:          status,
		Strategy:        domain.StrategyAccumulate,
		IntervalMinutes: 10,
		MinTradeXRP:     1,
		MaxTradeXRP:     2,
		SlippagePct:     5,
		TradeModeBias:   domain.DefaultTradeModeBias,
		NextTradeTime:   next,
		Token: domain.TargetToken{
			ID:       "token-" + id,
			Currency: "USD",
			Issuer:   "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
			Name:     "US Dollar",
		},
		Wallet: domain.SigningWallet{
			ID:      "wallet-" + id,
			Address: "rWallet" + id,
			Seed:    "sEdSeed" + id,
		},
	}
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
