package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/storage"
)

// BotStore implements storage.BotStore using PostgreSQL.
type BotStore struct {
	pool *Pool
}

// NewBotStore creates a new BotStore.
func NewBotStore(pool *Pool) *BotStore {
	return &BotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BotStore = (*BotStore)(nil)

const selectBotColumns = `
	SELECT
		b.id, b.name, b.wallet_id, b.token_id, b.status, b.strategy,
		b.interval_minutes, b.min_trade_amount, b.max_trade_amount,
		b.slippage_tolerance, b.trade_mode,
		b.last_trade_time, b.next_trade_time,
		b.total_trades, b.successful_trades, b.failed_trades,
		b.total_xrp_spent, b.total_xrp_received,
		b.total_tokens_bought, b.total_tokens_sold, b.net_profit,
		b.last_error, b.last_error_at,
		t.id, t.currency_code, t.issuer_address, t.token_name,
		w.id, w.address, w.seed
	FROM bots b
	JOIN tokens t ON t.id = b.token_id
	JOIN wallets w ON w.id = b.wallet_id
`

// ListEligible returns running bots whose next_trade_time is null or <= now+buffer.
func (s *BotStore) ListEligible(ctx context.Context, now time.Time, buffer time.Duration) (bots []*domain.BotConfig, err error) {
	start := time.Now()
	defer func() { observe("list_eligible", start, err) }()

	query := selectBotColumns + `
		WHERE b.status = 'running'
		  AND (b.next_trade_time IS NULL OR b.next_trade_time <= $1)
		ORDER BY b.id
	`

	rows, err := s.pool.Query(ctx, query, now.Add(buffer))
	if err != nil {
		return nil, fmt.Errorf("query eligible bots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bot: %w", err)
		}
		bots = append(bots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bots: %w", err)
	}

	return bots, nil
}

// GetByID retrieves a bot by its ID. Returns ErrNotFound if not exists.
func (s *BotStore) GetByID(ctx context.Context, botID string) (*domain.BotConfig, error) {
	row := s.pool.QueryRow(ctx, selectBotColumns+` WHERE b.id = $1`, botID)

	b, err := scanBot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bot: %w", err)
	}
	return b, nil
}

// RecordSuccess updates counters and inserts the trade in one transaction.
// Counters are incremented by delta in SQL so overlapping passes cannot lose updates.
func (s *BotStore) RecordSuccess(ctx context.Context, botID string, delta domain.CounterDelta, trade *domain.TradeRecord, now, next time.Time) (err error) {
	start := time.Now()
	defer func() { observe("record_success", start, err) }()

	if trade == nil || trade.ID == "" || trade.BotID != botID {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE bots SET
			total_trades        = total_trades + 1,
			successful_trades   = successful_trades + 1,
			total_xrp_spent     = total_xrp_spent + $2,
			total_xrp_received  = total_xrp_received + $3,
			total_tokens_bought = total_tokens_bought + $4,
			total_tokens_sold   = total_tokens_sold + $5,
			net_profit          = (total_xrp_received + $3) - (total_xrp_spent + $2),
			last_trade_time     = $6,
			next_trade_time     = $7,
			last_error          = NULL,
			last_error_at       = NULL,
			updated_at          = now()
		WHERE id = $1
	`, botID, delta.XRPSpent, delta.XRPReceived, delta.TokensBought, delta.TokensSold, now, next)
	if err != nil {
		return fmt.Errorf("update bot counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bot_trades (
			id, bot_id, trade_type, amount, xrp_amount, price, tx_hash, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, trade.ID, trade.BotID, string(trade.Direction), trade.TokenAmount, trade.XRPAmount,
		trade.Price, trade.TxHash, trade.Status, trade.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RecordFailure writes the error fields and applies update in a single statement.
func (s *BotStore) RecordFailure(ctx context.Context, botID string, update storage.FailureUpdate) (err error) {
	start := time.Now()
	defer func() { observe("record_failure", start, err) }()

	tag, err := s.pool.Exec(ctx, `
		UPDATE bots SET
			last_error    = $2,
			last_error_at = $3,
			status        = CASE WHEN $4::boolean THEN 'paused' ELSE status END,
			total_trades  = total_trades + CASE WHEN $5::boolean THEN 1 ELSE 0 END,
			failed_trades = failed_trades + CASE WHEN $5::boolean THEN 1 ELSE 0 END,
			updated_at    = now()
		WHERE id = $1
	`, botID, update.Message, update.At, update.Pause, update.CountFailure)
	if err != nil {
		return fmt.Errorf("update bot failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanBot scans one row of selectBotColumns.
func scanBot(row pgx.Row) (*domain.BotConfig, error) {
	var (
		b         domain.BotConfig
		status    string
		strategy  string
		tradeMode *int
	)

	err := row.Scan(
		&b.ID, &b.Name, &b.WalletID, &b.TokenID, &status, &strategy,
		&b.IntervalMinutes, &b.MinTradeXRP, &b.MaxTradeXRP,
		&b.SlippagePct, &tradeMode,
		&b.LastTradeTime, &b.NextTradeTime,
		&b.TotalTrades, &b.SuccessfulTrades, &b.FailedTrades,
		&b.TotalXRPSpent, &b.TotalXRPReceived,
		&b.TotalTokensBought, &b.TotalTokensSold, &b.NetProfitXRP,
		&b.LastError, &b.LastErrorAt,
		&b.Token.ID, &b.Token.Currency, &b.Token.Issuer, &b.Token.Name,
		&b.Wallet.ID, &b.Wallet.Address, &b.Wallet.Seed,
	)
	if err != nil {
		return nil, err
	}

	b.Status = domain.BotStatus(status)
	b.Strategy = domain.Strategy(strategy)
	b.TradeModeBias = domain.DefaultTradeModeBias
	if tradeMode != nil {
		b.TradeModeBias = *tradeMode
	}
	return &b, nil
}
