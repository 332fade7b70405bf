package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const selectTradeColumns = `
	SELECT id, bot_id, trade_type, amount, xrp_amount, price, tx_hash, status, created_at
	FROM bot_trades
`

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	row := s.pool.QueryRow(ctx, selectTradeColumns+` WHERE id = $1`, tradeID)

	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record: %w", err)
	}
	return t, nil
}

// GetByBotID retrieves all trades for a bot, ordered by created_at ASC.
func (s *TradeRecordStore) GetByBotID(ctx context.Context, botID string) ([]*domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, selectTradeColumns+` WHERE bot_id = $1 ORDER BY created_at ASC, id ASC`, botID)
	if err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade records: %w", err)
	}
	return result, nil
}

func scanTrade(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		t         domain.TradeRecord
		direction string
	)
	err := row.Scan(&t.ID, &t.BotID, &direction, &t.TokenAmount, &t.XRPAmount,
		&t.Price, &t.TxHash, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Direction = domain.Direction(direction)
	return &t, nil
}
