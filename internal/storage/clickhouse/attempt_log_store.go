package clickhouse

import (
	"context"
	"fmt"
	"time"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/storage"
)

// AttemptLogStore implements storage.AttemptLogStore using ClickHouse.
type AttemptLogStore struct {
	conn *Conn
}

// NewAttemptLogStore creates a new AttemptLogStore.
func NewAttemptLogStore(conn *Conn) *AttemptLogStore {
	return &AttemptLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AttemptLogStore = (*AttemptLogStore)(nil)

// Append adds one attempt row.
func (s *AttemptLogStore) Append(ctx context.Context, runID string, o *domain.AttemptOutcome) (err error) {
	if runID == "" || o == nil || o.BotID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("append_attempt", start, err) }()

	err = s.conn.Exec(ctx, `
		INSERT INTO bot_attempts (
			run_id, bot_id, bot_name, direction, success, skipped,
			error_kind, error, tx_hash, xrp_amount, token_amount, price,
			paused, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, o.BotID, o.BotName, string(o.Direction), boolToUInt8(o.Success), boolToUInt8(o.Skipped),
		o.ErrorKind, o.Error, o.TxHash, o.XRPAmount, o.TokenAmount, o.Price,
		boolToUInt8(o.Paused), o.StartedAt.UTC(), o.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// GetByBotID returns up to limit most recent attempts, newest first.
// A limit <= 0 returns every attempt.
func (s *AttemptLogStore) GetByBotID(ctx context.Context, botID string, limit int) (_ []*domain.AttemptOutcome, err error) {
	start := time.Now()
	defer func() { observe("get_attempts", start, err) }()

	query := `
		SELECT bot_id, bot_name, direction, success, skipped,
		       error_kind, error, tx_hash, xrp_amount, token_amount, price,
		       paused, started_at, duration_ms
		FROM bot_attempts
		WHERE bot_id = ?
		ORDER BY started_at DESC
	`
	args := []interface{}{botID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var result []*domain.AttemptOutcome
	for rows.Next() {
		var (
			o                        domain.AttemptOutcome
			direction                string
			success, skipped, paused uint8
		)
		if err := rows.Scan(
			&o.BotID, &o.BotName, &direction, &success, &skipped,
			&o.ErrorKind, &o.Error, &o.TxHash, &o.XRPAmount, &o.TokenAmount, &o.Price,
			&paused, &o.StartedAt, &o.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		o.Direction = domain.Direction(direction)
		o.Success = success == 1
		o.Skipped = skipped == 1
		o.Paused = paused == 1
		result = append(result, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return result, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
