package xrpl

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"
)

// SubmitOptions configures a Submitter.
type SubmitOptions struct {
	// Timeout bounds SubmitAndWait from autofill to validation. Default 60s.
	Timeout time.Duration
	// PollInterval is the delay between tx lookups. Default 1s.
	PollInterval time.Duration
	// LedgerOffset is added to the current ledger for LastLedgerSequence. Default 20.
	LedgerOffset uint32
	// MaxFeeDrops caps the autofilled fee. Default 2000.
	MaxFeeDrops int64
	Logger      *log.Logger
}

// DefaultSubmitOptions returns default submit options.
func DefaultSubmitOptions() SubmitOptions {
	return SubmitOptions{
		Timeout:      60 * time.Second,
		PollInterval: time.Second,
		LedgerOffset: 20,
		MaxFeeDrops:  2000,
	}
}

// Submitter autofills, signs, submits and waits for validation.
type Submitter struct {
	client Client
	opts   SubmitOptions
	logger *log.Logger
}

// NewSubmitter creates a Submitter over client. Zero option fields take defaults.
func NewSubmitter(client Client, opts SubmitOptions) *Submitter {
	def := DefaultSubmitOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.LedgerOffset == 0 {
		opts.LedgerOffset = def.LedgerOffset
	}
	if opts.MaxFeeDrops <= 0 {
		opts.MaxFeeDrops = def.MaxFeeDrops
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Submitter{client: client, opts: opts, logger: logger}
}

// Autofill sets Fee, Sequence and LastLedgerSequence on p where unset.
func (s *Submitter) Autofill(ctx context.Context, p *Payment) error {
	if p.Sequence == 0 {
		info, err := s.client.AccountInfo(ctx, p.Account, LedgerCurrent)
		if err != nil {
			return fmt.Errorf("autofill sequence: %w", err)
		}
		p.Sequence = info.Sequence
	}

	if p.Fee == "" {
		fee, err := s.client.Fee(ctx)
		if err != nil {
			return fmt.Errorf("autofill fee: %w", err)
		}
		drops := fee.BaseFee
		if fee.OpenLedgerFee > drops {
			drops = fee.OpenLedgerFee
		}
		if fee.MinimumFee > drops {
			drops = fee.MinimumFee
		}
		if drops > s.opts.MaxFeeDrops {
			drops = s.opts.MaxFeeDrops
		}
		if drops <= 0 {
			drops = 10
		}
		p.Fee = strconv.FormatInt(drops, 10)
	}

	if p.LastLedgerSequence == 0 {
		current, err := s.client.LedgerCurrent(ctx)
		if err != nil {
			return fmt.Errorf("autofill last ledger: %w", err)
		}
		p.LastLedgerSequence = current + s.opts.LedgerOffset
	}
	return nil
}

// SubmitAndWait submits p signed by w and blocks until the transaction is
// validated, its LastLedgerSequence passes, or the timeout elapses.
// A validated result other than tesSUCCESS is returned as *EngineError
// together with the TxResult.
func (s *Submitter) SubmitAndWait(ctx context.Context, w *Wallet, p *Payment) (*TxResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.Autofill(ctx, p); err != nil {
		return nil, s.wrapDeadline(ctx, err)
	}

	blob, hash, err := SignPayment(w, p)
	if err != nil {
		return nil, fmt.Errorf("sign payment: %w", err)
	}

	sub, err := s.client.Submit(ctx, blob)
	if err != nil {
		return nil, s.wrapDeadline(ctx, fmt.Errorf("submit: %w", err))
	}
	if sub.Hash != "" && sub.Hash != hash {
		s.logger.Printf("submit hash %s differs from local hash %s", sub.Hash, hash)
		hash = sub.Hash
	}
	s.logger.Printf("submitted %s: %s", hash, sub.EngineResult)

	if isFinalRejection(sub.EngineResult) {
		return nil, &EngineError{Code: sub.EngineResult, Message: sub.EngineResultMessage, Hash: hash}
	}

	return s.wait(ctx, hash, p.LastLedgerSequence)
}

// wait polls tx until the transaction is in a validated ledger. The
// transaction is only expired once a validated ledger past lastLedger
// exists and a final lookup still does not find it.
func (s *Submitter) wait(ctx context.Context, hash string, lastLedger uint32) (*TxResult, error) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		res, done, err := s.lookup(ctx, hash)
		if done {
			return res, err
		}

		validated, err := s.client.ValidatedLedger(ctx)
		if err == nil && validated > lastLedger {
			if res, done, err := s.lookup(ctx, hash); done {
				return res, err
			}
			return nil, fmt.Errorf("%w (hash %s, last ledger %d, validated %d)", ErrLastLedgerExpired, hash, lastLedger, validated)
		}

		select {
		case <-ctx.Done():
			return nil, s.wrapDeadline(ctx, ctx.Err())
		case <-ticker.C:
		}
	}
}

// lookup queries tx once. done is true when the transaction reached a
// validated ledger or the lookup failed because ctx ended.
func (s *Submitter) lookup(ctx context.Context, hash string) (*TxResult, bool, error) {
	res, err := s.client.Tx(ctx, hash)
	switch {
	case err == nil && res.Validated:
		if res.Success() {
			return res, true, nil
		}
		return res, true, &EngineError{Code: res.TransactionResult, Hash: hash}
	case err != nil && !IsErrorCode(err, ErrorCodeTxnNotFound):
		if ctx.Err() != nil {
			return nil, true, s.wrapDeadline(ctx, err)
		}
		s.logger.Printf("tx %s lookup: %v", hash, err)
	}
	return nil, false, nil
}

// wrapDeadline maps an expired submit context to ErrTimeout.
func (s *Submitter) wrapDeadline(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
