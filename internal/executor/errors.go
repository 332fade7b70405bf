package executor

import (
	"context"
	"errors"
	"fmt"

	"xrpl-amm-bot/internal/xrpl"
)

// ErrorKind classifies a failed attempt.
type ErrorKind string

// Error kinds.
const (
	KindNoPoolData              ErrorKind = "NoPoolData"
	KindInsufficientNativeAsset ErrorKind = "InsufficientNativeAsset"
	KindInsufficientToken       ErrorKind = "InsufficientToken"
	KindSlippageRejected        ErrorKind = "SlippageRejected"
	KindUnfunded                ErrorKind = "Unfunded"
	KindAddressMismatch         ErrorKind = "AddressMismatch"
	KindTransportOrTimeout      ErrorKind = "TransportOrTimeout"
	KindTransactionFailed       ErrorKind = "TransactionFailed"
	KindInvalidConfig           ErrorKind = "InvalidConfig"
	// KindRecordFailed marks a validated trade whose bookkeeping could not be written.
	KindRecordFailed ErrorKind = "RecordFailed"
)

// AttemptError is a classified attempt failure.
type AttemptError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AttemptError) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// ShouldPause reports whether the bot must be paused.
// Slippage rejections pause only when the tolerance already reaches the ceiling.
func (e *AttemptError) ShouldPause(slippagePct float64) bool {
	switch e.Kind {
	case KindInsufficientNativeAsset, KindInsufficientToken, KindUnfunded,
		KindAddressMismatch, KindInvalidConfig:
		return true
	case KindSlippageRejected:
		return slippagePct >= SlippageCeilingPct
	default:
		return false
	}
}

// CountsAsFailure reports whether failed_trades is incremented.
// Pre-submission validation failures only pause.
func (e *AttemptError) CountsAsFailure() bool {
	switch e.Kind {
	case KindSlippageRejected, KindUnfunded, KindTransportOrTimeout, KindTransactionFailed:
		return true
	default:
		return false
	}
}

// Skipped reports whether the attempt leaves the bot row untouched.
func (e *AttemptError) Skipped() bool {
	return e.Kind == KindNoPoolData
}

// classify maps a ledger or transport error onto the taxonomy.
func classify(err error, msg string) *AttemptError {
	var attemptErr *AttemptError
	if errors.As(err, &attemptErr) {
		return attemptErr
	}

	switch code := xrpl.ResultCode(err); code {
	case xrpl.ResultPathPartial, xrpl.ResultPathDry, xrpl.ResultKilled:
		return &AttemptError{Kind: KindSlippageRejected, Msg: msg, Err: err}
	case xrpl.ResultUnfundedPayment, xrpl.ResultUnfunded, xrpl.ResultInsufReserveLine,
		xrpl.ResultInsufFeeB, xrpl.ResultNoAccount, xrpl.ErrorCodeActNotFound:
		return &AttemptError{Kind: KindUnfunded, Msg: msg, Err: err}
	}

	var engineErr *xrpl.EngineError
	if errors.As(err, &engineErr) {
		return &AttemptError{Kind: KindTransactionFailed, Msg: msg, Err: err}
	}
	return &AttemptError{Kind: KindTransportOrTimeout, Msg: msg, Err: err}
}

// isTimeout reports whether err is a deadline or submission timeout.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, xrpl.ErrTimeout) ||
		errors.Is(err, xrpl.ErrLastLedgerExpired)
}

// panicError converts a recovered panic value.
func panicError(v interface{}) *AttemptError {
	return &AttemptError{Kind: KindTransportOrTimeout, Msg: fmt.Sprintf("panic: %v", v)}
}
