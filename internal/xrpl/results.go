package xrpl

import (
	"errors"
	"fmt"
	"strings"
)

// Transaction result codes referenced by the executor.
const (
	ResultSuccess = "tesSUCCESS"

	ResultPathPartial       = "tecPATH_PARTIAL"
	ResultPathDry           = "tecPATH_DRY"
	ResultKilled            = "tecKILLED"
	ResultUnfundedPayment   = "tecUNFUNDED_PAYMENT"
	ResultUnfunded          = "tecUNFUNDED"
	ResultInsufReserveLine  = "tecINSUF_RESERVE_LINE"
	ResultInsufFeeB         = "terINSUF_FEE_B"
	ResultNoAccount         = "terNO_ACCOUNT"
	ErrorCodeActNotFound    = "actNotFound"
	ErrorCodeTxnNotFound    = "txnNotFound"
	ErrorCodeLedgerNotFound = "lgrNotFound"
)

// Submission errors.
var (
	ErrTimeout           = errors.New("transaction not validated before timeout")
	ErrLastLedgerExpired = errors.New("transaction expired: LastLedgerSequence passed")
)

// EngineError is a non-success transaction result, either rejected at submit
// (tem, tef, tel) or applied to a validated ledger with a tec code.
type EngineError struct {
	Code    string
	Message string
	Hash    string
}

func (e *EngineError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transaction failed: %s", e.Code)
	}
	return fmt.Sprintf("transaction failed: %s: %s", e.Code, e.Message)
}

// ResultCode extracts the ledger result or server error code carried by err.
// Returns "" when err carries none.
func ResultCode(err error) string {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given result or error code.
func IsErrorCode(err error, code string) bool {
	return err != nil && ResultCode(err) == code
}

// isFinalRejection reports whether a preliminary result means the
// transaction can never be applied.
func isFinalRejection(code string) bool {
	return strings.HasPrefix(code, "tem") ||
		strings.HasPrefix(code, "tef") ||
		strings.HasPrefix(code, "tel")
}
