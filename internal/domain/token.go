package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// currencyHexLen is the width of a non-standard currency code on the ledger (160 bits).
const currencyHexLen = 40

// TargetToken is the issued currency a bot trades against XRP.
// Corresponds to the tokens table in PostgreSQL.
type TargetToken struct {
	ID       string
	Currency string // ticker as entered, 3 chars or longer
	Issuer   string // issuing account address
	Name     string
}

// LedgerCurrency returns the currency code in the form the ledger expects.
// Codes of 3 characters or fewer pass through verbatim; longer codes are
// hex-encoded and right-padded with '0' to 40 characters.
func (t TargetToken) LedgerCurrency() string {
	return EncodeCurrency(t.Currency)
}

// EncodeCurrency applies the ledger currency-code rule to code.
func EncodeCurrency(code string) string {
	if len(code) <= 3 {
		return code
	}
	encoded := strings.ToUpper(hex.EncodeToString([]byte(code)))
	if len(encoded) < currencyHexLen {
		encoded += strings.Repeat("0", currencyHexLen-len(encoded))
	}
	return encoded
}

// Validate checks that the token can be referenced in a ledger request.
func (t TargetToken) Validate() error {
	if t.Currency == "" {
		return fmt.Errorf("%w: token %s has no currency code", ErrInvalidConfig, t.ID)
	}
	if len(t.Currency) > currencyHexLen/2 {
		return fmt.Errorf("%w: currency code %q longer than 20 bytes", ErrInvalidConfig, t.Currency)
	}
	if t.Issuer == "" {
		return fmt.Errorf("%w: token %s has no issuer", ErrInvalidConfig, t.ID)
	}
	return nil
}
