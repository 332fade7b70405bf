package xrpl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DropsPerXRP is the number of drops in one XRP.
const DropsPerXRP = 1_000_000

// Amount precision rules.
const (
	xrpDecimals     = 6
	tokenFracDigits = 15
)

// Amount is a ledger amount: XRP in drops, or an issued-currency value.
// On the wire XRP is a JSON string of drops and issued currencies are objects.
type Amount struct {
	Drops    string // set for XRP
	Currency string // set for issued currencies
	Issuer   string
	Value    string
}

// XRPAmount builds an XRP amount from a value in XRP, flooring to whole drops.
func XRPAmount(xrp float64) Amount {
	return Amount{Drops: XRPToDrops(xrp)}
}

// TokenAmount builds an issued-currency amount with a sanitized value.
func TokenAmount(currency, issuer string, value float64) Amount {
	return Amount{Currency: currency, Issuer: issuer, Value: FormatTokenValue(value)}
}

// IsXRP reports whether the amount is native.
func (a Amount) IsXRP() bool {
	return a.Currency == "" || a.Currency == "XRP"
}

// Float returns the amount in XRP for native amounts, or the token value otherwise.
func (a Amount) Float() (float64, error) {
	if a.IsXRP() {
		d, err := decimal.NewFromString(a.Drops)
		if err != nil {
			return 0, fmt.Errorf("parse drops %q: %w", a.Drops, err)
		}
		return d.Shift(-xrpDecimals).InexactFloat64(), nil
	}
	d, err := decimal.NewFromString(a.Value)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", a.Value, err)
	}
	return d.InexactFloat64(), nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.IsXRP() {
		return json.Marshal(a.Drops)
	}
	return json.Marshal(struct {
		Currency string `json:"currency"`
		Issuer   string `json:"issuer"`
		Value    string `json:"value"`
	}{a.Currency, a.Issuer, a.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var drops string
	if err := json.Unmarshal(data, &drops); err == nil {
		*a = Amount{Drops: drops}
		return nil
	}
	var obj struct {
		Currency string `json:"currency"`
		Issuer   string `json:"issuer"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unmarshal amount: %w", err)
	}
	*a = Amount{Currency: obj.Currency, Issuer: obj.Issuer, Value: obj.Value}
	return nil
}

// XRPToDrops converts an XRP value to integral drops.
// The value is floored to 6 decimals first so it never rounds up into an overspend.
func XRPToDrops(xrp float64) string {
	d := decimal.NewFromFloat(xrp).Truncate(xrpDecimals)
	return d.Shift(xrpDecimals).Truncate(0).String()
}

// DropsToXRP converts a drops string to XRP.
func DropsToXRP(drops string) (float64, error) {
	return Amount{Drops: drops}.Float()
}

// FormatTokenValue renders a token value with at most 15 fractional digits
// (truncated), stripping trailing zeros and a dangling decimal point.
// An empty result becomes "0".
func FormatTokenValue(v float64) string {
	s := decimal.NewFromFloat(v).Truncate(tokenFracDigits).StringFixed(tokenFracDigits)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}
