package executor

import (
	"fmt"
	"strconv"
	"strings"

	"xrpl-amm-bot/internal/xrpl"
)

// Sufficiency constants, in XRP.
const (
	// ReserveXRP is the account reserve held back from every balance.
	ReserveXRP = 10
	// FeeMarginXRP covers fees and rounding on top of a BUY's send maximum.
	FeeMarginXRP = 1
)

// SlippageCeilingPct is the tolerance at or above which a slippage rejection pauses the bot.
const SlippageCeilingPct = 25

// SlippageMultiplier returns 1 + pct/100.
func SlippageMultiplier(pct float64) float64 {
	return 1 + pct/100
}

// ValidateBuy fails with InsufficientNativeAsset when
// balance - ReserveXRP < xrpAmount*(1+slippage/100) + FeeMarginXRP.
func ValidateBuy(balanceXRP, xrpAmount, slippagePct float64) error {
	required := xrpAmount*SlippageMultiplier(slippagePct) + FeeMarginXRP
	available := balanceXRP - ReserveXRP
	if available < required {
		return &AttemptError{
			Kind: KindInsufficientNativeAsset,
			Msg: fmt.Sprintf("insufficient XRP: available %.6f (balance %.6f minus %d reserve), required %.6f",
				available, balanceXRP, ReserveXRP, required),
		}
	}
	return nil
}

// ValidateSell fails with InsufficientToken when
// held < estimatedTokens*(1+slippage/100). Equality passes.
func ValidateSell(heldTokens, estimatedTokens, slippagePct float64) error {
	required := estimatedTokens * SlippageMultiplier(slippagePct)
	if heldTokens < required {
		return &AttemptError{
			Kind: KindInsufficientToken,
			Msg:  fmt.Sprintf("insufficient token balance: held %s, required %s", xrpl.FormatTokenValue(heldTokens), xrpl.FormatTokenValue(required)),
		}
	}
	return nil
}

// TokenBalance sums the balances of lines holding currency from issuer.
// currency must be in ledger form; hex codes compare case-insensitively.
// Returns 0 when no line matches.
func TokenBalance(lines []xrpl.TrustLine, currency, issuer string) (float64, error) {
	var total float64
	for _, line := range lines {
		if line.Account != issuer || !strings.EqualFold(line.Currency, currency) {
			continue
		}
		v, err := strconv.ParseFloat(line.Balance, 64)
		if err != nil {
			return 0, fmt.Errorf("parse trust line balance %q: %w", line.Balance, err)
		}
		total += v
	}
	return total, nil
}
