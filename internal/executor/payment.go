package executor

import (
	"fmt"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/xrpl"
)

// BuildPayment builds the self-payment that swaps through the pool.
//
// With m = 1 + slippage/100:
//   - BUY delivers estimatedTokens/m tokens, spending at most xrpAmount*m XRP.
//   - SELL delivers xrpAmount/m XRP, spending at most estimatedTokens*m tokens.
func BuildPayment(dir domain.Direction, xrpAmount, estimatedTokens, slippagePct float64, token domain.TargetToken, account string) (*xrpl.Payment, error) {
	if xrpAmount <= 0 || estimatedTokens <= 0 {
		return nil, fmt.Errorf("trade amounts must be positive: xrp %v, tokens %v", xrpAmount, estimatedTokens)
	}

	m := SlippageMultiplier(slippagePct)
	currency := token.LedgerCurrency()

	var amount, sendMax xrpl.Amount
	switch dir {
	case domain.DirectionBuy:
		amount = xrpl.TokenAmount(currency, token.Issuer, estimatedTokens/m)
		sendMax = xrpl.XRPAmount(xrpAmount * m)
	case domain.DirectionSell:
		amount = xrpl.XRPAmount(xrpAmount / m)
		sendMax = xrpl.TokenAmount(currency, token.Issuer, estimatedTokens*m)
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}

	if isZero(amount) || isZero(sendMax) {
		return nil, fmt.Errorf("%s of %v XRP rounds to a zero amount", dir, xrpAmount)
	}

	return &xrpl.Payment{
		Account:     account,
		Destination: account,
		Amount:      amount,
		SendMax:     &sendMax,
	}, nil
}

func isZero(a xrpl.Amount) bool {
	if a.IsXRP() {
		return a.Drops == "0"
	}
	return a.Value == "0"
}
