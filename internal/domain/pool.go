package domain

// PoolSnapshot is the AMM reserve state for the (XRP, token) pair at attempt time.
// Read fresh for every attempt; never persisted.
type PoolSnapshot struct {
	Account      string  // AMM account address
	XRPReserve   float64 // XRP side of the pool, in XRP
	TokenReserve float64 // token side of the pool
	TradingFee   int     // in units of 1/100000
}

// Price returns the spot price in XRP per token, or 0 if the token side is empty.
func (p PoolSnapshot) Price() float64 {
	if p.TokenReserve <= 0 {
		return 0
	}
	return p.XRPReserve / p.TokenReserve
}
