package domain

import "fmt"

// SigningWallet is the credential a bot trades with.
// Corresponds to the wallets table in PostgreSQL. Seed is sensitive.
type SigningWallet struct {
	ID      string
	Address string // classic address (r...)
	Seed    string // family seed (s...)
}

// String redacts the seed so wallets are safe to print.
func (w SigningWallet) String() string {
	return fmt.Sprintf("SigningWallet{ID:%s Address:%s Seed:[redacted]}", w.ID, w.Address)
}

// Validate checks that both halves of the credential are present.
func (w SigningWallet) Validate() error {
	if w.Address == "" {
		return fmt.Errorf("%w: wallet %s has no address", ErrInvalidConfig, w.ID)
	}
	if w.Seed == "" {
		return fmt.Errorf("%w: wallet %s has no seed", ErrInvalidConfig, w.ID)
	}
	return nil
}
