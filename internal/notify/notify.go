// Package notify alerts the operator when a bot needs attention.
package notify

import (
	"context"
	"fmt"
	"time"

	"xrpl-amm-bot/internal/domain"
)

// Notifier delivers operator alerts.
type Notifier interface {
	// BotPaused reports that an attempt paused b because of reason.
	BotPaused(ctx context.Context, b *domain.BotConfig, reason string, at time.Time) error
}

// Noop discards every alert.
type Noop struct{}

// Compile-time interface check.
var _ Notifier = Noop{}

// BotPaused implements Notifier.
func (Noop) BotPaused(context.Context, *domain.BotConfig, string, time.Time) error {
	return nil
}

// pausedMessage renders the alert text. Wallet seeds never appear in it.
func pausedMessage(b *domain.BotConfig, reason string, at time.Time) string {
	return fmt.Sprintf("%s bot %q (%s) paused\ntoken: %s.%s\nwallet: %s\nreason: %s",
		at.UTC().Format("2006-01-02 15:04:05 MST"),
		b.Name, b.ID, b.Token.Currency, b.Token.Issuer, b.Wallet.Address, reason)
}
