package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"xrpl-amm-bot/internal/domain"
)

// MessageSender is the subset of *bot.Bot used by Telegram.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram sends alerts to a fixed set of chats.
type Telegram struct {
	sender  MessageSender
	chatIDs []int64
	logger  *log.Logger
}

// NewTelegram connects a bot with token.
func NewTelegram(token string, chatIDs []int64, logger *log.Logger) (*Telegram, error) {
	if len(chatIDs) == 0 {
		return nil, fmt.Errorf("telegram: no chat ids")
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return NewTelegramWithSender(b, chatIDs, logger), nil
}

// NewTelegramWithSender creates a Telegram notifier on an existing sender.
func NewTelegramWithSender(sender MessageSender, chatIDs []int64, logger *log.Logger) *Telegram {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Telegram{sender: sender, chatIDs: chatIDs, logger: logger}
}

// Compile-time interface check.
var _ Notifier = (*Telegram)(nil)

// BotPaused implements Notifier. Every chat is attempted; the first error is returned.
func (t *Telegram) BotPaused(ctx context.Context, b *domain.BotConfig, reason string, at time.Time) error {
	text := pausedMessage(b, reason, at)

	var first error
	for _, chatID := range t.chatIDs {
		_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		})
		if err != nil {
			t.logger.Printf("notify chat %d: %v", chatID, err)
			if first == nil {
				first = fmt.Errorf("send to chat %d: %w", chatID, err)
			}
		}
	}
	return first
}
