// Package notify pushes operator-facing notifications out of the loop: run
// termination and hat-raised alerts. It never reads anything back.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier is satisfied by every channel the loop can push through.
type Notifier interface {
	// Name returns the channel's identifier, for logging.
	Name() string
	// Notify sends text to every configured recipient. Failures are
	// reported to the caller but never stop the run.
	Notify(text string) error
}

// Telegram pushes notifications through a bot token to a fixed set of chat
// IDs. A zero-value Telegram (empty token) is a no-op, so callers can wire
// it unconditionally and let configuration decide whether it does anything.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	logger  *slog.Logger
}

// NewTelegram builds a Telegram notifier. If token is empty, the returned
// notifier's Notify is a no-op returning nil — disabled by configuration,
// not by error.
func NewTelegram(token string, chatIDs []int64, logger *slog.Logger) (*Telegram, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if token == "" {
		return &Telegram{chatIDs: chatIDs, logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatIDs: chatIDs, logger: logger}, nil
}

// Name returns "telegram".
func (t *Telegram) Name() string { return "telegram" }

// Notify sends text to every configured chat ID, logging (not failing) the
// send error for any individual chat so one bad chat ID doesn't block the
// rest.
func (t *Telegram) Notify(text string) error {
	if t.bot == nil {
		return nil
	}
	var lastErr error
	for _, chatID := range t.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Warn("telegram notify failed", "chat_id", chatID, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// TerminationMessage formats a human-readable summary of why a run ended,
// matching spec.md §7's required user-visible termination output: reason,
// final iteration count, elapsed wall time, and cumulative cost if
// non-zero.
func TerminationMessage(reason string, iteration uint32, cumulativeCost float64, elapsed time.Duration) string {
	msg := fmt.Sprintf("ralph run ended: %s (iteration %d, elapsed %s)", reason, iteration, elapsed.Round(time.Second))
	if cumulativeCost != 0 {
		msg += fmt.Sprintf(", cost $%.4f", cumulativeCost)
	}
	return msg
}

// AlertMessage formats a hat-raised alert for the agent.alert topic.
func AlertMessage(source, payload string) string {
	return fmt.Sprintf("ralph alert from %s: %s", source, payload)
}
