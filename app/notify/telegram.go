package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lysyi3m/mirassol-cal/app/sync"
)

var _ sync.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier posts a run summary to a Telegram chat. Summaries are
// at most one per run, so no send queue or rate limiting is needed.
type TelegramNotifier struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	clubName string
}

// NewTelegramNotifier creates a notifier and verifies the bot token
func NewTelegramNotifier(token string, chatID int64, clubName string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("failed to verify telegram bot: %w", err)
	}

	slog.Info("Telegram notifier initialized", "chat_id", chatID)

	return &TelegramNotifier{bot: bot, chatID: chatID, clubName: clubName}, nil
}

// SendSummary posts one run summary message
func (n *TelegramNotifier) SendSummary(ctx context.Context, summary sync.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, formatSummary(n.clubName, summary))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send summary: %w", err)
	}
	return nil
}

func formatSummary(clubName string, summary sync.Summary) string {
	var builder strings.Builder

	if summary.Failed > 0 {
		builder.WriteString(fmt.Sprintf("⚠️ *%s calendar sync*\n\n", clubName))
	} else {
		builder.WriteString(fmt.Sprintf("⚽ *%s calendar sync*\n\n", clubName))
	}

	builder.WriteString(fmt.Sprintf("Events: *%d*\n", summary.TotalEvents))
	builder.WriteString(fmt.Sprintf("Created: %d | Updated: %d | Deleted: %d\n",
		summary.Created, summary.Updated, summary.Deleted))

	if summary.Failed > 0 {
		builder.WriteString(fmt.Sprintf("Failed: *%d*\n", summary.Failed))
	}
	if summary.SkippedRows > 0 {
		builder.WriteString(fmt.Sprintf("Skipped rows: %d\n", summary.SkippedRows))
	}

	builder.WriteString(fmt.Sprintf("\n_Duration: %s_",
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second).String()))

	return builder.String()
}
