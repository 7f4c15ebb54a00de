package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botSender is the part of *tgbotapi.BotAPI the channel uses.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram messages owners who linked a chat id.
type Telegram struct {
	bot botSender
}

func NewTelegram(bot botSender) *Telegram {
	return &Telegram{bot: bot}
}

func (t *Telegram) Name() string { return ChannelTelegram }

// TelegramText renders a batch as Telegram HTML.
func TelegramText(b Batch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Bill reminder</b>\nHi %s, these bills need your attention:\n\n", html.EscapeString(b.Recipient.Name))
	for _, line := range b.Lines() {
		sb.WriteString("• " + html.EscapeString(line) + "\n")
	}
	fmt.Fprintf(&sb, "\n<b>Total:</b> %s", b.Total().StringFixed(2))
	return sb.String()
}

func (t *Telegram) Deliver(ctx context.Context, b Batch) error {
	if b.Recipient.TelegramChatID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(b.Recipient.TelegramChatID, TelegramText(b))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
