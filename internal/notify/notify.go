// Package notify delivers due-bill reminders over the configured channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/email"
	"github.com/dukerupert/billfold/internal/model"
)

// Channel names accepted in configuration.
const (
	ChannelEmail    = "email"
	ChannelPush     = "push"
	ChannelTelegram = "telegram"
	ChannelAMQP     = "amqp"
)

// Batch is one owner's due-soon bills as of a given day.
type Batch struct {
	Recipient model.Recipient
	Bills     []model.BillReminder
	Today     model.Date
}

// Total sums the bill amounts.
func (b Batch) Total() decimal.Decimal {
	total := decimal.Zero
	for _, bill := range b.Bills {
		total = total.Add(bill.Amount)
	}
	return total
}

// Lines renders one short line per bill, e.g. "Rent: 1200.00 (Tomorrow)".
func (b Batch) Lines() []string {
	lines := make([]string, 0, len(b.Bills))
	for _, bill := range b.Bills {
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", bill.Title, bill.Amount.StringFixed(2), email.Urgency(bill.DueDate.DaysSince(b.Today))))
	}
	return lines
}

// Channel is one delivery route. A channel that doesn't apply to the
// recipient (no chat id, no subscriptions) returns nil.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, b Batch) error
}

// Multi fans a batch out to every channel. It satisfies reminder.Notifier.
type Multi struct {
	channels []Channel
	logger   *slog.Logger
}

func NewMulti(logger *slog.Logger, channels ...Channel) *Multi {
	return &Multi{
		channels: channels,
		logger:   logger.With("component", "notify"),
	}
}

// Names lists the configured channels in delivery order.
func (m *Multi) Names() []string {
	names := make([]string, len(m.channels))
	for i, c := range m.channels {
		names[i] = c.Name()
	}
	return names
}

func (m *Multi) Notify(ctx context.Context, today model.Date, to model.Recipient, bills []model.BillReminder) error {
	return m.Deliver(ctx, Batch{Recipient: to, Bills: bills, Today: today})
}

// Deliver tries every channel even when one fails and joins the failures.
func (m *Multi) Deliver(ctx context.Context, b Batch) error {
	if len(b.Bills) == 0 {
		return nil
	}
	var errs []error
	for _, c := range m.channels {
		if err := c.Deliver(ctx, b); err != nil {
			m.logger.Warn("channel delivery failed", "channel", c.Name(), "user_id", b.Recipient.UserID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		m.logger.Debug("channel delivered", "channel", c.Name(), "user_id", b.Recipient.UserID, "bills", len(b.Bills))
	}
	return errors.Join(errs...)
}

// ParseChannels validates a comma-separated channel list.
func ParseChannels(s string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		switch name {
		case ChannelEmail, ChannelPush, ChannelTelegram, ChannelAMQP:
		default:
			return nil, fmt.Errorf("unknown notification channel %q", name)
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}
