package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/push"
)

type pushSender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload push.Payload) error
}

type subscriptionStore interface {
	ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Push sends a web push to every device the owner subscribed.
type Push struct {
	sender pushSender
	subs   subscriptionStore
	logger *slog.Logger
}

func NewPush(sender pushSender, subs subscriptionStore, logger *slog.Logger) *Push {
	return &Push{sender: sender, subs: subs, logger: logger.With("component", "notify.push")}
}

func (p *Push) Name() string { return ChannelPush }

// PushPayload summarizes a batch for a notification banner.
func PushPayload(b Batch) push.Payload {
	title := "Bill reminder"
	if n := len(b.Bills); n > 1 {
		title = fmt.Sprintf("%d bills due soon", n)
	}
	return push.Payload{
		Title: title,
		Body:  strings.Join(b.Lines(), "\n"),
		URL:   "/reminders",
		Tag:   "bill-reminder",
	}
}

func (p *Push) Deliver(ctx context.Context, b Batch) error {
	subs, err := p.subs.ListByUser(ctx, b.Recipient.UserID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	payload := PushPayload(b)

	var errs []error
	for _, sub := range subs {
		err := p.sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
		case errors.Is(err, push.ErrExpired):
			p.logger.Info("removing expired subscription", "user_id", b.Recipient.UserID, "subscription_id", sub.ID)
			if err := p.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				errs = append(errs, fmt.Errorf("delete expired subscription %d: %w", sub.ID, err))
			}
		default:
			errs = append(errs, fmt.Errorf("subscription %d: %w", sub.ID, err))
		}
	}
	return errors.Join(errs...)
}
