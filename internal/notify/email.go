package notify

import (
	"context"

	"github.com/dukerupert/billfold/internal/model"
)

type reminderMailer interface {
	SendBillReminder(ctx context.Context, toEmail, name string, bills []model.BillReminder, today model.Date) error
}

// Email sends the bill table through Postmark.
type Email struct {
	mailer reminderMailer
}

func NewEmail(m reminderMailer) *Email {
	return &Email{mailer: m}
}

func (e *Email) Name() string { return ChannelEmail }

func (e *Email) Deliver(ctx context.Context, b Batch) error {
	if b.Recipient.Email == "" {
		return nil
	}
	return e.mailer.SendBillReminder(ctx, b.Recipient.Email, b.Recipient.Name, b.Bills, b.Today)
}
