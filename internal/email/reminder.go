package email

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/model"
)

// Urgency labels how close a bill is to its due date.
func Urgency(daysLeft int) string {
	switch {
	case daysLeft <= 0:
		return "Due Today"
	case daysLeft == 1:
		return "Tomorrow"
	default:
		return fmt.Sprintf("%d days", daysLeft)
	}
}

type billRow struct {
	Title   string
	Amount  string
	DueDate string
	Urgency string
}

type reminderData struct {
	Name   string
	Count  int
	Plural bool
	Rows   []billRow
	Total  string
}

func buildReminder(name string, bills []model.BillReminder, today model.Date) reminderData {
	d := reminderData{
		Name:   name,
		Count:  len(bills),
		Plural: len(bills) != 1,
	}
	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.Amount)
		d.Rows = append(d.Rows, billRow{
			Title:   b.Title,
			Amount:  b.Amount.StringFixed(2),
			DueDate: b.DueDate.Format("2 Jan 2006"),
			Urgency: Urgency(b.DueDate.DaysSince(today)),
		})
	}
	d.Total = total.StringFixed(2)
	return d
}

// ReminderSubject is the subject line for a bill reminder covering n bills.
func ReminderSubject(n int) string {
	if n == 1 {
		return "Bill Reminder: 1 upcoming payment - Billfold"
	}
	return fmt.Sprintf("Bill Reminder: %d upcoming payments - Billfold", n)
}

// SendBillReminder mails one owner a table of the bills inside their
// warning window, with urgency and a total.
func (c *Client) SendBillReminder(ctx context.Context, toEmail, name string, bills []model.BillReminder, today model.Date) error {
	if len(bills) == 0 {
		return nil
	}
	data := buildReminder(name, bills, today)

	var html bytes.Buffer
	if err := reminderTemplate.Execute(&html, data); err != nil {
		return fmt.Errorf("render reminder email: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nYou have %d upcoming bill(s) that need your attention:\n\n", name, data.Count)
	for _, r := range data.Rows {
		fmt.Fprintf(&text, "- %s: %s due %s (%s)\n", r.Title, r.Amount, r.DueDate, r.Urgency)
	}
	fmt.Fprintf(&text, "\nTotal: %s\n", data.Total)

	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  ReminderSubject(data.Count),
		HtmlBody: html.String(),
		TextBody: text.String(),
		Tag:      "bill-reminder",
	})
}
