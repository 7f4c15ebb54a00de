package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/model"
)

type fakeAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validBody(t *testing.T) []byte {
	t.Helper()
	today := model.NewDate(2024, time.March, 15)
	msg := NewDueBillsMessage(
		model.Recipient{UserID: 4, Name: "Ana", Email: "ana@example.com"},
		[]model.BillReminder{{ID: 1, UserID: 4, Title: "Rent", Amount: decimal.NewFromInt(1200), DueDate: today.AddDays(2), ReminderDays: 3}},
		today,
	)
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name        string
		body        func(t *testing.T) []byte
		handlerErr  error
		want        Outcome
		wantAck     bool
		wantRequeue bool
	}{
		{
			name:    "delivered",
			body:    validBody,
			want:    Acked,
			wantAck: true,
		},
		{
			name:        "handler failure requeues",
			body:        validBody,
			handlerErr:  errors.New("smtp down"),
			want:        Requeued,
			wantRequeue: true,
		},
		{
			name: "malformed body dropped",
			body: func(*testing.T) []byte { return []byte("{not json") },
			want: Dropped,
		},
		{
			name: "missing recipient dropped",
			body: func(*testing.T) []byte { return []byte(`{"bills":[{"id":1}],"today":"2024-03-15"}`) },
			want: Dropped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			called := false
			handler := func(ctx context.Context, msg *DueBillsMessage) error {
				called = true
				return tt.handlerErr
			}

			got := Process(context.Background(), tt.body(t), ack, handler, discard())
			if got != tt.want {
				t.Errorf("outcome = %q, want %q", got, tt.want)
			}
			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if ack.requeued != tt.wantRequeue {
				t.Errorf("requeued = %v, want %v", ack.requeued, tt.wantRequeue)
			}
			if tt.want == Dropped && called {
				t.Error("handler should not run for a dropped message")
			}
		})
	}
}

func TestDueBillsMessageRoundTrip(t *testing.T) {
	msg, err := DueBillsMessageFromJSON(validBody(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Recipient.Email != "ana@example.com" {
		t.Errorf("email = %q", msg.Recipient.Email)
	}
	if got := msg.Bills[0].DueDate.String(); got != "2024-03-17" {
		t.Errorf("due date = %q, want %q", got, "2024-03-17")
	}
	if !msg.Bills[0].Amount.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("amount = %s", msg.Bills[0].Amount)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := Backoff(tt.attempt); got != tt.expected {
				t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}
