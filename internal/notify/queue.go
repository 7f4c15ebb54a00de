package notify

import (
	"context"

	"github.com/dukerupert/billfold/internal/amqp"
)

type publisher interface {
	PublishDueBills(ctx context.Context, msg amqp.DueBillsMessage) error
}

// Queue hands the batch to AMQP; a notify-worker delivers it later.
type Queue struct {
	pub publisher
}

func NewQueue(pub publisher) *Queue {
	return &Queue{pub: pub}
}

func (q *Queue) Name() string { return ChannelAMQP }

func (q *Queue) Deliver(ctx context.Context, b Batch) error {
	return q.pub.PublishDueBills(ctx, amqp.NewDueBillsMessage(b.Recipient, b.Bills, b.Today))
}

// WorkerHandler delivers queued messages through m, using the day the
// message was produced so urgency labels match the scan.
func WorkerHandler(m *Multi) amqp.Handler {
	return func(ctx context.Context, msg *amqp.DueBillsMessage) error {
		return m.Deliver(ctx, Batch{Recipient: msg.Recipient, Bills: msg.Bills, Today: msg.Today})
	}
}
