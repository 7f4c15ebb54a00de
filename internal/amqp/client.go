package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

var ErrChannelClosed = errors.New("amqp delivery channel closed")

// Client publishes and consumes due-bill messages on a durable direct
// exchange bound to a single queue.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *slog.Logger
}

func Dial(url, exchangeName, queueName string, logger *slog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.With("component", "amqp", "queue", queueName),
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Routing key is the queue name.
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	// One unacked message at a time so a slow delivery doesn't hoard the queue.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// PublishDueBills enqueues one owner's due bills as a persistent message.
func (c *Client) PublishDueBills(ctx context.Context, msg DueBillsMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.InfoContext(ctx, "published due bills", "user_id", msg.Recipient.UserID, "bills", len(msg.Bills))
	return nil
}

// Handler delivers one decoded message. A returned error requeues it.
type Handler func(ctx context.Context, msg *DueBillsMessage) error

// ConsumeDueBills blocks, handing each message to handler until ctx is
// cancelled or the broker closes the channel.
func (c *Client) ConsumeDueBills(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "started consuming due bills")

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "stopping consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return ErrChannelClosed
			}
			Process(ctx, d.Body, d, handler, c.logger)
		}
	}
}

// Acknowledger is the part of a delivery Process settles.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Outcome is how a delivery was settled.
type Outcome string

const (
	Acked    Outcome = "acked"
	Requeued Outcome = "requeued"
	Dropped  Outcome = "dropped"
)

// Process decodes body, runs handler and settles the delivery: malformed
// bodies are dropped, handler failures are requeued, success is acked.
func Process(ctx context.Context, body []byte, ack Acknowledger, handler Handler, logger *slog.Logger) Outcome {
	msg, err := DueBillsMessageFromJSON(body)
	if err != nil {
		logger.ErrorContext(ctx, "drop malformed message", "error", err)
		ack.Nack(false, false)
		return Dropped
	}

	if err := handler(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "deliver due bills", "error", err, "user_id", msg.Recipient.UserID)
		ack.Nack(false, true)
		return Requeued
	}

	ack.Ack(false)
	logger.InfoContext(ctx, "delivered due bills", "user_id", msg.Recipient.UserID, "bills", len(msg.Bills))
	return Acked
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Backoff returns the wait before reconnect attempt n: 1s doubling, capped at 30s.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return 30 * time.Second
	}
	d := time.Second << attempt
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}
