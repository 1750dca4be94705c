package bus

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bez-dna/bzd-flux/internal/feeds/metrics"
	"github.com/bez-dna/bzd-flux/internal/logging"
)

// fetchWait bounds how long a single Fetch call blocks for a message
// before returning empty, so the consumer loop can observe context
// cancellation promptly.
const fetchWait = 2 * time.Second

// Handler decodes and dispatches one message. A non-nil error leaves the
// message unacknowledged so the bus redelivers it.
type Handler func(ctx context.Context, msg *nats.Msg) error

// Consumer pulls one message at a time from a durable JetStream pull
// subscription, dispatches it, and acks only on success.
type Consumer struct {
	name    string
	sub     *nats.Subscription
	log     logging.Logger
	metrics *metrics.Metrics
}

// NewConsumer creates a durable pull consumer bound to subject with the
// given durable name. js must already have the backing stream.
func NewConsumer(js nats.JetStreamContext, subject, durable string, log logging.Logger) (*Consumer, error) {
	sub, err := js.PullSubscribe(subject, durable, nats.ManualAck(), nats.AckExplicit())
	if err != nil {
		return nil, err
	}
	return &Consumer{name: durable, sub: sub, log: log}, nil
}

// WithMetrics attaches a collector set; dispatch outcomes update it.
func (c *Consumer) WithMetrics(m *metrics.Metrics) *Consumer {
	c.metrics = m
	return c
}

// Run pulls and dispatches messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := c.sub.Fetch(1, nats.MaxWait(fetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return err
		}

		for _, msg := range msgs {
			if err := handle(ctx, msg); err != nil {
				c.log.Error("consumer dispatch failed, message left unacknowledged",
					"consumer", c.name, "error", err)
				if c.metrics != nil {
					c.metrics.ConsumerFailed.WithLabelValues(c.name).Inc()
				}
				continue
			}
			if err := msg.Ack(); err != nil {
				c.log.Error("ack failed", "consumer", c.name, "error", err)
				continue
			}
			if c.metrics != nil {
				c.metrics.ConsumerDispatched.WithLabelValues(c.name).Inc()
			}
		}
	}
}
