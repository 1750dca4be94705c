package bus

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/bez-dna/bzd-flux/internal/feeds/metrics"
	"github.com/bez-dna/bzd-flux/internal/logging"
)

// TaskEnqueuer is the slice of the task queue the message consumer needs.
type TaskEnqueuer interface {
	EnqueueCreateMessageTopic(ctx context.Context, messageID, topicID uuid.UUID) error
}

// MessageConsumer subscribes to message-published events and enqueues one
// fan-out task per topic_id carried on the event.
type MessageConsumer struct {
	consumer *Consumer
	queue    TaskEnqueuer
	log      logging.Logger
}

// NewMessageConsumer binds a durable pull subscription to the message
// consumer's subject and durable name.
func NewMessageConsumer(js nats.JetStreamContext, subject, durable string, queue TaskEnqueuer, log logging.Logger) (*MessageConsumer, error) {
	consumer, err := NewConsumer(js, subject, durable, log)
	if err != nil {
		return nil, fmt.Errorf("bus: new message consumer: %w", err)
	}
	return &MessageConsumer{consumer: consumer, queue: queue, log: log}, nil
}

// WithMetrics attaches a collector set to the underlying pull consumer.
func (c *MessageConsumer) WithMetrics(m *metrics.Metrics) *MessageConsumer {
	c.consumer.WithMetrics(m)
	return c
}

// Run blocks, dispatching message events until ctx is cancelled.
func (c *MessageConsumer) Run(ctx context.Context) error {
	return c.consumer.Run(ctx, c.handle)
}

func (c *MessageConsumer) handle(ctx context.Context, msg *nats.Msg) error {
	payload, err := DecodeMessagePayload(msg.Data)
	if err != nil {
		return fmt.Errorf("decode message payload: %w", err)
	}

	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		return fmt.Errorf("parse message_id: %w", err)
	}

	for _, rawTopicID := range payload.TopicIDs {
		topicID, err := uuid.Parse(rawTopicID)
		if err != nil {
			return fmt.Errorf("parse topic_id %q: %w", rawTopicID, err)
		}
		if err := c.queue.EnqueueCreateMessageTopic(ctx, messageID, topicID); err != nil {
			return fmt.Errorf("enqueue create_message_topic for topic %s: %w", topicID, err)
		}
	}

	c.log.Info("enqueued fan-out tasks", "message_id", messageID, "topic_count", len(payload.TopicIDs))
	return nil
}
