package bus

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/bez-dna/bzd-flux/internal/feeds"
	"github.com/bez-dna/bzd-flux/internal/feeds/membership"
	"github.com/bez-dna/bzd-flux/internal/feeds/metrics"
	"github.com/bez-dna/bzd-flux/internal/logging"
)

// ceTypeHeader is the CloudEvents-style header carrying the membership
// event kind; the payload body carries only the identifiers.
const ceTypeHeader = "ce_type"

// MembershipApplier is the slice of the membership service the topic-user
// consumer needs.
type MembershipApplier interface {
	Apply(ctx context.Context, eventType membership.EventType, topicUserID, topicID, userID uuid.UUID) error
}

// TopicUserConsumer subscribes to topic-user lifecycle events and applies
// them to the membership table.
type TopicUserConsumer struct {
	consumer   *Consumer
	membership MembershipApplier
	log        logging.Logger
}

// NewTopicUserConsumer binds a durable pull subscription to the
// topic-user consumer's subject and durable name.
func NewTopicUserConsumer(js nats.JetStreamContext, subject, durable string, membershipSvc MembershipApplier, log logging.Logger) (*TopicUserConsumer, error) {
	consumer, err := NewConsumer(js, subject, durable, log)
	if err != nil {
		return nil, fmt.Errorf("bus: new topic-user consumer: %w", err)
	}
	return &TopicUserConsumer{consumer: consumer, membership: membershipSvc, log: log}, nil
}

// WithMetrics attaches a collector set to the underlying pull consumer.
func (c *TopicUserConsumer) WithMetrics(m *metrics.Metrics) *TopicUserConsumer {
	c.consumer.WithMetrics(m)
	return c
}

// Run blocks, dispatching topic-user events until ctx is cancelled.
func (c *TopicUserConsumer) Run(ctx context.Context) error {
	return c.consumer.Run(ctx, c.handle)
}

func (c *TopicUserConsumer) handle(ctx context.Context, msg *nats.Msg) error {
	rawType := msg.Header.Get(ceTypeHeader)
	if rawType == "" {
		return feeds.ErrMissingEventHeader
	}
	eventType, err := membership.ParseEventType(rawType)
	if err != nil {
		return err
	}

	payload, err := DecodeTopicUserPayload(msg.Data)
	if err != nil {
		return fmt.Errorf("decode topic_user payload: %w", err)
	}

	topicUserID, err := uuid.Parse(payload.TopicUserID)
	if err != nil {
		return fmt.Errorf("parse topic_user_id: %w", err)
	}
	topicID, err := uuid.Parse(payload.TopicID)
	if err != nil {
		return fmt.Errorf("parse topic_id: %w", err)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("parse user_id: %w", err)
	}

	if err := c.membership.Apply(ctx, eventType, topicUserID, topicID, userID); err != nil {
		return fmt.Errorf("apply %s event for topic_user %s: %w", eventType, topicUserID, err)
	}

	c.log.Info("applied topic-user event", "event_type", eventType, "topic_user_id", topicUserID)
	return nil
}
