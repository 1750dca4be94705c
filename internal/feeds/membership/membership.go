// Package membership applies topic-user lifecycle events (Created,
// Updated, Deleted) to the membership table.
package membership

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bez-dna/bzd-flux/internal/feeds"
	"github.com/bez-dna/bzd-flux/internal/feeds/events"
	"github.com/bez-dna/bzd-flux/internal/feeds/repo"
)

// EventType discriminates the three topic-user lifecycle events, carried
// on the bus as the ce_type header rather than in the payload body.
type EventType string

const (
	Created EventType = "Created"
	Updated EventType = "Updated"
	Deleted EventType = "Deleted"
)

// ParseEventType validates a raw ce_type header value.
func ParseEventType(raw string) (EventType, error) {
	switch EventType(raw) {
	case Created, Updated, Deleted:
		return EventType(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", feeds.ErrUnknownMembershipEventType, raw)
	}
}

// Service applies membership events to the repository.
type Service struct {
	repo    repo.Repository
	emitter events.Emitter
}

// New wraps a Repository. emitter may be nil.
func New(r repo.Repository, emitter events.Emitter) *Service {
	return &Service{repo: r, emitter: emitter}
}

// Apply dispatches on eventType: Created/Updated upsert the membership
// row (idempotent on topic_user_id conflict); Deleted hard-deletes it.
func (s *Service) Apply(ctx context.Context, eventType EventType, topicUserID, topicID, userID uuid.UUID) error {
	switch eventType {
	case Created, Updated:
		tu := feeds.NewTopicUser(topicUserID, topicID, userID)
		if err := s.repo.UpsertTopicUser(ctx, tu); err != nil {
			return fmt.Errorf("membership: upsert topic_user %s: %w", topicUserID, err)
		}
	case Deleted:
		if err := s.repo.DeleteTopicUser(ctx, topicUserID); err != nil {
			return fmt.Errorf("membership: delete topic_user %s: %w", topicUserID, err)
		}
	default:
		return fmt.Errorf("%w: %q", feeds.ErrUnknownMembershipEventType, eventType)
	}

	if s.emitter != nil {
		_ = s.emitter.Emit(ctx, events.NewEvent(events.TypeMembershipApplied, events.MembershipAppliedPayload{
			TopicUserID: topicUserID, EventType: string(eventType),
		}))
	}
	return nil
}
