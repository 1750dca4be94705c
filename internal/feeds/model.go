// Package feeds implements the feed-fanout core: materializing per-user
// inbox entries from publish-to-topic events via a durable task queue.
package feeds

import (
	"time"

	"github.com/google/uuid"
)

// VisibilityTimeout is how long a claimed task stays invisible to other
// workers before it is eligible to be reclaimed.
const VisibilityTimeout = 5 * time.Second

// MembershipPageSize is the number of topic-user rows fetched per fanout
// page.
const MembershipPageSize = 50

// NewID returns a time-ordered identifier (UUID v7): lexicographic order
// tracks creation order, which the task queue and membership cursor both
// rely on.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the system clock or RNG is broken;
		// falling back to v4 keeps the process alive but loses ordering.
		return uuid.New()
	}
	return id
}

// Entry is a materialized inbox row. Invariant E1: (MessageID, UserID) is
// unique. Invariant E2: TopicUserIDs is a deduplicated union of every
// membership that caused this entry to be created.
type Entry struct {
	EntryID      uuid.UUID
	UserID       uuid.UUID
	MessageID    uuid.UUID
	TopicUserIDs []uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewEntry builds an Entry for a single originating membership. Callers
// merge TopicUserIDs across re-deliveries via Repository.UpsertEntry.
func NewEntry(userID, messageID uuid.UUID, topicUserIDs []uuid.UUID) Entry {
	now := time.Now().UTC()
	return Entry{
		EntryID:      NewID(),
		UserID:       userID,
		MessageID:    messageID,
		TopicUserIDs: topicUserIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TopicUser is a membership record linking a user to a topic. Invariant
// T1: TopicUserID is globally unique and monotone with creation time,
// which lets it double as a pagination cursor.
type TopicUser struct {
	TopicUserID uuid.UUID
	TopicID     uuid.UUID
	UserID      uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTopicUser builds a membership record with the identifiers carried on
// the bus event — the topic_user_id is assigned upstream, not minted here.
func NewTopicUser(topicUserID, topicID, userID uuid.UUID) TopicUser {
	now := time.Now().UTC()
	return TopicUser{
		TopicUserID: topicUserID,
		TopicID:     topicID,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// PayloadKind discriminates Task.Payload's tagged variants. Stored as the
// payload's "kind" field so new variants can be added without migrating
// existing rows.
type PayloadKind string

// CreateMessageTopicKind is currently the only task payload variant.
const CreateMessageTopicKind PayloadKind = "create_message_topic"

// CreateMessageTopicPayload resumes fanout for one (message, topic) pair
// at LastTopicUserID, or from the start if nil.
type CreateMessageTopicPayload struct {
	MessageID        uuid.UUID  `json:"message_id"`
	TopicID          uuid.UUID  `json:"topic_id"`
	LastTopicUserID  *uuid.UUID `json:"last_topic_user_id,omitempty"`
}

// TaskPayload is the tagged-union envelope persisted as Task.Payload. Kind
// selects which of the variant fields is populated; reimplementations
// adding a variant add a field here and a case everywhere Kind is
// switched on.
type TaskPayload struct {
	Kind                PayloadKind                `json:"kind"`
	CreateMessageTopic  *CreateMessageTopicPayload `json:"create_message_topic,omitempty"`
}

// NewCreateMessageTopicPayload builds the envelope for the sole payload
// variant.
func NewCreateMessageTopicPayload(messageID, topicID uuid.UUID, lastTopicUserID *uuid.UUID) TaskPayload {
	return TaskPayload{
		Kind: CreateMessageTopicKind,
		CreateMessageTopic: &CreateMessageTopicPayload{
			MessageID:       messageID,
			TopicID:         topicID,
			LastTopicUserID: lastTopicUserID,
		},
	}
}

// Task is a unit of pending fanout work. Invariant K1: a task is visible
// iff LockedAt is nil or older than VisibilityTimeout. Invariant K2:
// completion is signalled by deletion; partial progress by rewriting
// Payload.CreateMessageTopic.LastTopicUserID.
type Task struct {
	TaskID    uuid.UUID
	Payload   TaskPayload
	LockedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTask wraps a payload in a fresh, unlocked task row.
func NewTask(payload TaskPayload) Task {
	now := time.Now().UTC()
	return Task{
		TaskID:    NewID(),
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
