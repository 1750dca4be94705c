// Package events emits internal CloudEvents-formatted observability
// events for the fan-out pipeline's own lifecycle — task creation,
// fan-out progress, task completion — distinct from the external
// domain events the bus consumers decode.
package events

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/bez-dna/bzd-flux/internal/logging"
)

// Event type constants, CloudEvents reverse-domain style.
const (
	TypeTaskEnqueued      = "dev.bzd-flux.task.enqueued"
	TypeTaskAdvanced      = "dev.bzd-flux.task.advanced"
	TypeTaskCompleted     = "dev.bzd-flux.task.completed"
	TypeMembershipApplied = "dev.bzd-flux.membership.applied"
)

const source = "feeds-processor"

// Emitter is the narrow sink internal events are published to. In
// production it is a no-op or forwards to the logger.
type Emitter interface {
	Emit(ctx context.Context, event cloudevents.Event) error
}

// NewEvent builds a CloudEvents-formatted event with JSON data, the same
// shape the teacher framework's observer pattern uses.
func NewEvent(eventType string, data any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	return event
}

// LoggingEmitter logs every event at debug level instead of forwarding it
// anywhere; it is the default Emitter when no external sink is wired.
type LoggingEmitter struct {
	Log logging.Logger
}

func (e LoggingEmitter) Emit(_ context.Context, event cloudevents.Event) error {
	e.Log.Debug("internal event", "type", event.Type(), "id", event.ID())
	return nil
}

// TaskEnqueuedPayload is the data of a TypeTaskEnqueued event.
type TaskEnqueuedPayload struct {
	TaskID    uuid.UUID `json:"task_id"`
	MessageID uuid.UUID `json:"message_id"`
	TopicID   uuid.UUID `json:"topic_id"`
}

// TaskAdvancedPayload is the data of a TypeTaskAdvanced event.
type TaskAdvancedPayload struct {
	TaskID uuid.UUID `json:"task_id"`
	Cursor uuid.UUID `json:"cursor"`
}

// TaskCompletedPayload is the data of a TypeTaskCompleted event.
type TaskCompletedPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// MembershipAppliedPayload is the data of a TypeMembershipApplied event.
type MembershipAppliedPayload struct {
	TopicUserID uuid.UUID `json:"topic_user_id"`
	EventType   string    `json:"event_type"`
}
