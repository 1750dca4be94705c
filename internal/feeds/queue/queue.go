// Package queue wraps Repository's task table with the small state-machine
// vocabulary the rest of the service uses: Enqueue, Claim, Advance,
// Complete. It owns no storage of its own — the task table doubles as the
// durable queue, per spec.
package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bez-dna/bzd-flux/internal/feeds"
	"github.com/bez-dna/bzd-flux/internal/feeds/events"
	"github.com/bez-dna/bzd-flux/internal/feeds/repo"
)

// BatchSize bounds how many tasks a single processor tick claims.
const BatchSize = 25

// Queue is the task-queue component: a thin, named facade over
// repo.Repository's task operations.
type Queue struct {
	repo    repo.Repository
	emitter events.Emitter
}

// New wraps a Repository. emitter may be nil, in which case task
// lifecycle events are simply not published.
func New(r repo.Repository, emitter events.Emitter) *Queue {
	return &Queue{repo: r, emitter: emitter}
}

// EnqueueCreateMessageTopic creates a fresh, unleased fan-out task for one
// (message, topic) pair. Called once per topic_id on a message event —
// N topics produce N independent tasks.
func (q *Queue) EnqueueCreateMessageTopic(ctx context.Context, messageID, topicID uuid.UUID) error {
	task := feeds.NewTask(feeds.NewCreateMessageTopicPayload(messageID, topicID, nil))
	if err := q.repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("queue: enqueue create_message_topic: %w", err)
	}
	q.emit(ctx, events.TypeTaskEnqueued, events.TaskEnqueuedPayload{
		TaskID: task.TaskID, MessageID: messageID, TopicID: topicID,
	})
	return nil
}

// Claim leases up to BatchSize visible tasks, FIFO by task_id, for the
// calling processor tick.
func (q *Queue) Claim(ctx context.Context) ([]feeds.Task, error) {
	tasks, err := q.repo.ClaimEarliestTasks(ctx, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("queue: claim: %w", err)
	}
	return tasks, nil
}

// Advance records partial fan-out progress: the task stays leased and
// payload.last_topic_user_id moves to cursor so the next claim resumes
// from there.
func (q *Queue) Advance(ctx context.Context, taskID uuid.UUID, messageID, topicID, cursor uuid.UUID) error {
	payload := feeds.NewCreateMessageTopicPayload(messageID, topicID, &cursor)
	if err := q.repo.AdvanceTask(ctx, taskID, payload); err != nil {
		return fmt.Errorf("queue: advance task %s: %w", taskID, err)
	}
	q.emit(ctx, events.TypeTaskAdvanced, events.TaskAdvancedPayload{TaskID: taskID, Cursor: cursor})
	return nil
}

// Complete retires a task once fan-out has walked every membership page.
func (q *Queue) Complete(ctx context.Context, taskID uuid.UUID) error {
	if err := q.repo.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("queue: complete task %s: %w", taskID, err)
	}
	q.emit(ctx, events.TypeTaskCompleted, events.TaskCompletedPayload{TaskID: taskID})
	return nil
}

func (q *Queue) emit(ctx context.Context, eventType string, data any) {
	if q.emitter == nil {
		return
	}
	_ = q.emitter.Emit(ctx, events.NewEvent(eventType, data))
}
