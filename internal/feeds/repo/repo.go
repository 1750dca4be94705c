// Package repo is the sole gateway to persistent state: entries,
// topic-user memberships, and the task queue. ClaimEarliestTasks folds
// the select-and-lock step into a single statement (a FOR UPDATE SKIP
// LOCKED CTE feeding an UPDATE), so callers never need to open their own
// transaction to claim work.
package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/bez-dna/bzd-flux/internal/feeds"
)

// MembershipPage is one page of topic-user rows, ordered by TopicUserID
// descending.
type MembershipPage struct {
	Items []feeds.TopicUser
}

// EntryPage is one page of entries, ordered by EntryID descending. The
// read service requests one row more than it returns and pops that row
// off to detect the next page.
type EntryPage struct {
	Items []feeds.Entry
}

// Repository is the typed persistence surface described in spec §4.1.
type Repository interface {
	// CreateTask inserts a new task row. Fails on primary-key collision;
	// callers never retry with the same id.
	CreateTask(ctx context.Context, task feeds.Task) error

	// UpsertTopicUser inserts a membership row, doing nothing on a
	// topic_user_id conflict. Idempotent under redelivery.
	UpsertTopicUser(ctx context.Context, m feeds.TopicUser) error

	// DeleteTopicUser hard-deletes a membership row by primary key. A
	// missing row is not an error.
	DeleteTopicUser(ctx context.Context, topicUserID uuid.UUID) error

	// ClaimEarliestTasks atomically selects up to limit visible tasks
	// (locked_at IS NULL OR locked_at < now-VisibilityTimeout), FIFO by
	// task_id, skipping rows already locked by another worker, then
	// marks them locked_at = now in the same transaction.
	ClaimEarliestTasks(ctx context.Context, limit int) ([]feeds.Task, error)

	// AdvanceTask rewrites a task's payload and bumps updated_at; used
	// when a task has more fanout work to do.
	AdvanceTask(ctx context.Context, taskID uuid.UUID, payload feeds.TaskPayload) error

	// DeleteTask hard-deletes a task row by primary key; used once
	// fanout for that task completes.
	DeleteTask(ctx context.Context, taskID uuid.UUID) error

	// ListTopicMemberships returns up to limit topic_user rows for
	// topicID ordered by topic_user_id descending, optionally resuming
	// strictly after (i.e. below) afterTopicUserID.
	ListTopicMemberships(ctx context.Context, topicID uuid.UUID, afterTopicUserID *uuid.UUID, limit int) (MembershipPage, error)

	// UpsertEntry inserts an entry, or on a (message_id, user_id)
	// conflict merges the incoming topic_user_ids into the stored set
	// (deduplicated union — invariant E2).
	UpsertEntry(ctx context.Context, entry feeds.Entry) error

	// ListUserEntries returns entries for userID ordered by entry_id
	// descending, at most limit rows, optionally bounded by
	// entry_id <= cursorEntryID.
	ListUserEntries(ctx context.Context, userID uuid.UUID, cursorEntryID *uuid.UUID, limit int) (EntryPage, error)
}
