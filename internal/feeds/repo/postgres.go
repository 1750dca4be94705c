package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bez-dna/bzd-flux/internal/feeds"
)

// Postgres is the pgx-backed Repository implementation. It is the sole
// gateway to persistent state; every operation below maps directly to
// one contract from spec §4.1.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Postgres)(nil)

// NewPostgres wraps an already-connected pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) CreateTask(ctx context.Context, task feeds.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("repo: marshal task payload: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO tasks (task_id, payload, locked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		task.TaskID.String(), payload, task.LockedAt, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repo: create task: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertTopicUser(ctx context.Context, m feeds.TopicUser) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO topics_users (topic_user_id, topic_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (topic_user_id) DO NOTHING`,
		m.TopicUserID.String(), m.TopicID.String(), m.UserID.String(), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repo: upsert topic_user: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteTopicUser(ctx context.Context, topicUserID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM topics_users WHERE topic_user_id = $1`, topicUserID.String())
	if err != nil {
		return fmt.Errorf("repo: delete topic_user: %w", err)
	}
	return nil
}

// ClaimEarliestTasks selects and locks up to limit visible tasks in one
// statement: the CTE's FOR UPDATE SKIP LOCKED picks the set, the outer
// UPDATE stamps locked_at in the same pass, so concurrent workers never
// block on each other for the head of the queue.
func (p *Postgres) ClaimEarliestTasks(ctx context.Context, limit int) ([]feeds.Task, error) {
	rows, err := p.pool.Query(ctx, `
		WITH candidates AS (
			SELECT task_id FROM tasks
			WHERE locked_at IS NULL OR locked_at < now() - interval '5 seconds'
			ORDER BY task_id ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE tasks t
		SET locked_at = now(), updated_at = now()
		FROM candidates c
		WHERE t.task_id = c.task_id
		RETURNING t.task_id, t.payload, t.locked_at, t.created_at, t.updated_at`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("repo: claim earliest tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, fmt.Errorf("repo: scan claimed tasks: %w", err)
	}
	return tasks, nil
}

func (p *Postgres) AdvanceTask(ctx context.Context, taskID uuid.UUID, payload feeds.TaskPayload) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("repo: marshal advanced payload: %w", err)
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE tasks SET payload = $2, updated_at = now() WHERE task_id = $1`,
		taskID.String(), encoded)
	if err != nil {
		return fmt.Errorf("repo: advance task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return feeds.ErrTaskNotFound
	}
	return nil
}

func (p *Postgres) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM tasks WHERE task_id = $1`, taskID.String())
	if err != nil {
		return fmt.Errorf("repo: delete task: %w", err)
	}
	return nil
}

func (p *Postgres) ListTopicMemberships(ctx context.Context, topicID uuid.UUID, afterTopicUserID *uuid.UUID, limit int) (MembershipPage, error) {
	var rows pgx.Rows
	var err error

	if afterTopicUserID != nil {
		rows, err = p.pool.Query(ctx, `
			SELECT topic_user_id, topic_id, user_id, created_at, updated_at
			FROM topics_users
			WHERE topic_id = $1 AND topic_user_id < $2
			ORDER BY topic_user_id DESC
			LIMIT $3`,
			topicID.String(), afterTopicUserID.String(), limit)
	} else {
		rows, err = p.pool.Query(ctx, `
			SELECT topic_user_id, topic_id, user_id, created_at, updated_at
			FROM topics_users
			WHERE topic_id = $1
			ORDER BY topic_user_id DESC
			LIMIT $2`,
			topicID.String(), limit)
	}
	if err != nil {
		return MembershipPage{}, fmt.Errorf("repo: list topic memberships: %w", err)
	}
	defer rows.Close()

	var page MembershipPage
	for rows.Next() {
		var (
			topicUserID, topicUserTopicID, userID string
			m                                     feeds.TopicUser
		)
		if err := rows.Scan(&topicUserID, &topicUserTopicID, &userID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return MembershipPage{}, fmt.Errorf("repo: scan membership: %w", err)
		}
		if m.TopicUserID, err = uuid.Parse(topicUserID); err != nil {
			return MembershipPage{}, fmt.Errorf("repo: parse topic_user_id: %w", err)
		}
		if m.TopicID, err = uuid.Parse(topicUserTopicID); err != nil {
			return MembershipPage{}, fmt.Errorf("repo: parse topic_id: %w", err)
		}
		if m.UserID, err = uuid.Parse(userID); err != nil {
			return MembershipPage{}, fmt.Errorf("repo: parse user_id: %w", err)
		}
		page.Items = append(page.Items, m)
	}
	if err := rows.Err(); err != nil {
		return MembershipPage{}, fmt.Errorf("repo: list topic memberships: %w", err)
	}
	return page, nil
}

// UpsertEntry inserts an entry, or on a (message_id, user_id) conflict
// merges the incoming topic_user_ids into the stored set — the
// array(select distinct ...) expression from spec §4.1, expressed
// against the text[] array this repository stores the set as.
func (p *Postgres) UpsertEntry(ctx context.Context, entry feeds.Entry) error {
	ids := make([]string, len(entry.TopicUserIDs))
	for i, id := range entry.TopicUserIDs {
		ids[i] = id.String()
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO entries (entry_id, user_id, message_id, topic_user_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id, user_id) DO UPDATE SET
			topic_user_ids = (
				SELECT array(SELECT DISTINCT x FROM unnest(entries.topic_user_ids || excluded.topic_user_ids) x)
			),
			updated_at = excluded.updated_at`,
		entry.EntryID.String(), entry.UserID.String(), entry.MessageID.String(), ids, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repo: upsert entry: %w", err)
	}
	return nil
}

func (p *Postgres) ListUserEntries(ctx context.Context, userID uuid.UUID, cursorEntryID *uuid.UUID, limit int) (EntryPage, error) {
	var rows pgx.Rows
	var err error

	if cursorEntryID != nil {
		rows, err = p.pool.Query(ctx, `
			SELECT entry_id, user_id, message_id, topic_user_ids, created_at, updated_at
			FROM entries
			WHERE user_id = $1 AND entry_id <= $2
			ORDER BY entry_id DESC
			LIMIT $3`,
			userID.String(), cursorEntryID.String(), limit)
	} else {
		rows, err = p.pool.Query(ctx, `
			SELECT entry_id, user_id, message_id, topic_user_ids, created_at, updated_at
			FROM entries
			WHERE user_id = $1
			ORDER BY entry_id DESC
			LIMIT $2`,
			userID.String(), limit)
	}
	if err != nil {
		return EntryPage{}, fmt.Errorf("repo: list user entries: %w", err)
	}
	defer rows.Close()

	var page EntryPage
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return EntryPage{}, fmt.Errorf("repo: scan entry: %w", err)
		}
		page.Items = append(page.Items, entry)
	}
	if err := rows.Err(); err != nil {
		return EntryPage{}, fmt.Errorf("repo: list user entries: %w", err)
	}
	return page, nil
}

func scanEntry(rows pgx.Rows) (feeds.Entry, error) {
	var (
		entryID, userID, messageID string
		topicUserIDs                []string
		entry                       feeds.Entry
	)
	if err := rows.Scan(&entryID, &userID, &messageID, &topicUserIDs, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return feeds.Entry{}, err
	}

	var err error
	if entry.EntryID, err = uuid.Parse(entryID); err != nil {
		return feeds.Entry{}, fmt.Errorf("parse entry_id: %w", err)
	}
	if entry.UserID, err = uuid.Parse(userID); err != nil {
		return feeds.Entry{}, fmt.Errorf("parse user_id: %w", err)
	}
	if entry.MessageID, err = uuid.Parse(messageID); err != nil {
		return feeds.Entry{}, fmt.Errorf("parse message_id: %w", err)
	}
	entry.TopicUserIDs = make([]uuid.UUID, len(topicUserIDs))
	for i, id := range topicUserIDs {
		if entry.TopicUserIDs[i], err = uuid.Parse(id); err != nil {
			return feeds.Entry{}, fmt.Errorf("parse topic_user_id: %w", err)
		}
	}

	return entry, nil
}

func scanTasks(rows pgx.Rows) ([]feeds.Task, error) {
	var tasks []feeds.Task
	for rows.Next() {
		var (
			taskID  string
			payload []byte
			task    feeds.Task
		)
		if err := rows.Scan(&taskID, &payload, &task.LockedAt, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, err
		}

		id, err := uuid.Parse(taskID)
		if err != nil {
			return nil, fmt.Errorf("parse task_id: %w", err)
		}
		task.TaskID = id

		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}

		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
