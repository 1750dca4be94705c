package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bez-dna/bzd-flux/internal/feeds"
)

// Memory is an in-memory Repository used by the rest of this module's
// test suites in place of a live Postgres instance. It keeps the same
// ordering and conflict semantics as the Postgres implementation —
// FIFO task claiming, deduplicated entry merges — without a database.
type Memory struct {
	mu sync.Mutex

	tasks       map[uuid.UUID]feeds.Task
	topicsUsers map[uuid.UUID]feeds.TopicUser
	entries     map[uuid.UUID]feeds.Entry

	// VisibilityTimeout overrides feeds.VisibilityTimeout for tests that
	// want to exercise reclaim without sleeping for the real duration.
	VisibilityTimeout time.Duration
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		tasks:             make(map[uuid.UUID]feeds.Task),
		topicsUsers:       make(map[uuid.UUID]feeds.TopicUser),
		entries:           make(map[uuid.UUID]feeds.Entry),
		VisibilityTimeout: feeds.VisibilityTimeout,
	}
}

func (m *Memory) CreateTask(_ context.Context, task feeds.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[task.TaskID]; exists {
		return fmt.Errorf("repo: create task: duplicate task_id %s", task.TaskID)
	}
	m.tasks[task.TaskID] = task
	return nil
}

func (m *Memory) UpsertTopicUser(_ context.Context, tu feeds.TopicUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.topicsUsers[tu.TopicUserID]; exists {
		return nil
	}
	m.topicsUsers[tu.TopicUserID] = tu
	return nil
}

func (m *Memory) DeleteTopicUser(_ context.Context, topicUserID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.topicsUsers, topicUserID)
	return nil
}

func (m *Memory) ClaimEarliestTasks(_ context.Context, limit int) ([]feeds.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	visible := make([]feeds.Task, 0, len(m.tasks))
	now := time.Now()
	for _, t := range m.tasks {
		if t.LockedAt == nil || now.Sub(*t.LockedAt) > m.VisibilityTimeout {
			visible = append(visible, t)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].TaskID.String() < visible[j].TaskID.String()
	})
	if len(visible) > limit {
		visible = visible[:limit]
	}

	for i := range visible {
		visible[i].LockedAt = &now
		visible[i].UpdatedAt = now
		m.tasks[visible[i].TaskID] = visible[i]
	}
	return visible, nil
}

func (m *Memory) AdvanceTask(_ context.Context, taskID uuid.UUID, payload feeds.TaskPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return feeds.ErrTaskNotFound
	}
	task.Payload = payload
	task.UpdatedAt = time.Now()
	m.tasks[taskID] = task
	return nil
}

func (m *Memory) DeleteTask(_ context.Context, taskID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tasks, taskID)
	return nil
}

func (m *Memory) ListTopicMemberships(_ context.Context, topicID uuid.UUID, afterTopicUserID *uuid.UUID, limit int) (MembershipPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches := make([]feeds.TopicUser, 0)
	for _, tu := range m.topicsUsers {
		if tu.TopicID == topicID {
			matches = append(matches, tu)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].TopicUserID.String() > matches[j].TopicUserID.String()
	})

	if afterTopicUserID != nil {
		cut := 0
		for cut < len(matches) && matches[cut].TopicUserID.String() >= afterTopicUserID.String() {
			cut++
		}
		matches = matches[cut:]
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return MembershipPage{Items: matches}, nil
}

func (m *Memory) UpsertEntry(_ context.Context, entry feeds.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.entries {
		if existing.MessageID == entry.MessageID && existing.UserID == entry.UserID {
			existing.TopicUserIDs = unionIDs(existing.TopicUserIDs, entry.TopicUserIDs)
			existing.UpdatedAt = entry.UpdatedAt
			m.entries[id] = existing
			return nil
		}
	}
	m.entries[entry.EntryID] = entry
	return nil
}

func (m *Memory) ListUserEntries(_ context.Context, userID uuid.UUID, cursorEntryID *uuid.UUID, limit int) (EntryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches := make([]feeds.Entry, 0)
	for _, e := range m.entries {
		if e.UserID == userID {
			matches = append(matches, e)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].EntryID.String() > matches[j].EntryID.String()
	})

	if cursorEntryID != nil {
		cut := 0
		for cut < len(matches) && matches[cut].EntryID.String() > cursorEntryID.String() {
			cut++
		}
		matches = matches[cut:]
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return EntryPage{Items: matches}, nil
}

func unionIDs(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(a)+len(b))
	out := make([]uuid.UUID, 0, len(a)+len(b))
	for _, ids := range [][]uuid.UUID{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
