package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bez-dna/bzd-flux/internal/feeds"
)

func TestMemoryClaimEarliestTasksIsFIFOAndSkipsLocked(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	older := feeds.NewTask(feeds.NewCreateMessageTopicPayload(feeds.NewID(), feeds.NewID(), nil))
	time.Sleep(time.Millisecond)
	newer := feeds.NewTask(feeds.NewCreateMessageTopicPayload(feeds.NewID(), feeds.NewID(), nil))

	require.NoError(t, m.CreateTask(ctx, older))
	require.NoError(t, m.CreateTask(ctx, newer))

	claimed, err := m.ClaimEarliestTasks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, older.TaskID, claimed[0].TaskID)

	// Still locked: a second claim must skip it and return the newer task.
	claimed, err = m.ClaimEarliestTasks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, newer.TaskID, claimed[0].TaskID)
}

func TestMemoryClaimEarliestTasksReclaimsAfterVisibilityTimeout(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.VisibilityTimeout = time.Millisecond

	task := feeds.NewTask(feeds.NewCreateMessageTopicPayload(feeds.NewID(), feeds.NewID(), nil))
	require.NoError(t, m.CreateTask(ctx, task))

	_, err := m.ClaimEarliestTasks(ctx, 1)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	claimed, err := m.ClaimEarliestTasks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, task.TaskID, claimed[0].TaskID)
}

func TestMemoryUpsertEntryMergesTopicUserIDs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	userID, messageID := feeds.NewID(), feeds.NewID()
	firstTopicUser, secondTopicUser := feeds.NewID(), feeds.NewID()

	first := feeds.NewEntry(userID, messageID, []uuid.UUID{firstTopicUser})
	require.NoError(t, m.UpsertEntry(ctx, first))

	second := feeds.NewEntry(userID, messageID, []uuid.UUID{secondTopicUser})
	require.NoError(t, m.UpsertEntry(ctx, second))

	page, err := m.ListUserEntries(ctx, userID, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.ElementsMatch(t, []uuid.UUID{firstTopicUser, secondTopicUser}, page.Items[0].TopicUserIDs)
}
