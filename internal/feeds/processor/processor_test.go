package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bez-dna/bzd-flux/internal/feeds"
	"github.com/bez-dna/bzd-flux/internal/feeds/fanout"
	"github.com/bez-dna/bzd-flux/internal/feeds/queue"
	"github.com/bez-dna/bzd-flux/internal/feeds/repo"
	"github.com/bez-dna/bzd-flux/internal/logging"
)

func TestTickCompletesEmptyTopicInOneCycle(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	q := queue.New(store, nil)
	f := fanout.New(store)
	p := New(q, f, logging.NewNop())

	messageID, topicID := feeds.NewID(), feeds.NewID()
	require.NoError(t, q.EnqueueCreateMessageTopic(ctx, messageID, topicID))

	require.NoError(t, p.Tick(ctx))

	claimed, err := store.ClaimEarliestTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed, "task should have been deleted on empty-topic completion")
}

func TestTickAdvancesAndLaterCompletesASingleMemberTopic(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	store.VisibilityTimeout = time.Millisecond
	q := queue.New(store, nil)
	f := fanout.New(store)
	p := New(q, f, logging.NewNop())

	messageID, topicID := feeds.NewID(), feeds.NewID()
	userID := feeds.NewID()
	tu := feeds.NewTopicUser(feeds.NewID(), topicID, userID)
	require.NoError(t, store.UpsertTopicUser(ctx, tu))
	require.NoError(t, q.EnqueueCreateMessageTopic(ctx, messageID, topicID))

	require.NoError(t, p.Tick(ctx))

	page, err := store.ListUserEntries(ctx, userID, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	// Once the lease has expired, a second tick sees no more membership
	// beyond the cursor and retires the task.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p.Tick(ctx))
	claimed, err := store.ClaimEarliestTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}
