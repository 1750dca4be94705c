package fanout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bez-dna/bzd-flux/internal/feeds"
	"github.com/bez-dna/bzd-flux/internal/feeds/repo"
)

func seedMembership(t *testing.T, store *repo.Memory, topicID, userID uuid.UUID) feeds.TopicUser {
	t.Helper()
	tu := feeds.NewTopicUser(feeds.NewID(), topicID, userID)
	require.NoError(t, store.UpsertTopicUser(context.Background(), tu))
	return tu
}

func TestCreateEntriesForMessageTopicPaginatesAndCompletes(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	svc := New(store)

	topicID, messageID := feeds.NewID(), feeds.NewID()
	u1, u2 := feeds.NewID(), feeds.NewID()
	tu1 := seedMembership(t, store, topicID, u1)
	tu2 := seedMembership(t, store, topicID, u2)

	cursor, err := svc.CreateEntriesForMessageTopic(ctx, messageID, topicID, nil)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	// Cursor is the smallest topic_user_id seen, i.e. the earlier-created one.
	assert.Equal(t, tu1.TopicUserID, *cursor)

	page, err := store.ListUserEntries(ctx, u1, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, []uuid.UUID{tu1.TopicUserID}, page.Items[0].TopicUserIDs)

	page, err = store.ListUserEntries(ctx, u2, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, []uuid.UUID{tu2.TopicUserID}, page.Items[0].TopicUserIDs)

	// Next call, resuming from the cursor, sees no more members: done.
	cursor, err = svc.CreateEntriesForMessageTopic(ctx, messageID, topicID, cursor)
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestCreateEntriesForMessageTopicEmptyTopicCompletesImmediately(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	svc := New(store)

	cursor, err := svc.CreateEntriesForMessageTopic(ctx, feeds.NewID(), feeds.NewID(), nil)
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestCreateEntriesForMessageTopicRedeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	svc := New(store)

	topicID, messageID, userID := feeds.NewID(), feeds.NewID(), feeds.NewID()
	seedMembership(t, store, topicID, userID)

	_, err := svc.CreateEntriesForMessageTopic(ctx, messageID, topicID, nil)
	require.NoError(t, err)
	_, err = svc.CreateEntriesForMessageTopic(ctx, messageID, topicID, nil)
	require.NoError(t, err)

	page, err := store.ListUserEntries(ctx, userID, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Len(t, page.Items[0].TopicUserIDs, 1)
}

func TestCreateEntriesForMessageTopicCrossTopicUnion(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	svc := New(store)

	userID, messageID := feeds.NewID(), feeds.NewID()
	topic1, topic2 := feeds.NewID(), feeds.NewID()
	tu1 := seedMembership(t, store, topic1, userID)
	tu2 := seedMembership(t, store, topic2, userID)

	_, err := svc.CreateEntriesForMessageTopic(ctx, messageID, topic1, nil)
	require.NoError(t, err)
	_, err = svc.CreateEntriesForMessageTopic(ctx, messageID, topic2, nil)
	require.NoError(t, err)

	page, err := store.ListUserEntries(ctx, userID, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.ElementsMatch(t, []uuid.UUID{tu1.TopicUserID, tu2.TopicUserID}, page.Items[0].TopicUserIDs)
}
