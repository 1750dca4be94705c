package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bez-dna/bzd-flux/internal/feeds"
	"github.com/bez-dna/bzd-flux/internal/feeds/repo"
)

func TestApplyCreatedThenDuplicateThenDeletedLeavesNoRow(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	svc := New(store, nil)

	topicUserID, topicID, userID := feeds.NewID(), feeds.NewID(), feeds.NewID()

	require.NoError(t, svc.Apply(ctx, Created, topicUserID, topicID, userID))
	require.NoError(t, svc.Apply(ctx, Created, topicUserID, topicID, userID)) // redelivery

	page, err := store.ListTopicMemberships(ctx, topicID, nil, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	require.NoError(t, svc.Apply(ctx, Deleted, topicUserID, topicID, userID))

	page, err = store.ListTopicMemberships(ctx, topicID, nil, 50)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestParseEventTypeRejectsUnknownValue(t *testing.T) {
	_, err := ParseEventType("Archived")
	assert.ErrorIs(t, err, feeds.ErrUnknownMembershipEventType)
}
