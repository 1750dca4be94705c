package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bez-dna/bzd-flux/internal/feeds"
	"github.com/bez-dna/bzd-flux/internal/feeds/repo"
)

func TestEnqueueClaimAdvanceComplete(t *testing.T) {
	ctx := context.Background()
	q := New(repo.NewMemory(), nil)

	messageID, topicID := feeds.NewID(), feeds.NewID()
	require.NoError(t, q.EnqueueCreateMessageTopic(ctx, messageID, topicID))

	claimed, err := q.Claim(ctx)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	task := claimed[0]
	assert.Nil(t, task.Payload.CreateMessageTopic.LastTopicUserID)

	// While leased, a second claim sees nothing.
	claimed, err = q.Claim(ctx)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	cursor := feeds.NewID()
	require.NoError(t, q.Advance(ctx, task.TaskID, messageID, topicID, cursor))
	require.NoError(t, q.Complete(ctx, task.TaskID))
}
