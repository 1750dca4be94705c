package feeds

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsTimeOrdered(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.Equal(t, uuid.Version(7), a.Version())
	assert.LessOrEqual(t, a.String(), b.String())
}

func TestTaskPayloadJSONRoundTrip(t *testing.T) {
	messageID, topicID, lastID := NewID(), NewID(), NewID()
	payload := NewCreateMessageTopicPayload(messageID, topicID, &lastID)

	encoded, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded TaskPayload
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, CreateMessageTopicKind, decoded.Kind)
	require.NotNil(t, decoded.CreateMessageTopic)
	assert.Equal(t, messageID, decoded.CreateMessageTopic.MessageID)
	assert.Equal(t, topicID, decoded.CreateMessageTopic.TopicID)
	require.NotNil(t, decoded.CreateMessageTopic.LastTopicUserID)
	assert.Equal(t, lastID, *decoded.CreateMessageTopic.LastTopicUserID)
}

func TestTaskPayloadNilCursorOmitted(t *testing.T) {
	payload := NewCreateMessageTopicPayload(NewID(), NewID(), nil)

	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "last_topic_user_id")
}

func TestNewEntryDefaults(t *testing.T) {
	userID, messageID, topicUserID := NewID(), NewID(), NewID()
	entry := NewEntry(userID, messageID, []uuid.UUID{topicUserID})

	assert.Equal(t, userID, entry.UserID)
	assert.Equal(t, messageID, entry.MessageID)
	assert.Equal(t, []uuid.UUID{topicUserID}, entry.TopicUserIDs)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, entry.CreatedAt, entry.UpdatedAt)
}
