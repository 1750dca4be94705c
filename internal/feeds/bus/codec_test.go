package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagePayloadRoundTrip(t *testing.T) {
	p := MessagePayload{
		MessageID: "0191b1f0-0000-7000-8000-000000000001",
		TopicIDs: []string{
			"0191b1f0-0000-7000-8000-000000000010",
			"0191b1f0-0000-7000-8000-000000000011",
		},
	}

	decoded, err := DecodeMessagePayload(EncodeMessagePayload(p))
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestMessagePayloadEmptyTopicIDs(t *testing.T) {
	p := MessagePayload{MessageID: "0191b1f0-0000-7000-8000-000000000001"}

	decoded, err := DecodeMessagePayload(EncodeMessagePayload(p))
	require.NoError(t, err)
	assert.Equal(t, p.MessageID, decoded.MessageID)
	assert.Empty(t, decoded.TopicIDs)
}

func TestTopicUserPayloadRoundTrip(t *testing.T) {
	p := TopicUserPayload{
		TopicUserID: "0191b1f0-0000-7000-8000-000000000001",
		TopicID:     "0191b1f0-0000-7000-8000-000000000002",
		UserID:      "0191b1f0-0000-7000-8000-000000000003",
	}

	decoded, err := DecodeTopicUserPayload(EncodeTopicUserPayload(p))
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestDecodeMessagePayloadRejectsTruncatedInput(t *testing.T) {
	encoded := EncodeMessagePayload(MessagePayload{MessageID: "m"})
	_, err := DecodeMessagePayload(encoded[:len(encoded)-1])
	assert.Error(t, err)
}
