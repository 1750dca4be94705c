// Package bus decodes the two external event payloads and runs the two
// durable pull consumers against NATS JetStream.
package bus

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MessagePayload is the message-event schema: a published message and the
// topics it was posted to.
type MessagePayload struct {
	MessageID string
	TopicIDs  []string
}

// TopicUserPayload is the topic-user event schema. The event kind
// (Created/Updated/Deleted) travels in the bus header, not the body.
type TopicUserPayload struct {
	TopicUserID string
	TopicID     string
	UserID      string
}

const (
	messageFieldMessageID protowire.Number = 1
	messageFieldTopicIDs  protowire.Number = 2

	topicUserFieldTopicUserID protowire.Number = 1
	topicUserFieldTopicID     protowire.Number = 2
	topicUserFieldUserID      protowire.Number = 3
)

// EncodeMessagePayload writes the protocol-buffers wire encoding of a
// MessagePayload by hand: each field is a plain length-delimited string,
// so no generated descriptor is needed to produce or consume it.
func EncodeMessagePayload(p MessagePayload) []byte {
	var b []byte
	b = protowire.AppendTag(b, messageFieldMessageID, protowire.BytesType)
	b = protowire.AppendString(b, p.MessageID)
	for _, topicID := range p.TopicIDs {
		b = protowire.AppendTag(b, messageFieldTopicIDs, protowire.BytesType)
		b = protowire.AppendString(b, topicID)
	}
	return b
}

// DecodeMessagePayload parses the wire format EncodeMessagePayload writes.
func DecodeMessagePayload(data []byte) (MessagePayload, error) {
	var p MessagePayload
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return MessagePayload{}, fmt.Errorf("bus: decode message payload: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == messageFieldMessageID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return MessagePayload{}, fmt.Errorf("bus: decode message_id: %w", protowire.ParseError(n))
			}
			p.MessageID = v
			data = data[n:]
		case num == messageFieldTopicIDs && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return MessagePayload{}, fmt.Errorf("bus: decode topic_ids entry: %w", protowire.ParseError(n))
			}
			p.TopicIDs = append(p.TopicIDs, v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return MessagePayload{}, fmt.Errorf("bus: skip unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return p, nil
}

// EncodeTopicUserPayload writes the wire encoding of a TopicUserPayload.
func EncodeTopicUserPayload(p TopicUserPayload) []byte {
	var b []byte
	b = protowire.AppendTag(b, topicUserFieldTopicUserID, protowire.BytesType)
	b = protowire.AppendString(b, p.TopicUserID)
	b = protowire.AppendTag(b, topicUserFieldTopicID, protowire.BytesType)
	b = protowire.AppendString(b, p.TopicID)
	b = protowire.AppendTag(b, topicUserFieldUserID, protowire.BytesType)
	b = protowire.AppendString(b, p.UserID)
	return b
}

// DecodeTopicUserPayload parses the wire format EncodeTopicUserPayload
// writes.
func DecodeTopicUserPayload(data []byte) (TopicUserPayload, error) {
	var p TopicUserPayload
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return TopicUserPayload{}, fmt.Errorf("bus: decode topic_user payload: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return TopicUserPayload{}, fmt.Errorf("bus: skip unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeString(data)
		if n < 0 {
			return TopicUserPayload{}, fmt.Errorf("bus: decode field %d: %w", num, protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case topicUserFieldTopicUserID:
			p.TopicUserID = v
		case topicUserFieldTopicID:
			p.TopicID = v
		case topicUserFieldUserID:
			p.UserID = v
		}
	}
	return p, nil
}
