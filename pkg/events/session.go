package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/lithammer/shortuuid/v3"
)

const sessionIDMetadataKey = "session_id"

// NewSessionID returns a short random id that tells the events of one
// process apart from another's in shared logs.
func NewSessionID() string {
	return shortuuid.New()
}

// SessionPublisherDecorator stamps every outgoing message with the session id
// unless the message already carries one.
type SessionPublisherDecorator struct {
	message.Publisher
	SessionID string
}

func (s SessionPublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		if messages[i].Metadata.Get(sessionIDMetadataKey) != "" {
			continue
		}
		messages[i].Metadata.Set(sessionIDMetadataKey, s.SessionID)
	}
	return s.Publisher.Publish(topic, messages...)
}

func decodeMessage(msg *message.Message) (TreeEvent, error) {
	ev, err := NewTreeEventFromJson(msg.Payload)
	if err != nil {
		return ev, err
	}
	ev.SessionID = msg.Metadata.Get(sessionIDMetadataKey)
	return ev, nil
}
