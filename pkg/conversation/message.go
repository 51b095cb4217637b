package conversation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-go-golems/chatpath/pkg/summary"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type MessageID string

type BranchPointID string

// BranchPoint marks the [StartOffset, EndOffset) rune range of a message that
// seeded the child node ChildNodeID.
type BranchPoint struct {
	ID           BranchPointID `json:"id"`
	MessageID    MessageID     `json:"messageId"`
	SelectedText string        `json:"selectedText"`
	StartOffset  int           `json:"startOffset" jsonschema:"minimum=0"`
	EndOffset    int           `json:"endOffset" jsonschema:"minimum=1"`
	ChildNodeID  NodeID        `json:"childNodeId"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Message is immutable once created, except for BranchPoints which grows
// whenever a branch is carved out of it.
type Message struct {
	ID           MessageID     `json:"id"`
	Content      string        `json:"content"`
	Role         Role          `json:"role" jsonschema:"enum=user,enum=assistant"`
	Timestamp    time.Time     `json:"timestamp"`
	BranchPoints []BranchPoint `json:"branchPoints"`
}

type MessageOption func(*Message)

func WithTime(t time.Time) MessageOption {
	return func(message *Message) {
		message.Timestamp = t
	}
}

func WithID(id MessageID) MessageOption {
	return func(message *Message) {
		message.ID = id
	}
}

func NewMessage(role Role, content string, options ...MessageOption) Message {
	ret := Message{
		ID:           MessageID(newUUID()),
		Content:      content,
		Role:         role,
		Timestamp:    Now(),
		BranchPoints: []BranchPoint{},
	}

	for _, option := range options {
		option(&ret)
	}

	return ret
}

// Serialize renders the message the way it is stored in a child's context.
func (m Message) Serialize() string {
	return fmt.Sprintf("%s: %s", m.Role, m.Content)
}

func (m Message) MarshalJSON() ([]byte, error) {
	type Alias Message
	a := Alias(m)
	if a.BranchPoints == nil {
		a.BranchPoints = []BranchPoint{}
	}
	return json.Marshal(a)
}

// Turns converts messages into the view consumed by summarizers.
func Turns(messages []Message) []summary.Turn {
	ret := make([]summary.Turn, 0, len(messages))
	for _, m := range messages {
		ret = append(ret, summary.Turn{Role: string(m.Role), Text: m.Content})
	}
	return ret
}

// Now is the timestamp precision used everywhere in the tree: UTC, truncated
// to milliseconds so that the ISO-8601 form round-trips exactly.
func Now() time.Time {
	return Timestamp(time.Now())
}

func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
