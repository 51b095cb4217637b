package events

import (
	"encoding/json"
	"time"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/iancoleman/strcase"
)

// TopicTree carries a TreeEvent after every dispatched action.
const TopicTree = "chatpath.tree"

type EventType string

const (
	// EventTypeReply is published when a scheduled assistant reply failed.
	EventTypeReply EventType = "reply"
)

// TypeForAction turns an action name into an event type, for example
// CreateBranch into create_branch.
func TypeForAction(name string) EventType {
	return EventType(strcase.ToSnake(name))
}

// TreeEvent is a summary of the session state right after a transition.
// Renderers use it as a signal to re-read the state from the store.
type TreeEvent struct {
	Type               EventType `json:"type"`
	ActiveNodeID       string    `json:"active_node_id,omitempty"`
	ShouldZoomToParent bool      `json:"should_zoom_to_parent"`
	IsLoading          bool      `json:"is_loading"`
	NodeCount          int       `json:"node_count"`
	EdgeCount          int       `json:"edge_count"`
	Version            int64     `json:"version"`
	// Error is set when the action was rejected and the state left unchanged.
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
	// SessionID is filled in from the message metadata on the receiving end.
	SessionID string `json:"-"`
}

func NewTreeEvent(t EventType, s conversation.State, err error) TreeEvent {
	ret := TreeEvent{
		Type:               t,
		ActiveNodeID:       s.ActiveNodeID.String(),
		ShouldZoomToParent: s.ShouldZoomToParent,
		IsLoading:          s.IsLoading,
		NodeCount:          len(s.Tree.Nodes),
		EdgeCount:          len(s.Tree.Edges),
		Version:            s.Version,
		Time:               time.Now().UTC(),
	}
	if err != nil {
		ret.Error = err.Error()
	}
	return ret
}

func (e TreeEvent) Failed() bool {
	return e.Error != ""
}

func NewTreeEventFromJson(b []byte) (TreeEvent, error) {
	var e TreeEvent
	err := json.Unmarshal(b, &e)
	return e, err
}
