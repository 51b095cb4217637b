package conversation

// State is the session state around a tree: which node has focus, whether a
// reply is pending, and the one-shot zoom signal for renderers. Only Tree is
// persisted.
type State struct {
	Tree               Tree   `json:"tree"`
	ActiveNodeID       NodeID `json:"activeNodeId,omitempty"`
	IsLoading          bool   `json:"isLoading"`
	ShouldZoomToParent bool   `json:"shouldZoomToParent"`
	// Version counts the successful transitions since the state was created.
	Version int64 `json:"version"`
}

func (s *State) ActiveNode() (*Node, bool) {
	if s.ActiveNodeID == "" {
		return nil, false
	}
	return s.Tree.Node(s.ActiveNodeID)
}

// setActive moves focus and keeps every node's IsActive flag in sync.
func (s *State) setActive(id NodeID) {
	s.ActiveNodeID = id
	for i := range s.Tree.Nodes {
		s.Tree.Nodes[i].IsActive = s.Tree.Nodes[i].ID == id
	}
}
