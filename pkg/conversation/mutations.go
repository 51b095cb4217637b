package conversation

import (
	"strings"
	"unicode/utf8"

	"github.com/go-go-golems/chatpath/pkg/layout"
	"github.com/pkg/errors"
)

// Action is a deterministic change to the session state. Apply works on a
// private copy owned by the Reducer and may leave it half modified when it
// returns an error.
type Action interface {
	Apply(r *Reducer, s *State) error
	Name() string
}

// TextSelection is a substring of one message, picked by the user to seed a
// branch. Offsets are rune indices into the message content.
type TextSelection struct {
	Text        string    `json:"text" validate:"required,min=3"`
	StartOffset int       `json:"startOffset" validate:"min=0"`
	EndOffset   int       `json:"endOffset" validate:"gtfield=StartOffset"`
	MessageID   MessageID `json:"messageId" validate:"required"`
	NodeID      NodeID    `json:"nodeId" validate:"required"`
}

// InitializeTree replaces the tree with a single seeded root.
type InitializeTree struct{}

func (InitializeTree) Name() string { return "InitializeTree" }

func (InitializeTree) Apply(r *Reducer, s *State) error {
	rootID := NodeID(r.newID())
	root := Node{
		ID:       rootID,
		Position: layout.Point{},
		Messages: []Message{
			r.newMessage(RoleAssistant, WelcomeMessage),
			r.newMessage(RoleAssistant, PromptMessage),
		},
		Branches:  []BranchPoint{},
		Context:   []string{},
		CreatedAt: r.timestamp(),
	}
	s.Tree = Tree{
		Nodes:      []Node{root},
		Edges:      []Edge{},
		RootNodeID: rootID,
	}
	s.IsLoading = false
	s.ShouldZoomToParent = false
	s.setActive(rootID)
	return nil
}

// SetTree installs a loaded tree and focuses its root.
type SetTree struct {
	Tree Tree
}

func (SetTree) Name() string { return "SetTree" }

func (a SetTree) Apply(_ *Reducer, s *State) error {
	if err := a.Tree.Validate(); err != nil {
		return err
	}
	s.Tree = a.Tree
	s.ShouldZoomToParent = false
	s.setActive(a.Tree.RootNodeID)
	return nil
}

type SetActiveNode struct {
	NodeID NodeID
}

func (SetActiveNode) Name() string { return "SetActiveNode" }

func (a SetActiveNode) Apply(_ *Reducer, s *State) error {
	if _, ok := s.Tree.Node(a.NodeID); !ok {
		return errors.Wrapf(ErrNotFound, "node %s", a.NodeID)
	}
	s.setActive(a.NodeID)
	return nil
}

// AddMessage appends a message to a node and refreshes the label of the edge
// leading to it.
type AddMessage struct {
	NodeID  NodeID
	Role    Role
	Content string
}

func (AddMessage) Name() string { return "AddMessage" }

func (a AddMessage) Apply(r *Reducer, s *State) error {
	if !a.Role.Valid() {
		return errors.Wrapf(ErrInvalidOperation, "unknown role %q", a.Role)
	}
	if strings.TrimSpace(a.Content) == "" {
		return errors.Wrap(ErrInvalidOperation, "message content is empty")
	}
	n, ok := s.Tree.Node(a.NodeID)
	if !ok {
		return errors.Wrapf(ErrNotFound, "node %s", a.NodeID)
	}
	n.Messages = append(n.Messages, r.newMessage(a.Role, a.Content))

	label := r.label(n.Messages)
	for i := range s.Tree.Edges {
		if s.Tree.Edges[i].Target == a.NodeID {
			s.Tree.Edges[i].Label = label
		}
	}
	return nil
}

// CreateBranch spawns a child of ParentNodeID seeded from Selection, and
// focuses it.
type CreateBranch struct {
	Selection    TextSelection
	NewBranchID  NodeID
	ParentNodeID NodeID
	Position     layout.Point
}

func (CreateBranch) Name() string { return "CreateBranch" }

func (a CreateBranch) Apply(r *Reducer, s *State) error {
	sel := a.Selection
	if a.NewBranchID == "" {
		return errors.Wrap(ErrInvalidOperation, "branch id is empty")
	}
	if _, exists := s.Tree.Node(a.NewBranchID); exists {
		return errors.Wrapf(ErrInvalidOperation, "node %s already exists", a.NewBranchID)
	}
	if sel.NodeID != "" && sel.NodeID != a.ParentNodeID {
		return errors.Wrapf(ErrInvalidOperation, "selection is in node %s, not %s", sel.NodeID, a.ParentNodeID)
	}
	if sel.Text == "" {
		return errors.Wrap(ErrInvalidOperation, "selection is empty")
	}

	parent, ok := s.Tree.Node(a.ParentNodeID)
	if !ok {
		return errors.Wrapf(ErrNotFound, "parent node %s", a.ParentNodeID)
	}
	mi := parent.messageIndex(sel.MessageID)
	if mi < 0 {
		return errors.Wrapf(ErrNotFound, "message %s in node %s", sel.MessageID, a.ParentNodeID)
	}
	length := utf8.RuneCountInString(parent.Messages[mi].Content)
	if sel.StartOffset < 0 || sel.StartOffset >= sel.EndOffset || sel.EndOffset > length {
		return errors.Wrapf(ErrInvalidOperation, "selection range [%d,%d) outside message of length %d", sel.StartOffset, sel.EndOffset, length)
	}

	now := r.timestamp()
	bp := BranchPoint{
		ID:           BranchPointID(r.newID()),
		MessageID:    sel.MessageID,
		SelectedText: sel.Text,
		StartOffset:  sel.StartOffset,
		EndOffset:    sel.EndOffset,
		ChildNodeID:  a.NewBranchID,
		CreatedAt:    now,
	}

	context := make([]string, 0, mi+1)
	for _, m := range parent.Messages[:mi+1] {
		context = append(context, m.Serialize())
	}

	seed := r.newMessage(RoleAssistant, SeedMessage(sel.Text))
	child := Node{
		ID:        a.NewBranchID,
		ParentID:  a.ParentNodeID,
		Position:  a.Position,
		Messages:  []Message{seed},
		Branches:  []BranchPoint{},
		Context:   context,
		CreatedAt: now,
	}

	sourceHandle, targetHandle := layout.EdgeHandles(parent.Position, a.Position, r.layout)
	edge := Edge{
		ID:           EdgeIDFor(a.ParentNodeID, a.NewBranchID),
		Source:       a.ParentNodeID,
		Target:       a.NewBranchID,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Label:        r.label(child.Messages),
		Data: &EdgeData{
			SelectedText: sel.Text,
			BranchPoint:  bp,
		},
	}

	parent.Messages[mi].BranchPoints = append(parent.Messages[mi].BranchPoints, bp)
	parent.Branches = append(parent.Branches, bp)

	s.Tree.Nodes = append(s.Tree.Nodes, child)
	s.Tree.Edges = append(s.Tree.Edges, edge)
	s.setActive(a.NewBranchID)
	return nil
}

type UpdateNodePosition struct {
	NodeID   NodeID
	Position layout.Point
}

func (UpdateNodePosition) Name() string { return "UpdateNodePosition" }

func (a UpdateNodePosition) Apply(_ *Reducer, s *State) error {
	n, ok := s.Tree.Node(a.NodeID)
	if !ok {
		return errors.Wrapf(ErrNotFound, "node %s", a.NodeID)
	}
	n.Position = a.Position
	return nil
}

// ApplyLayout moves every node named in Positions and recomputes the handles
// of all edges. Ids that are not in the tree are ignored.
type ApplyLayout struct {
	Positions layout.Positions
}

func (ApplyLayout) Name() string { return "ApplyLayout" }

func (a ApplyLayout) Apply(r *Reducer, s *State) error {
	for i := range s.Tree.Nodes {
		if p, ok := a.Positions[string(s.Tree.Nodes[i].ID)]; ok {
			s.Tree.Nodes[i].Position = p
		}
	}
	for i := range s.Tree.Edges {
		e := &s.Tree.Edges[i]
		src, okSrc := s.Tree.Node(e.Source)
		dst, okDst := s.Tree.Node(e.Target)
		if !okSrc || !okDst {
			continue
		}
		e.SourceHandle, e.TargetHandle = layout.EdgeHandles(src.Position, dst.Position, r.layout)
	}
	return nil
}

// DeleteNode removes a node together with its whole subtree and moves focus
// to its parent.
type DeleteNode struct {
	NodeID NodeID
	// ParentNodeID must be the node's parent. Empty means whatever the parent
	// is.
	ParentNodeID NodeID
}

func (DeleteNode) Name() string { return "DeleteNode" }

func (a DeleteNode) Apply(_ *Reducer, s *State) error {
	n, ok := s.Tree.Node(a.NodeID)
	if !ok {
		return errors.Wrapf(ErrNotFound, "node %s", a.NodeID)
	}
	if n.IsRoot() || n.ID == s.Tree.RootNodeID {
		return errors.Wrap(ErrInvalidOperation, "the root node cannot be deleted")
	}
	parentID := n.ParentID
	if a.ParentNodeID != "" && a.ParentNodeID != parentID {
		return errors.Wrapf(ErrInvalidOperation, "node %s is a child of %s, not %s", a.NodeID, parentID, a.ParentNodeID)
	}
	if _, ok := s.Tree.Node(parentID); !ok {
		return errors.Wrapf(ErrNotFound, "parent node %s", parentID)
	}

	subtree, err := s.Tree.Descendants(a.NodeID)
	if err != nil {
		return err
	}
	removed := make(map[NodeID]bool, len(subtree))
	for _, id := range subtree {
		removed[id] = true
	}

	nodes := make([]Node, 0, len(s.Tree.Nodes)-len(subtree))
	for _, node := range s.Tree.Nodes {
		if !removed[node.ID] {
			nodes = append(nodes, node)
		}
	}
	s.Tree.Nodes = nodes
	s.Tree.removeReferences(removed)

	s.ShouldZoomToParent = true
	s.setActive(parentID)
	return nil
}

// NavigateToParent focuses the parent of a node and raises the zoom signal.
type NavigateToParent struct {
	NodeID NodeID
}

func (NavigateToParent) Name() string { return "NavigateToParent" }

func (a NavigateToParent) Apply(_ *Reducer, s *State) error {
	n, ok := s.Tree.Node(a.NodeID)
	if !ok {
		return errors.Wrapf(ErrNotFound, "node %s", a.NodeID)
	}
	if n.IsRoot() {
		return errors.Wrap(ErrInvalidOperation, "the root node has no parent")
	}
	parentID := n.ParentID
	if _, ok := s.Tree.Node(parentID); !ok {
		return errors.Wrapf(ErrNotFound, "parent node %s", parentID)
	}
	s.ShouldZoomToParent = true
	s.setActive(parentID)
	return nil
}

type SetLoading struct {
	Loading bool
}

func (SetLoading) Name() string { return "SetLoading" }

func (a SetLoading) Apply(_ *Reducer, s *State) error {
	s.IsLoading = a.Loading
	return nil
}

// ResetZoomFlag is sent by renderers once they have acted on the zoom signal.
type ResetZoomFlag struct{}

func (ResetZoomFlag) Name() string { return "ResetZoomFlag" }

func (ResetZoomFlag) Apply(_ *Reducer, s *State) error {
	s.ShouldZoomToParent = false
	return nil
}
