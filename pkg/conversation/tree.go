package conversation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-go-golems/chatpath/pkg/layout"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type NodeID string

func (id NodeID) String() string {
	return string(id)
}

// Short is the 8 character prefix used in listings.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

type EdgeID string

func newUUID() string {
	return uuid.NewString()
}

func NewNodeID() NodeID {
	return NodeID(newUUID())
}

// EdgeIDFor returns the id of the edge between a parent and a child.
func EdgeIDFor(parent, child NodeID) EdgeID {
	return EdgeID(fmt.Sprintf("edge-%s-%s", parent, child))
}

// Node is a single conversation thread segment. The root has an empty
// ParentID, which is stored as null.
type Node struct {
	ID        NodeID        `json:"id"`
	ParentID  NodeID        `json:"parentId" jsonschema:"oneof_type=string;null"`
	Position  layout.Point  `json:"position"`
	Messages  []Message     `json:"messages"`
	Branches  []BranchPoint `json:"branches"`
	Context   []string      `json:"context"`
	CreatedAt time.Time     `json:"createdAt"`
	IsActive  bool          `json:"isActive"`
}

type nodeAlias Node

type nodeJSON struct {
	ParentID *NodeID `json:"parentId"`
	*nodeAlias
}

func (n Node) MarshalJSON() ([]byte, error) {
	a := nodeAlias(n)
	if a.Messages == nil {
		a.Messages = []Message{}
	}
	if a.Branches == nil {
		a.Branches = []BranchPoint{}
	}
	if a.Context == nil {
		a.Context = []string{}
	}
	aux := nodeJSON{nodeAlias: &a}
	if n.ParentID != "" {
		parent := n.ParentID
		aux.ParentID = &parent
	}
	return json.Marshal(aux)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	aux := nodeJSON{nodeAlias: (*nodeAlias)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n.ParentID = ""
	if aux.ParentID != nil {
		n.ParentID = *aux.ParentID
	}
	return nil
}

func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

func (n *Node) messageIndex(id MessageID) int {
	for i := range n.Messages {
		if n.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

type EdgeData struct {
	SelectedText string      `json:"selectedText"`
	BranchPoint  BranchPoint `json:"branchPoint"`
}

// Edge connects a parent to one of its children.
type Edge struct {
	ID           EdgeID        `json:"id"`
	Source       NodeID        `json:"source"`
	Target       NodeID        `json:"target"`
	SourceHandle layout.Handle `json:"sourceHandle,omitempty"`
	TargetHandle layout.Handle `json:"targetHandle,omitempty"`
	Label        string        `json:"label,omitempty"`
	Data         *EdgeData     `json:"data,omitempty"`
}

// Tree is a flat arena of nodes and edges. Nodes and edges keep insertion
// order, which is the order used for rendering and persistence.
type Tree struct {
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
	RootNodeID NodeID `json:"rootNodeId"`
}

func (t Tree) MarshalJSON() ([]byte, error) {
	type Alias Tree
	a := Alias(t)
	if a.Nodes == nil {
		a.Nodes = []Node{}
	}
	if a.Edges == nil {
		a.Edges = []Edge{}
	}
	return json.Marshal(a)
}

func (t *Tree) IsEmpty() bool {
	return len(t.Nodes) == 0
}

func (t *Tree) nodeIndex(id NodeID) int {
	for i := range t.Nodes {
		if t.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Tree) index() map[NodeID]int {
	ret := make(map[NodeID]int, len(t.Nodes))
	for i := range t.Nodes {
		ret[t.Nodes[i].ID] = i
	}
	return ret
}

// Node returns a pointer into the tree, valid until the next structural
// change.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	i := t.nodeIndex(id)
	if i < 0 {
		return nil, false
	}
	return &t.Nodes[i], true
}

func (t *Tree) Root() (*Node, bool) {
	return t.Node(t.RootNodeID)
}

func (t *Tree) Message(nodeID NodeID, messageID MessageID) (*Message, bool) {
	n, ok := t.Node(nodeID)
	if !ok {
		return nil, false
	}
	i := n.messageIndex(messageID)
	if i < 0 {
		return nil, false
	}
	return &n.Messages[i], true
}

// Children returns the direct children of id in tree order.
func (t *Tree) Children(id NodeID) []NodeID {
	var ret []NodeID
	for i := range t.Nodes {
		if t.Nodes[i].ParentID == id && t.Nodes[i].ID != id && id != "" {
			ret = append(ret, t.Nodes[i].ID)
		}
	}
	return ret
}

// Depth is the number of ancestors of id.
func (t *Tree) Depth(id NodeID) (int, error) {
	path, err := t.AncestryPath(id)
	if err != nil {
		return 0, err
	}
	return len(path) - 1, nil
}

// FindByPrefix resolves a full id or a unique id prefix.
func (t *Tree) FindByPrefix(prefix string) (NodeID, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", errors.Wrap(ErrNotFound, "empty node id")
	}
	var matches []NodeID
	for i := range t.Nodes {
		id := t.Nodes[i].ID
		if string(id) == prefix {
			return id, nil
		}
		if strings.HasPrefix(string(id), prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.Wrapf(ErrNotFound, "node %s", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", errors.Wrapf(ErrInvalidOperation, "node prefix %s is ambiguous (%d matches)", prefix, len(matches))
	}
}

// Graph adapts the tree to the layout engine. Edges follow the parent links.
func (t *Tree) Graph() layout.Graph {
	g := layout.Graph{Nodes: make([]string, 0, len(t.Nodes))}
	idx := t.index()
	for i := range t.Nodes {
		n := &t.Nodes[i]
		g.Nodes = append(g.Nodes, string(n.ID))
		if _, ok := idx[n.ParentID]; ok && !n.IsRoot() {
			g.Edges = append(g.Edges, layout.Edge{From: string(n.ParentID), To: string(n.ID)})
		}
	}
	return g
}

// Positions returns the position of every node in tree order.
func (t *Tree) Positions() []layout.Point {
	ret := make([]layout.Point, 0, len(t.Nodes))
	for i := range t.Nodes {
		ret = append(ret, t.Nodes[i].Position)
	}
	return ret
}

// Validate checks the structural invariants of a tree: a single root that
// matches RootNodeID, existing parents, no parent cycles, one edge per
// parent -> child link, and branch points that agree with both the edges and
// the parent's denormalized Branches list.
func (t *Tree) Validate() error {
	if len(t.Nodes) == 0 {
		return errors.Wrap(ErrInvalidTree, "tree has no nodes")
	}

	idx := make(map[NodeID]int, len(t.Nodes))
	var roots []NodeID
	messages := map[MessageID]NodeID{}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.ID == "" {
			return errors.Wrapf(ErrInvalidTree, "node %d has an empty id", i)
		}
		if _, ok := idx[n.ID]; ok {
			return errors.Wrapf(ErrInvalidTree, "duplicate node %s", n.ID)
		}
		idx[n.ID] = i
		if n.IsRoot() {
			roots = append(roots, n.ID)
		}
		for _, m := range n.Messages {
			if _, ok := messages[m.ID]; ok || m.ID == "" {
				return errors.Wrapf(ErrInvalidTree, "duplicate or empty message id %q", m.ID)
			}
			if !m.Role.Valid() {
				return errors.Wrapf(ErrInvalidTree, "message %s has role %q", m.ID, m.Role)
			}
			messages[m.ID] = n.ID
		}
	}

	if len(roots) != 1 {
		return errors.Wrapf(ErrInvalidTree, "expected exactly one root, found %d", len(roots))
	}
	if roots[0] != t.RootNodeID {
		return errors.Wrapf(ErrInvalidTree, "root %s does not match rootNodeId %s", roots[0], t.RootNodeID)
	}

	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.IsRoot() {
			continue
		}
		if _, ok := idx[n.ParentID]; !ok {
			return errors.Wrapf(ErrInvalidTree, "node %s references missing parent %s", n.ID, n.ParentID)
		}
		if _, err := t.AncestryPath(n.ID); err != nil {
			return err
		}
	}

	if err := t.validateEdges(idx); err != nil {
		return err
	}
	return t.validateBranchPoints(idx)
}

func (t *Tree) validateEdges(idx map[NodeID]int) error {
	if len(t.Edges) != len(t.Nodes)-1 {
		return errors.Wrapf(ErrInvalidTree, "%d edges for %d nodes", len(t.Edges), len(t.Nodes))
	}
	ids := make(map[EdgeID]struct{}, len(t.Edges))
	targets := make(map[NodeID]struct{}, len(t.Edges))
	for _, e := range t.Edges {
		if _, ok := ids[e.ID]; ok {
			return errors.Wrapf(ErrInvalidTree, "duplicate edge %s", e.ID)
		}
		ids[e.ID] = struct{}{}
		si, ok := idx[e.Source]
		if !ok {
			return errors.Wrapf(ErrInvalidTree, "edge %s has missing source %s", e.ID, e.Source)
		}
		ti, ok := idx[e.Target]
		if !ok {
			return errors.Wrapf(ErrInvalidTree, "edge %s has missing target %s", e.ID, e.Target)
		}
		if t.Nodes[ti].ParentID != t.Nodes[si].ID {
			return errors.Wrapf(ErrInvalidTree, "edge %s does not follow the parent of %s", e.ID, e.Target)
		}
		if _, ok := targets[e.Target]; ok {
			return errors.Wrapf(ErrInvalidTree, "node %s is the target of more than one edge", e.Target)
		}
		targets[e.Target] = struct{}{}
	}
	return nil
}

func (t *Tree) validateBranchPoints(idx map[NodeID]int) error {
	children := map[NodeID]BranchPointID{}
	for i := range t.Nodes {
		n := &t.Nodes[i]

		fromMessages := map[BranchPointID]struct{}{}
		for _, m := range n.Messages {
			for _, bp := range m.BranchPoints {
				if bp.MessageID != m.ID {
					return errors.Wrapf(ErrInvalidTree, "branch point %s is stored on message %s but references %s", bp.ID, m.ID, bp.MessageID)
				}
				if bp.StartOffset < 0 || bp.StartOffset >= bp.EndOffset {
					return errors.Wrapf(ErrInvalidTree, "branch point %s has range [%d,%d)", bp.ID, bp.StartOffset, bp.EndOffset)
				}
				ci, ok := idx[bp.ChildNodeID]
				if !ok {
					return errors.Wrapf(ErrInvalidTree, "branch point %s references missing node %s", bp.ID, bp.ChildNodeID)
				}
				if t.Nodes[ci].ParentID != n.ID {
					return errors.Wrapf(ErrInvalidTree, "branch point %s child %s is not a child of %s", bp.ID, bp.ChildNodeID, n.ID)
				}
				if other, ok := children[bp.ChildNodeID]; ok {
					return errors.Wrapf(ErrInvalidTree, "node %s is referenced by branch points %s and %s", bp.ChildNodeID, other, bp.ID)
				}
				children[bp.ChildNodeID] = bp.ID
				fromMessages[bp.ID] = struct{}{}
			}
		}

		if len(n.Branches) != len(fromMessages) {
			return errors.Wrapf(ErrInvalidTree, "node %s lists %d branches but its messages hold %d", n.ID, len(n.Branches), len(fromMessages))
		}
		for _, bp := range n.Branches {
			if _, ok := fromMessages[bp.ID]; !ok {
				return errors.Wrapf(ErrInvalidTree, "node %s lists branch %s that no message holds", n.ID, bp.ID)
			}
		}
	}
	return nil
}

// Prune drops everything a tree written by a buggy client may carry around:
// nodes that are not reachable from the root (orphans of a non-cascading
// delete), edges touching dropped nodes, and branch points whose child is
// gone. It returns the ids of the dropped nodes.
func (t *Tree) Prune() []NodeID {
	if _, ok := t.Root(); !ok {
		return nil
	}

	keep := map[NodeID]bool{t.RootNodeID: true}
	queue := []NodeID{t.RootNodeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range t.Children(id) {
			if !keep[c] {
				keep[c] = true
				queue = append(queue, c)
			}
		}
	}

	var dropped []NodeID
	nodes := make([]Node, 0, len(keep))
	for _, n := range t.Nodes {
		if keep[n.ID] {
			nodes = append(nodes, n)
			continue
		}
		dropped = append(dropped, n.ID)
	}
	if len(dropped) == 0 {
		return nil
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
	t.Nodes = nodes

	removed := map[NodeID]bool{}
	for _, id := range dropped {
		removed[id] = true
	}
	t.removeReferences(removed)
	return dropped
}

// removeReferences strips the edges and branch points that mention one of
// the removed nodes.
func (t *Tree) removeReferences(removed map[NodeID]bool) {
	edges := make([]Edge, 0, len(t.Edges))
	for _, e := range t.Edges {
		if removed[e.Source] || removed[e.Target] {
			continue
		}
		edges = append(edges, e)
	}
	t.Edges = edges

	keepBranch := func(bps []BranchPoint) []BranchPoint {
		ret := make([]BranchPoint, 0, len(bps))
		for _, bp := range bps {
			if !removed[bp.ChildNodeID] {
				ret = append(ret, bp)
			}
		}
		return ret
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		n.Branches = keepBranch(n.Branches)
		for j := range n.Messages {
			n.Messages[j].BranchPoints = keepBranch(n.Messages[j].BranchPoints)
		}
	}
}
