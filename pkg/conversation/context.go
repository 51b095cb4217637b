package conversation

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// AncestryPath returns the ids from the root down to id. The walk stops at a
// parent that is missing from the tree, and fails with ErrCycleDetected when
// the parent links loop.
func (t *Tree) AncestryPath(id NodeID) ([]NodeID, error) {
	idx := t.index()
	i, ok := idx[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "node %s", id)
	}

	var reversed []NodeID
	visited := make(map[NodeID]struct{})
	for {
		n := &t.Nodes[i]
		if _, seen := visited[n.ID]; seen {
			return nil, errors.Wrapf(ErrCycleDetected, "node %s is its own ancestor", n.ID)
		}
		visited[n.ID] = struct{}{}
		reversed = append(reversed, n.ID)
		if n.IsRoot() {
			break
		}
		i, ok = idx[n.ParentID]
		if !ok {
			break
		}
	}

	ret := make([]NodeID, len(reversed))
	for j, nid := range reversed {
		ret[len(reversed)-1-j] = nid
	}
	return ret, nil
}

// FullContext concatenates the inherited context of every node on the path
// from the root to id, oldest ancestor first.
func (t *Tree) FullContext(id NodeID) ([]string, error) {
	path, err := t.AncestryPath(id)
	if err != nil {
		return nil, err
	}
	ret := []string{}
	for _, nid := range path {
		n, _ := t.Node(nid)
		ret = append(ret, n.Context...)
	}
	return ret, nil
}

// Transcript is what a reply in node id gets to see: the inherited context
// followed by the node's own messages.
func (t *Tree) Transcript(id NodeID) ([]string, error) {
	ret, err := t.FullContext(id)
	if err != nil {
		return nil, err
	}
	n, _ := t.Node(id)
	for _, m := range n.Messages {
		ret = append(ret, m.Serialize())
	}
	return ret, nil
}

// IsDescendantOf reports whether ancestor lies on the ancestry path of id.
// A node counts as its own descendant.
func (t *Tree) IsDescendantOf(id, ancestor NodeID) (bool, error) {
	path, err := t.AncestryPath(id)
	if err != nil {
		return false, err
	}
	for _, nid := range path {
		if nid == ancestor {
			return true, nil
		}
	}
	return false, nil
}

// BranchingContext is the prompt preamble handed to a backend when a branch
// is continued from selectedText inside node id.
func (t *Tree) BranchingContext(id NodeID, selectedText string) (string, error) {
	ctx, err := t.FullContext(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Continuing from: \"%s\"\n\nPrevious context:\n%s", selectedText, strings.Join(ctx, "\n")), nil
}

// Descendants returns id and every node below it, breadth first.
func (t *Tree) Descendants(id NodeID) ([]NodeID, error) {
	if _, ok := t.Node(id); !ok {
		return nil, errors.Wrapf(ErrNotFound, "node %s", id)
	}
	children := map[NodeID][]NodeID{}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if !n.IsRoot() {
			children[n.ParentID] = append(children[n.ParentID], n.ID)
		}
	}

	ret := []NodeID{id}
	visited := map[NodeID]struct{}{id: {}}
	for i := 0; i < len(ret); i++ {
		for _, c := range children[ret[i]] {
			if _, seen := visited[c]; seen {
				return nil, errors.Wrapf(ErrCycleDetected, "node %s reached twice below %s", c, id)
			}
			visited[c] = struct{}{}
			ret = append(ret, c)
		}
	}
	return ret, nil
}
