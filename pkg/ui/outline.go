package ui

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-go-golems/chatpath/pkg/selection"
	"github.com/go-go-golems/chatpath/pkg/summary"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

// Row is one line of the tree outline.
type Row struct {
	ID       conversation.NodeID
	Depth    int
	Title    string
	Active   bool
	Children int
}

// Outline lists the nodes of a tree depth first, children in creation order.
func Outline(tree conversation.Tree, activeID conversation.NodeID) []Row {
	root, ok := tree.Root()
	if !ok {
		return nil
	}
	var ret []Row
	visited := map[conversation.NodeID]bool{}
	var walk func(id conversation.NodeID, depth int)
	walk = func(id conversation.NodeID, depth int) {
		if visited[id] {
			return
		}
		visited[id] = true
		n, ok := tree.Node(id)
		if !ok {
			return
		}
		children := tree.Children(id)
		ret = append(ret, Row{
			ID:       id,
			Depth:    depth,
			Title:    summary.Title(conversation.Turns(n.Messages), id.String()),
			Active:   id == activeID,
			Children: len(children),
		})
		for _, c := range children {
			walk(c, depth+1)
		}
	}
	walk(root.ID, 0)
	return ret
}

func (s *Style) renderRow(r Row, selected bool, width int) string {
	marker := "  "
	if r.Active {
		marker = s.ActiveMarker.Render("● ")
	}
	title := r.Title
	if r.Children > 0 {
		title = fmt.Sprintf("%s (%d)", title, r.Children)
	}
	line := strings.Repeat("  ", r.Depth) + title
	if width > 2 {
		line = truncate.StringWithTail(line, uint(width-2), "…")
	}
	if selected {
		line = s.SelectedRow.Render(line)
	}
	return marker + line
}

// renderMessages renders the messages of a node with their branch points
// underlined, wrapped to width.
func (s *Style) renderMessages(n *conversation.Node, width int) string {
	var b strings.Builder
	for i, m := range n.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		role := s.AssistantRole.Render(string(m.Role))
		if m.Role == conversation.RoleUser {
			role = s.UserRole.Render(string(m.Role))
		}
		b.WriteString(role)
		b.WriteString("\n")

		var text strings.Builder
		for _, seg := range selection.Segments(m) {
			if seg.BranchPoint != nil {
				text.WriteString(s.Highlight.Render(seg.Text))
				continue
			}
			text.WriteString(seg.Text)
		}
		if width > 0 {
			b.WriteString(wordwrap.String(text.String(), width))
		} else {
			b.WriteString(text.String())
		}
	}
	return b.String()
}
