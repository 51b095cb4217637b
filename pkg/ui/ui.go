// Package ui is a terminal browser for a conversation tree.
//
// The left pane shows the tree outline, the right pane the messages of the
// selected node. Every change goes through the store; the model re-reads
// the state whenever the store publishes a tree event.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-go-golems/chatpath/pkg/events"
	"github.com/go-go-golems/chatpath/pkg/selection"
	"github.com/go-go-golems/chatpath/pkg/store"
	"github.com/pkg/errors"
)

type Mode string

const (
	ModeBrowse  Mode = "browse"
	ModeCompose Mode = "compose"
	ModeBranch  Mode = "branch"
	ModeConfirm Mode = "confirm"
)

type treeEventMsg struct {
	event events.TreeEvent
}

type eventsClosedMsg struct{}

type resultMsg struct {
	err error
}

type Model struct {
	store   *store.Store
	updates <-chan events.TreeEvent

	state       conversation.State
	rows        []Row
	selectedIdx int

	mode     Mode
	textArea textarea.Model
	input    textinput.Model
	viewport viewport.Model
	help     help.Model
	keyMap   KeyMap
	style    *Style

	err    error
	width  int
	height int
}

// New builds the model. updates is usually the subscription of the event
// router the store publishes on; it may be nil.
func New(s *store.Store, updates <-chan events.TreeEvent) Model {
	ret := Model{
		store:    s,
		updates:  updates,
		mode:     ModeBrowse,
		viewport: viewport.New(0, 0),
		help:     help.New(),
		keyMap:   DefaultKeyMap,
		style:    DefaultStyles(),
	}

	ret.textArea = textarea.New()
	ret.textArea.Placeholder = "Type your message..."
	ret.textArea.ShowLineNumbers = false
	ret.textArea.SetHeight(3)

	ret.input = textinput.New()
	ret.input.Placeholder = "text to branch from"
	ret.input.Prompt = "branch from: "

	ret.refresh(true)
	ret.updateKeyBindings()
	return ret
}

func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m Model) waitForEvent() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		ev, ok := <-updates
		if !ok {
			return eventsClosedMsg{}
		}
		return treeEventMsg{event: ev}
	}
}

// run executes a store operation in the background.
func run(f func() error) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{err: f()}
	}
}

func (m Model) Selected() (*conversation.Node, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.rows) {
		return nil, false
	}
	return m.state.Tree.Node(m.rows[m.selectedIdx].ID)
}

func (m Model) Mode() Mode {
	return m.mode
}

// refresh re-reads the store. When follow is set, or the renderers were
// asked to zoom to a parent, the selection jumps to the active node.
func (m *Model) refresh(follow bool) tea.Cmd {
	var selectedID conversation.NodeID
	if n, ok := m.Selected(); ok {
		selectedID = n.ID
	}
	previousActive := m.state.ActiveNodeID

	m.state = m.store.State()
	m.rows = Outline(m.state.Tree, m.state.ActiveNodeID)

	var cmd tea.Cmd
	if m.state.ShouldZoomToParent {
		follow = true
		s := m.store
		cmd = run(func() error {
			_, err := s.Dispatch(context.Background(), conversation.ResetZoomFlag{})
			return err
		})
	}
	if m.state.ActiveNodeID != previousActive {
		follow = true
	}

	target := selectedID
	if follow || target == "" {
		target = m.state.ActiveNodeID
	}
	m.selectedIdx = 0
	for i, r := range m.rows {
		if r.ID == target {
			m.selectedIdx = i
			break
		}
	}
	m.updateViewport()
	return cmd
}

func (m *Model) updateViewport() {
	n, ok := m.Selected()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	w, _ := m.style.Messages.GetFrameSize()
	m.viewport.SetContent(m.style.renderMessages(n, m.viewport.Width-w))
	m.viewport.GotoBottom()
}

func (m *Model) updateKeyBindings() {
	browse := m.mode == ModeBrowse
	m.keyMap.SelectPrevNode.SetEnabled(browse)
	m.keyMap.SelectNextNode.SetEnabled(browse)
	m.keyMap.Activate.SetEnabled(browse)
	m.keyMap.Parent.SetEnabled(browse)
	m.keyMap.Layout.SetEnabled(browse)
	m.keyMap.Compose.SetEnabled(browse)
	m.keyMap.Branch.SetEnabled(browse)
	m.keyMap.Help.SetEnabled(browse)
	m.keyMap.Quit.SetEnabled(browse)

	n, ok := m.Selected()
	m.keyMap.Delete.SetEnabled(browse && ok && !n.IsRoot())

	editing := m.mode == ModeCompose || m.mode == ModeBranch
	m.keyMap.Submit.SetEnabled(editing)
	m.keyMap.Cancel.SetEnabled(editing)

	m.keyMap.Confirm.SetEnabled(m.mode == ModeConfirm)
	m.keyMap.Refuse.SetEnabled(m.mode == ModeConfirm)
}

func (m *Model) setMode(mode Mode) tea.Cmd {
	m.mode = mode
	var cmd tea.Cmd
	m.textArea.Blur()
	m.input.Blur()
	switch mode {
	case ModeCompose:
		m.textArea.SetValue("")
		cmd = m.textArea.Focus()
	case ModeBranch:
		m.input.SetValue("")
		cmd = m.input.Focus()
	case ModeBrowse, ModeConfirm:
	}
	m.updateKeyBindings()
	m.recomputeSize()
	return cmd
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeBrowse:
			return m.updateBrowse(msg)
		case ModeConfirm:
			return m.updateConfirm(msg)
		case ModeCompose, ModeBranch:
			return m.updateEditing(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recomputeSize()

	case treeEventMsg:
		cmds = append(cmds, m.refresh(false), m.waitForEvent())

	case eventsClosedMsg:
		m.updates = nil

	case resultMsg:
		m.err = msg.err
		if m.updates == nil {
			cmds = append(cmds, m.refresh(false))
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.store
	ctx := context.Background()
	n, ok := m.Selected()

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.SelectPrevNode):
		if m.selectedIdx > 0 {
			m.selectedIdx--
			m.updateViewport()
			m.updateKeyBindings()
		}

	case key.Matches(msg, m.keyMap.SelectNextNode):
		if m.selectedIdx < len(m.rows)-1 {
			m.selectedIdx++
			m.updateViewport()
			m.updateKeyBindings()
		}

	case key.Matches(msg, m.keyMap.Activate) && ok:
		id := n.ID
		return m, run(func() error {
			_, err := s.Dispatch(ctx, conversation.SetActiveNode{NodeID: id})
			return err
		})

	case key.Matches(msg, m.keyMap.Parent) && ok:
		id := n.ID
		return m, run(func() error {
			_, err := s.Dispatch(ctx, conversation.NavigateToParent{NodeID: id})
			return err
		})

	case key.Matches(msg, m.keyMap.Layout):
		return m, run(func() error {
			_, err := s.RecalculateLayout(ctx)
			return err
		})

	case key.Matches(msg, m.keyMap.Delete) && ok:
		cmd := m.setMode(ModeConfirm)
		return m, cmd

	case key.Matches(msg, m.keyMap.Compose) && ok:
		cmd := m.setMode(ModeCompose)
		return m, cmd

	case key.Matches(msg, m.keyMap.Branch) && ok:
		cmd := m.setMode(ModeBranch)
		return m, cmd

	case key.Matches(msg, m.keyMap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.recomputeSize()

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Confirm):
		n, ok := m.Selected()
		cmd := m.setMode(ModeBrowse)
		if !ok {
			return m, cmd
		}
		s, id := m.store, n.ID
		return m, tea.Batch(cmd, run(func() error {
			_, err := s.DeleteNode(context.Background(), id)
			return err
		}))
	case key.Matches(msg, m.keyMap.Refuse):
		cmd := m.setMode(ModeBrowse)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Cancel):
		cmd := m.setMode(ModeBrowse)
		return m, cmd

	case key.Matches(msg, m.keyMap.Submit):
		n, ok := m.Selected()
		if !ok {
			cmd := m.setMode(ModeBrowse)
			return m, cmd
		}
		if m.mode == ModeCompose {
			text := m.textArea.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			s, id := m.store, n.ID
			cmd := m.setMode(ModeBrowse)
			return m, tea.Batch(cmd, run(func() error {
				_, err := s.SendMessage(context.Background(), id, text)
				return err
			}))
		}

		sel, err := branchSelection(n, m.input.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		s := m.store
		cmd := m.setMode(ModeBrowse)
		return m, tea.Batch(cmd, run(func() error {
			_, _, err := s.CreateBranch(context.Background(), sel)
			return err
		}))
	}

	var cmd tea.Cmd
	if m.mode == ModeCompose {
		m.textArea, cmd = m.textArea.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// branchSelection looks for text in the messages of n, newest first.
func branchSelection(n *conversation.Node, text string) (conversation.TextSelection, error) {
	var lastErr error = selection.ErrSelectionNotFound
	for i := len(n.Messages) - 1; i >= 0; i-- {
		sel, err := selection.FromText(n.ID, n.Messages[i], text)
		if err == nil {
			return sel, nil
		}
		if errors.Is(err, selection.ErrSelectionTooShort) {
			return sel, err
		}
		lastErr = err
	}
	return conversation.TextSelection{}, lastErr
}

func (m *Model) recomputeSize() {
	if m.width == 0 {
		return
	}
	headerHeight := lipgloss.Height(m.headerView())
	footerHeight := lipgloss.Height(m.footerView())

	bodyHeight := m.height - headerHeight - footerHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	outlineWidth := m.width / 3
	fw, fh := m.style.Messages.GetFrameSize()

	m.viewport.Width = m.width - outlineWidth - fw
	m.viewport.Height = bodyHeight - fh
	m.textArea.SetWidth(m.width - 2)
	m.input.Width = m.width - len(m.input.Prompt) - 2
	m.updateViewport()
}

func (m Model) headerView() string {
	title := "ChatPath"
	if m.state.IsLoading {
		title += " · thinking..."
	}
	return m.style.Header.Render(title)
}

func (m Model) outlineView() string {
	width := m.width / 3
	fw, _ := m.style.Outline.GetFrameSize()
	lines := make([]string, 0, len(m.rows))
	for i, r := range m.rows {
		lines = append(lines, m.style.renderRow(r, i == m.selectedIdx, width-fw))
	}
	return m.style.Outline.
		Width(width - fw).
		Height(m.viewport.Height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) footerView() string {
	var parts []string
	switch m.mode {
	case ModeCompose:
		parts = append(parts, m.style.Input.Render(m.textArea.View()))
	case ModeBranch:
		parts = append(parts, m.style.Input.Render(m.input.View()))
	case ModeConfirm:
		parts = append(parts, "Are you sure you want to delete this branch? This action cannot be undone. (y/n)")
	case ModeBrowse:
	}
	if m.err != nil {
		parts = append(parts, m.style.Error.Render(m.err.Error()))
	}
	parts = append(parts, m.help.View(m.keyMap))
	return strings.Join(parts, "\n")
}

func (m Model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.outlineView(),
		m.style.Messages.Render(m.viewport.View()),
	)
	return m.headerView() + "\n" + body + "\n" + m.footerView()
}
