// Package store is the session container around the conversation reducer.
//
// A Store serializes every transition, persists the tree after each
// successful mutation, publishes a tree event for the renderers, and drives
// the asynchronous parts of a session: layout recalculation and assistant
// replies.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-go-golems/chatpath/pkg/events"
	"github.com/go-go-golems/chatpath/pkg/layout"
	"github.com/go-go-golems/chatpath/pkg/responder"
	"github.com/go-go-golems/chatpath/pkg/snapshot"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Repository is where the tree is loaded from and saved to.
type Repository interface {
	Load(ctx context.Context) (conversation.Tree, error)
	Save(ctx context.Context, tree conversation.Tree) error
}

// Publisher receives a tree event after every dispatched action.
type Publisher interface {
	PublishBlind(ev events.TreeEvent)
}

type Store struct {
	mu    sync.Mutex
	state conversation.State

	reducer   *conversation.Reducer
	engine    *layout.Engine
	repo      Repository
	publisher Publisher
	scheduler *responder.Scheduler
	newID     func() conversation.NodeID
}

type Option func(*Store)

func WithReducer(r *conversation.Reducer) Option {
	return func(s *Store) {
		s.reducer = r
	}
}

func WithEngine(e *layout.Engine) Option {
	return func(s *Store) {
		s.engine = e
	}
}

func WithRepository(r Repository) Option {
	return func(s *Store) {
		s.repo = r
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

func WithResponder(r responder.Responder) Option {
	return func(s *Store) {
		s.scheduler = responder.NewScheduler(r)
	}
}

// WithNodeIDGenerator sets the id generator of branches created through
// CreateBranch.
func WithNodeIDGenerator(f func() conversation.NodeID) Option {
	return func(s *Store) {
		s.newID = f
	}
}

// New returns a store holding an empty state. Call Load or Reset before
// dispatching anything else.
func New(options ...Option) *Store {
	ret := &Store{
		reducer: conversation.NewReducer(),
		engine:  layout.NewEngine(layout.DefaultConfig()),
		newID:   conversation.NewNodeID,
	}
	for _, o := range options {
		o(ret)
	}
	if ret.scheduler == nil {
		ret.scheduler = responder.NewScheduler(responder.NewMock())
	}
	return ret
}

// State returns a deep copy of the current state.
func (s *Store) State() conversation.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone.Clone(s.state).(conversation.State)
}

// Dispatch applies one action. A rejected action leaves the state untouched
// and its error is returned for information only.
func (s *Store) Dispatch(ctx context.Context, a conversation.Action) (conversation.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.dispatchLocked(ctx, a)
	return clone.Clone(s.state).(conversation.State), err
}

func (s *Store) dispatchLocked(ctx context.Context, a conversation.Action) error {
	if a == nil {
		return errors.Wrap(conversation.ErrInvalidOperation, "nil action")
	}
	next, err := s.reducer.Reduce(s.state, a)
	if err != nil {
		log.Debug().Err(err).Str("action", a.Name()).Msg("action rejected")
		s.publish(events.TypeForAction(a.Name()), err)
		return err
	}
	s.state = next

	if persists(a) {
		s.saveLocked(ctx)
	}
	s.publish(events.TypeForAction(a.Name()), nil)
	return nil
}

// persists reports whether an action touches the persisted tree.
func persists(a conversation.Action) bool {
	switch a.(type) {
	case conversation.SetLoading, conversation.ResetZoomFlag:
		return false
	default:
		return true
	}
}

// saveLocked writes the tree. A failed save is logged; the in-memory state
// stays authoritative and the next successful save overwrites the snapshot.
func (s *Store) saveLocked(ctx context.Context) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, s.state.Tree); err != nil {
		log.Warn().Err(err).Int("node_count", len(s.state.Tree.Nodes)).Msg("could not save tree")
	}
}

func (s *Store) publish(t events.EventType, err error) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishBlind(events.NewTreeEvent(t, s.state, err))
}

// Load installs the stored tree. A missing, empty or unreadable snapshot is
// replaced by a freshly initialized tree.
func (s *Store) Load(ctx context.Context) (conversation.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var action conversation.Action = conversation.InitializeTree{}
	if s.repo != nil {
		tree, err := s.repo.Load(ctx)
		switch {
		case errors.Is(err, snapshot.ErrSnapshotNotFound):
			log.Debug().Msg("no stored tree, starting a new one")
		case err != nil:
			log.Warn().Err(err).Msg("discarding stored tree")
		case tree.IsEmpty():
			log.Debug().Msg("stored tree is empty, starting a new one")
		default:
			action = conversation.SetTree{Tree: tree}
		}
	}

	err := s.dispatchLocked(ctx, action)
	return clone.Clone(s.state).(conversation.State), err
}

// Reset cancels every pending reply and starts over with a new tree.
func (s *Store) Reset(ctx context.Context) (conversation.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.state.Tree.Nodes {
		s.scheduler.Cancel(n.ID.String())
	}
	err := s.dispatchLocked(ctx, conversation.InitializeTree{})
	return clone.Clone(s.state).(conversation.State), err
}

// CreateBranch creates a child of sel.NodeID at a free position next to it
// and returns the id of the new node.
func (s *Store) CreateBranch(ctx context.Context, sel conversation.TextSelection) (conversation.NodeID, conversation.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	var position layout.Point
	if parent, ok := s.state.Tree.Node(sel.NodeID); ok {
		g := s.state.Tree.Graph()
		g.Nodes = append(g.Nodes, id.String())
		g.Edges = append(g.Edges, layout.Edge{From: parent.ID.String(), To: id.String()})

		placement := s.engine.PlaceChild(parent.Position, s.state.Tree.Positions(), g, parent.ID.String(), id.String())
		position = placement.Position
		log.Debug().
			Str("node_id", id.String()).
			Str("parent_id", parent.ID.String()).
			Str("strategy", string(placement.Strategy)).
			Msg("placed branch")
	}

	err := s.dispatchLocked(ctx, conversation.CreateBranch{
		Selection:    sel,
		NewBranchID:  id,
		ParentNodeID: sel.NodeID,
		Position:     position,
	})
	if err != nil {
		id = ""
	}
	return id, clone.Clone(s.state).(conversation.State), err
}

// DeleteNode removes a node with its subtree and drops the pending replies
// of every removed node.
func (s *Store) DeleteNode(ctx context.Context, nodeID conversation.NodeID) (conversation.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, _ := s.state.Tree.Descendants(nodeID)
	err := s.dispatchLocked(ctx, conversation.DeleteNode{NodeID: nodeID})
	if err == nil {
		for _, id := range removed {
			s.scheduler.Cancel(id.String())
		}
		s.syncLoadingLocked(ctx)
	}
	return clone.Clone(s.state).(conversation.State), err
}

// RecalculateLayout runs the global layout outside the lock and applies the
// result. Nodes created in the meantime keep their position.
func (s *Store) RecalculateLayout(ctx context.Context) (conversation.State, error) {
	s.mu.Lock()
	g := s.state.Tree.Graph()
	s.mu.Unlock()

	positions, err := s.engine.Recalculate(ctx, g)
	if err != nil {
		return s.State(), err
	}
	return s.Dispatch(ctx, conversation.ApplyLayout{Positions: positions})
}

// SendMessage adds a user message to a node and schedules the assistant
// reply. A reply still pending for the same node is replaced.
func (s *Store) SendMessage(ctx context.Context, nodeID conversation.NodeID, text string) (conversation.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text = strings.TrimSpace(text)
	if err := s.dispatchLocked(ctx, conversation.AddMessage{
		NodeID:  nodeID,
		Role:    conversation.RoleUser,
		Content: text,
	}); err != nil {
		return clone.Clone(s.state).(conversation.State), err
	}

	prompt := text
	if lines, err := s.state.Tree.Transcript(nodeID); err == nil {
		prompt = strings.Join(lines, "\n")
	}

	err := s.scheduler.Schedule(nodeID.String(), prompt, func(reply string, err error) {
		s.deliver(nodeID, reply, err)
	})
	if err != nil {
		return clone.Clone(s.state).(conversation.State), err
	}
	s.syncLoadingLocked(ctx)
	return clone.Clone(s.state).(conversation.State), nil
}

func (s *Store) deliver(nodeID conversation.NodeID, reply string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := context.Background()

	if err != nil {
		log.Warn().Err(err).Str("node_id", nodeID.String()).Msg("reply failed")
		s.publish(events.EventTypeReply, err)
	} else if err := s.dispatchLocked(ctx, conversation.AddMessage{
		NodeID:  nodeID,
		Role:    conversation.RoleAssistant,
		Content: reply,
	}); err != nil {
		log.Debug().Err(err).Str("node_id", nodeID.String()).Msg("dropping reply")
	}
	s.syncLoadingLocked(ctx)
}

// CancelReply drops the pending reply of a node.
func (s *Store) CancelReply(ctx context.Context, nodeID conversation.NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancelled := s.scheduler.Cancel(nodeID.String())
	s.syncLoadingLocked(ctx)
	return cancelled
}

func (s *Store) syncLoadingLocked(ctx context.Context) {
	loading := s.scheduler.Len() > 0
	if loading != s.state.IsLoading {
		_ = s.dispatchLocked(ctx, conversation.SetLoading{Loading: loading})
	}
}

// WaitForReplies blocks until every scheduled reply was delivered or
// cancelled.
func (s *Store) WaitForReplies() {
	s.scheduler.Wait()
}

// Close cancels the pending replies.
func (s *Store) Close() error {
	return s.scheduler.Close()
}
