package store

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-go-golems/chatpath/pkg/events"
	"github.com/go-go-golems/chatpath/pkg/layout"
	"github.com/go-go-golems/chatpath/pkg/responder"
	"github.com/go-go-golems/chatpath/pkg/snapshot"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []events.TreeEvent
}

func (r *recorder) PublishBlind(ev events.TreeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]events.EventType, 0, len(r.events))
	for _, ev := range r.events {
		ret = append(ret, ev.Type)
	}
	return ret
}

func (r *recorder) last() events.TreeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	store *Store
	repo  *snapshot.Repository
	rec   *recorder
}

func newFixture(t *testing.T, r responder.Responder) *fixture {
	n := 0
	repo := snapshot.NewRepository(snapshot.NewMemoryKV())
	rec := &recorder{}
	s := New(
		WithRepository(repo),
		WithPublisher(rec),
		WithResponder(r),
		WithNodeIDGenerator(func() conversation.NodeID {
			n++
			return conversation.NodeID(fmt.Sprintf("branch-%d", n))
		}),
	)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return &fixture{store: s, repo: repo, rec: rec}
}

func instant(replies ...string) responder.Responder {
	return responder.NewMock(responder.WithDelay(0), responder.WithReplies(replies...))
}

// blocking never answers until its context is cancelled.
func blocking() responder.Responder {
	return responder.Func(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
}

func rootSelection(t *testing.T, s conversation.State, text string) conversation.TextSelection {
	root, ok := s.Tree.Root()
	require.True(t, ok)
	msg := root.Messages[1]
	return conversation.TextSelection{
		Text:        text,
		StartOffset: 0,
		EndOffset:   len([]rune(text)),
		MessageID:   msg.ID,
		NodeID:      root.ID,
	}
}

func TestLoadInitializesAndSaves(t *testing.T) {
	f := newFixture(t, instant())
	ctx := context.Background()

	s, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, s.Tree.Nodes, 1)
	assert.Equal(t, s.Tree.RootNodeID, s.ActiveNodeID)

	stored, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Tree.RootNodeID, stored.RootNodeID)
	assert.Equal(t, []events.EventType{"initialize_tree"}, f.rec.types())
}

func TestLoadRestoresStoredTree(t *testing.T) {
	f := newFixture(t, instant())
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)
	_, _, err = f.store.CreateBranch(ctx, rootSelection(t, s, "What would"))
	require.NoError(t, err)

	other := New(WithRepository(f.repo))
	defer other.Close()
	restored, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, restored.Tree.Nodes, 2)
	assert.Equal(t, restored.Tree.RootNodeID, restored.ActiveNodeID)
}

func TestLoadDiscardsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := snapshot.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, snapshot.DefaultKey, []byte(`{"nodes": [`)))
	repo := snapshot.NewRepository(kv)

	s := New(WithRepository(repo))
	defer s.Close()
	state, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.Tree.Nodes, 1)

	// the bad snapshot was overwritten
	stored, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Tree.RootNodeID, stored.RootNodeID)
}

func TestDispatchRejectedAction(t *testing.T) {
	f := newFixture(t, instant())
	ctx := context.Background()
	before, err := f.store.Load(ctx)
	require.NoError(t, err)

	after, err := f.store.Dispatch(ctx, conversation.SetActiveNode{NodeID: "missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, conversation.ErrNotFound))
	assert.Equal(t, before, after)

	ev := f.rec.last()
	assert.Equal(t, events.EventType("set_active_node"), ev.Type)
	assert.True(t, ev.Failed())

	_, err = f.store.Dispatch(ctx, nil)
	assert.True(t, errors.Is(err, conversation.ErrInvalidOperation))
}

func TestCreateBranchPlacesAroundParent(t *testing.T) {
	f := newFixture(t, instant())
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)
	sel := rootSelection(t, s, "What would")

	want := []layout.Point{
		{X: 600, Y: 0},
		{X: 0, Y: 500},
		{X: -600, Y: 0},
	}
	for i, p := range want {
		id, s, err := f.store.CreateBranch(ctx, sel)
		require.NoError(t, err)
		assert.Equal(t, conversation.NodeID(fmt.Sprintf("branch-%d", i+1)), id)
		n, ok := s.Tree.Node(id)
		require.True(t, ok)
		assert.Equal(t, p, n.Position)
		assert.Equal(t, id, s.ActiveNodeID)
	}

	stored, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 4)
}

func TestCreateBranchNeverOverlaps(t *testing.T) {
	f := newFixture(t, instant())
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)
	cfg := layout.DefaultConfig()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 40; i++ {
		sel := rootSelection(t, s, "What would")
		if i >= 8 {
			// branch nodes start with their seed message
			parent := s.Tree.Nodes[rng.Intn(len(s.Tree.Nodes))]
			if !parent.IsRoot() {
				sel = conversation.TextSelection{
					Text:        "Continuing",
					StartOffset: 0,
					EndOffset:   len("Continuing"),
					MessageID:   parent.Messages[0].ID,
					NodeID:      parent.ID,
				}
			}
		}

		var id conversation.NodeID
		id, s, err = f.store.CreateBranch(ctx, sel)
		require.NoError(t, err)
		child, ok := s.Tree.Node(id)
		require.True(t, ok)
		for _, n := range s.Tree.Nodes {
			if n.ID == id {
				continue
			}
			assert.False(t, cfg.Overlaps(child.Position, n.Position, 0),
				"%s at %v overlaps %s at %v", id, child.Position, n.ID, n.Position)
		}
	}
	assert.Len(t, s.Tree.Nodes, 41)
}

func TestCreateBranchRejected(t *testing.T) {
	f := newFixture(t, instant())
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)

	sel := rootSelection(t, s, "What would")
	sel.NodeID = "missing"
	id, after, err := f.store.CreateBranch(ctx, sel)
	require.Error(t, err)
	assert.Empty(t, id)
	assert.Len(t, after.Tree.Nodes, 1)
}

func TestSendMessageDeliversReply(t *testing.T) {
	f := newFixture(t, instant("pong"))
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)

	_, err = f.store.SendMessage(ctx, s.Tree.RootNodeID, "  hello there ")
	require.NoError(t, err)
	f.store.WaitForReplies()

	s = f.store.State()
	root, ok := s.Tree.Root()
	require.True(t, ok)
	require.Len(t, root.Messages, 4)
	assert.Equal(t, conversation.RoleUser, root.Messages[2].Role)
	assert.Equal(t, "hello there", root.Messages[2].Content)
	assert.Equal(t, conversation.RoleAssistant, root.Messages[3].Role)
	assert.Equal(t, "pong", root.Messages[3].Content)
	assert.False(t, s.IsLoading)
}

func TestSendMessageRejectsBlank(t *testing.T) {
	f := newFixture(t, instant())
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)

	_, err = f.store.SendMessage(ctx, s.Tree.RootNodeID, "   ")
	assert.True(t, errors.Is(err, conversation.ErrInvalidOperation))
	assert.False(t, f.store.State().IsLoading)
}

func TestCancelReply(t *testing.T) {
	f := newFixture(t, blocking())
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)

	s, err = f.store.SendMessage(ctx, s.Tree.RootNodeID, "hello")
	require.NoError(t, err)
	assert.True(t, s.IsLoading)

	assert.True(t, f.store.CancelReply(ctx, s.Tree.RootNodeID))
	f.store.WaitForReplies()
	s = f.store.State()
	assert.False(t, s.IsLoading)
	root, _ := s.Tree.Root()
	assert.Len(t, root.Messages, 3)
}

func TestDeleteNodeDropsPendingReplies(t *testing.T) {
	f := newFixture(t, blocking())
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)

	id, _, err := f.store.CreateBranch(ctx, rootSelection(t, s, "What would"))
	require.NoError(t, err)
	s, err = f.store.SendMessage(ctx, id, "hello")
	require.NoError(t, err)
	require.True(t, s.IsLoading)

	s, err = f.store.DeleteNode(ctx, id)
	require.NoError(t, err)
	assert.False(t, s.IsLoading)
	assert.Len(t, s.Tree.Nodes, 1)
	assert.Equal(t, s.Tree.RootNodeID, s.ActiveNodeID)
	assert.True(t, s.ShouldZoomToParent)

	_, err = f.store.DeleteNode(ctx, s.Tree.RootNodeID)
	assert.True(t, errors.Is(err, conversation.ErrInvalidOperation))
}

func TestRecalculateLayout(t *testing.T) {
	f := newFixture(t, instant())
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)
	sel := rootSelection(t, s, "What would")
	for i := 0; i < 2; i++ {
		_, _, err = f.store.CreateBranch(ctx, sel)
		require.NoError(t, err)
	}

	s, err = f.store.RecalculateLayout(ctx)
	require.NoError(t, err)
	root, _ := s.Tree.Root()
	assert.Equal(t, 50.0, root.Position.X)
	for _, id := range []conversation.NodeID{"branch-1", "branch-2"} {
		n, ok := s.Tree.Node(id)
		require.True(t, ok)
		assert.Equal(t, 700.0, n.Position.X)
	}
	for _, e := range s.Tree.Edges {
		assert.Equal(t, layout.HandleRight, e.SourceHandle)
		assert.Equal(t, layout.HandleLeft, e.TargetHandle)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.store.RecalculateLayout(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReset(t *testing.T) {
	f := newFixture(t, blocking())
	ctx := context.Background()
	s, err := f.store.Load(ctx)
	require.NoError(t, err)
	_, _, err = f.store.CreateBranch(ctx, rootSelection(t, s, "What would"))
	require.NoError(t, err)
	_, err = f.store.SendMessage(ctx, s.Tree.RootNodeID, "hello")
	require.NoError(t, err)

	s, err = f.store.Reset(ctx)
	require.NoError(t, err)
	assert.Len(t, s.Tree.Nodes, 1)
	assert.False(t, s.IsLoading)
}
