package layout

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(ids ...string) Graph {
	g := Graph{Nodes: ids}
	for i := 1; i < len(ids); i++ {
		g.Edges = append(g.Edges, Edge{From: ids[i-1], To: ids[i]})
	}
	return g
}

// wideTree builds a root with fanout children, each with fanout children.
func wideTree(fanout int) Graph {
	g := Graph{Nodes: []string{"root"}}
	for i := 0; i < fanout; i++ {
		c := fmt.Sprintf("c%d", i)
		g.Nodes = append(g.Nodes, c)
		g.Edges = append(g.Edges, Edge{From: "root", To: c})
		for j := 0; j < fanout; j++ {
			gc := fmt.Sprintf("c%d-%d", i, j)
			g.Nodes = append(g.Nodes, gc)
			g.Edges = append(g.Edges, Edge{From: c, To: gc})
		}
	}
	return g
}

func TestLayeredChain(t *testing.T) {
	cfg := DefaultConfig()
	positions, err := Layered(chain("a", "b", "c"), cfg)
	require.NoError(t, err)
	require.Len(t, positions, 3)

	assert.Equal(t, Point{X: 50, Y: 50}, positions["a"])
	assert.Equal(t, Point{X: 700, Y: 50}, positions["b"])
	assert.Equal(t, Point{X: 1350, Y: 50}, positions["c"])
}

func TestLayeredCentersParentOnChildren(t *testing.T) {
	g := Graph{
		Nodes: []string{"root", "a", "b"},
		Edges: []Edge{{From: "root", To: "a"}, {From: "root", To: "b"}},
	}
	positions, err := Layered(g, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, Point{X: 50, Y: 300}, positions["root"])
	assert.Equal(t, Point{X: 700, Y: 50}, positions["a"])
	assert.Equal(t, Point{X: 700, Y: 550}, positions["b"])
}

func TestLayeredIsDeterministic(t *testing.T) {
	g := wideTree(4)
	first, err := Layered(g, DefaultConfig())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Layered(g, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLayeredDoesNotOverlap(t *testing.T) {
	cfg := DefaultConfig()
	g := wideTree(4)
	// a long edge forces dummy vertices through rank 1
	g.Nodes = append(g.Nodes, "far")
	g.Edges = append(g.Edges, Edge{From: "c0-0", To: "far"}, Edge{From: "root", To: "far"})

	positions, err := Layered(g, cfg)
	require.NoError(t, err)
	require.Len(t, positions, len(g.Nodes))

	for i, a := range g.Nodes {
		for _, b := range g.Nodes[i+1:] {
			assert.False(t, cfg.Overlaps(positions[a], positions[b], 0), "%s overlaps %s", a, b)
		}
		assert.GreaterOrEqual(t, positions[a].X, cfg.MarginX)
		assert.GreaterOrEqual(t, positions[a].Y, cfg.MarginY)
	}

	for _, e := range g.Edges {
		assert.Less(t, positions[e.From].X, positions[e.To].X, "%s -> %s", e.From, e.To)
	}
	assert.Equal(t, positions["far"].X, cfg.MarginX+3*(cfg.NodeWidth+cfg.RankSep))
}

func TestLayeredRejectsMalformedGraphs(t *testing.T) {
	tests := []struct {
		name string
		g    Graph
	}{
		{"cycle", Graph{Nodes: []string{"a", "b"}, Edges: []Edge{{"a", "b"}, {"b", "a"}}}},
		{"unknown source", Graph{Nodes: []string{"a"}, Edges: []Edge{{"x", "a"}}}},
		{"unknown target", Graph{Nodes: []string{"a"}, Edges: []Edge{{"a", "x"}}}},
		{"self loop", Graph{Nodes: []string{"a"}, Edges: []Edge{{"a", "a"}}}},
		{"duplicate node", Graph{Nodes: []string{"a", "a"}}},
		{"empty id", Graph{Nodes: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Layered(tt.g, DefaultConfig())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrLayoutFailure))
		})
	}
}

func TestLayoutFallsBackToGrid(t *testing.T) {
	e := NewEngine(DefaultConfig())
	g := Graph{
		Nodes: []string{"a", "b", "c", "d"},
		Edges: []Edge{{"a", "b"}, {"b", "c"}, {"c", "a"}},
	}
	positions := e.Layout(g)
	assert.Equal(t, Grid(g, DefaultConfig()), positions)
}

func TestGrid(t *testing.T) {
	positions := Grid(Graph{Nodes: []string{"a", "b", "c", "d"}}, DefaultConfig())
	assert.Equal(t, Positions{
		"a": {X: 50, Y: 50},
		"b": {X: 650, Y: 50},
		"c": {X: 1250, Y: 50},
		"d": {X: 50, Y: 550},
	}, positions)
}

func TestPlaceChildProbeOrder(t *testing.T) {
	e := NewEngine(DefaultConfig())
	parent := Point{X: 0, Y: 0}
	g := Graph{Nodes: []string{"p", "new"}, Edges: []Edge{{"p", "new"}}}

	tests := []struct {
		name      string
		obstacles []Point
		want      Placement
	}{
		{"empty", []Point{parent}, Placement{Point{600, 0}, StrategyRight}},
		{"right taken", []Point{parent, {600, 0}}, Placement{Point{0, 500}, StrategyBottom}},
		{"right and bottom taken", []Point{parent, {600, 0}, {0, 500}}, Placement{Point{-600, 0}, StrategyLeft}},
		{"right bottom left taken", []Point{parent, {600, 0}, {0, 500}, {-600, 0}}, Placement{Point{600, 500}, StrategyBottomRight}},
		{"only bottom-left free", []Point{parent, {600, 0}, {0, 500}, {-600, 0}, {600, 500}}, Placement{Point{-600, 500}, StrategyBottomLeft}},
		{"nudged sibling still blocks", []Point{parent, {640, 30}}, Placement{Point{0, 500}, StrategyBottom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.PlaceChild(parent, tt.obstacles, g, "p", "new")
			assert.Equal(t, tt.want, got)
			for _, o := range tt.obstacles {
				assert.False(t, e.Config().Overlaps(got.Position, o, e.Config().Spacing/2))
			}
		})
	}
}

func TestPlaceChildFallsBackToLayered(t *testing.T) {
	e := NewEngine(DefaultConfig())
	parent := Point{X: 1000, Y: 1000}
	obstacles := []Point{parent}
	g := Graph{Nodes: []string{"p"}}
	for i, c := range e.candidates() {
		obstacles = append(obstacles, parent.Add(c.dx, c.dy))
		id := fmt.Sprintf("c%d", i)
		g.Nodes = append(g.Nodes, id)
		g.Edges = append(g.Edges, Edge{From: "p", To: id})
	}
	g.Nodes = append(g.Nodes, "new")
	g.Edges = append(g.Edges, Edge{From: "p", To: "new"})

	got := e.PlaceChild(parent, obstacles, g, "p", "new")
	assert.Equal(t, StrategyLayered, got.Strategy)
	assert.Equal(t, parent.X+650, got.Position.X)
	for _, o := range obstacles {
		assert.False(t, e.Config().Overlaps(got.Position, o, e.Config().Spacing/2), "overlaps %v", o)
	}
}

func TestPlaceChildLayeredMovesOffTakenSlots(t *testing.T) {
	e := NewEngine(DefaultConfig())
	parent := Point{X: 0, Y: 0}
	obstacles := []Point{parent}
	for _, c := range e.candidates() {
		obstacles = append(obstacles, parent.Add(c.dx, c.dy))
	}
	g := Graph{Nodes: []string{"p", "new"}, Edges: []Edge{{"p", "new"}}}

	// a lone child is laid out level with the parent, right where the
	// right slot already is
	laid, err := Layered(g, e.Config())
	require.NoError(t, err)
	want := Point{X: laid["new"].X - laid["p"].X, Y: laid["new"].Y - laid["p"].Y}
	require.True(t, e.Config().Overlaps(want, obstacles[1], 0))

	got := e.PlaceChild(parent, obstacles, g, "p", "new")
	assert.Equal(t, StrategyLayered, got.Strategy)
	assert.Equal(t, want.X, got.Position.X)
	assert.Greater(t, got.Position.Y, want.Y)
	for _, o := range obstacles {
		assert.False(t, e.Config().Overlaps(got.Position, o, e.Config().Spacing/2), "overlaps %v", o)
	}
}

func TestPlaceChildFallsBackToOffset(t *testing.T) {
	e := NewEngine(DefaultConfig())
	parent := Point{X: 0, Y: 0}
	obstacles := []Point{parent}
	for _, c := range e.candidates() {
		obstacles = append(obstacles, parent.Add(c.dx, c.dy))
	}
	// the layered layout cannot rank a cycle
	g := Graph{Nodes: []string{"p", "new"}, Edges: []Edge{{"p", "new"}, {"new", "p"}}}

	// the diagonal offset touches the bottom-right slot and moves one box down
	got := e.PlaceChild(parent, obstacles, g, "p", "new")
	assert.Equal(t, Placement{Point{700, 1100}, StrategyOffset}, got)
	for _, o := range obstacles {
		assert.False(t, e.Config().Overlaps(got.Position, o, e.Config().Spacing/2), "overlaps %v", o)
	}
}

func TestRecalculate(t *testing.T) {
	e := NewEngine(DefaultConfig())
	g := wideTree(3)
	positions, err := e.Recalculate(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, e.Layout(g), positions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Recalculate(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEdgeHandles(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name           string
		source, target Point
		src, dst       Handle
	}{
		{"right", Point{0, 0}, Point{600, 0}, HandleRight, HandleLeft},
		{"left", Point{600, 0}, Point{0, 0}, HandleLeft, HandleRight},
		{"below", Point{0, 0}, Point{0, 500}, HandleBottom, HandleTop},
		{"above", Point{0, 500}, Point{0, 0}, HandleTop, HandleBottom},
		{"diagonal ties go vertical", Point{0, 0}, Point{500, 500}, HandleBottom, HandleTop},
		{"mostly horizontal", Point{0, 0}, Point{600, 500}, HandleRight, HandleLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := EdgeHandles(tt.source, tt.target, cfg)
			assert.Equal(t, tt.src, src)
			assert.Equal(t, tt.dst, dst)
		})
	}
}
