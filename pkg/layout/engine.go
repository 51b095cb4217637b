package layout

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Strategy records how PlaceChild chose a position.
type Strategy string

const (
	StrategyRight       Strategy = "right"
	StrategyBottom      Strategy = "bottom"
	StrategyLeft        Strategy = "left"
	StrategyBottomRight Strategy = "bottom-right"
	StrategyBottomLeft  Strategy = "bottom-left"
	StrategyLayered     Strategy = "layered"
	StrategyOffset      Strategy = "offset"
)

type Placement struct {
	Position Point
	Strategy Strategy
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.normalize()}
}

func (e *Engine) Config() Config {
	return e.cfg
}

type candidate struct {
	strategy Strategy
	dx, dy   float64
}

func (e *Engine) candidates() []candidate {
	w := e.cfg.NodeWidth + e.cfg.Spacing
	h := e.cfg.NodeHeight + e.cfg.Spacing
	return []candidate{
		{StrategyRight, w, 0},
		{StrategyBottom, 0, h},
		{StrategyLeft, -w, 0},
		{StrategyBottomRight, w, h},
		{StrategyBottomLeft, -w, h},
	}
}

// PlaceChild picks a position for the new node newID next to parent. The
// first candidate slot that keeps half the spacing clear of every obstacle
// wins. When all slots are taken the layered layout of g, which must already
// contain newID and its edge from the parent, decides; its output is
// translated so that the parent stays where it is. The last resort is a
// fixed diagonal offset from the parent. Both fallbacks are moved down one
// box at a time until they are clear of the obstacles.
func (e *Engine) PlaceChild(parent Point, obstacles []Point, g Graph, parentID, newID string) Placement {
	margin := e.cfg.Spacing / 2
	for _, c := range e.candidates() {
		p := parent.Add(c.dx, c.dy)
		if !e.occupied(p, obstacles, margin) {
			return Placement{Position: p, Strategy: c.strategy}
		}
	}

	positions, err := e.safeLayered(g)
	if err == nil {
		child, okChild := positions[newID]
		laidParent, okParent := positions[parentID]
		if okChild && okParent {
			p := Point{
				X: parent.X + child.X - laidParent.X,
				Y: parent.Y + child.Y - laidParent.Y,
			}
			return Placement{Position: e.clear(p, obstacles, margin), Strategy: StrategyLayered}
		}
		err = errors.Wrapf(ErrLayoutFailure, "no position for %q or %q", parentID, newID)
	}

	log.Warn().Err(err).
		Str("parent_id", parentID).
		Str("node_id", newID).
		Msg("layered placement failed, using fixed offset")
	p := parent.Add(e.cfg.NodeWidth+2*e.cfg.Spacing, e.cfg.NodeHeight+2*e.cfg.Spacing)
	return Placement{
		Position: e.clear(p, obstacles, margin),
		Strategy: StrategyOffset,
	}
}

// clear steps p down by one box height plus spacing until it no longer
// overlaps an obstacle. A step moves p past any box it overlapped, so every
// obstacle blocks at most two consecutive steps.
func (e *Engine) clear(p Point, obstacles []Point, margin float64) Point {
	step := e.cfg.NodeHeight + e.cfg.Spacing
	for i := 0; i <= 2*len(obstacles) && e.occupied(p, obstacles, margin); i++ {
		p = p.Add(0, step)
	}
	return p
}

func (e *Engine) occupied(p Point, obstacles []Point, margin float64) bool {
	for _, o := range obstacles {
		if e.cfg.Overlaps(p, o, margin) {
			return true
		}
	}
	return false
}

func (e *Engine) safeLayered(g Graph) (positions Positions, err error) {
	defer func() {
		if r := recover(); r != nil {
			positions = nil
			err = errors.Wrap(ErrLayoutFailure, fmt.Sprintf("panic: %v", r))
		}
	}()
	return Layered(g, e.cfg)
}

// Layout runs the layered layout and falls back to the grid when it fails.
// It never returns an error.
func (e *Engine) Layout(g Graph) Positions {
	positions, err := e.safeLayered(g)
	if err != nil {
		log.Warn().Err(err).
			Int("node_count", len(g.Nodes)).
			Int("edge_count", len(g.Edges)).
			Msg("layered layout failed, falling back to grid")
		return Grid(g, e.cfg)
	}
	return positions
}

// Recalculate runs Layout on a background goroutine and waits for it, or for
// ctx to be cancelled. A cancelled layout finishes in the background and its
// result is dropped.
func (e *Engine) Recalculate(ctx context.Context, g Graph) (Positions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan Positions, 1)
	go func() {
		done <- e.Layout(g)
	}()

	select {
	case p := <-done:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
