// Package layout assigns non-overlapping positions to the fixed-size boxes of
// a conversation tree.
//
// Two modes are offered. PlaceChild probes a handful of slots around a parent
// and is used when a single branch is added. Layered runs a hierarchical
// left-to-right layout over the whole graph and is used when the user asks for
// a re-layout, or when every slot around a parent is taken. Engine wraps both
// and degrades to a deterministic grid when the layered layout fails.
package layout

import (
	"github.com/pkg/errors"
)

// ErrLayoutFailure is returned when the layered layout cannot process a graph.
var ErrLayoutFailure = errors.New("layout failure")

// Point is the top-left corner of a box.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Edge is a directed parent -> child relationship.
type Edge struct {
	From string
	To   string
}

// Graph is the input of the layouts. Node order matters: it is the reading
// order used by the grid fallback and the tie-break order everywhere else.
type Graph struct {
	Nodes []string
	Edges []Edge
}

// Positions maps node ids to the top-left corner of their box.
type Positions map[string]Point

// Config holds the box size and all separation constants.
type Config struct {
	NodeWidth  float64 `mapstructure:"node-width"`
	NodeHeight float64 `mapstructure:"node-height"`
	// Spacing is the gap used by incremental placement and the grid fallback.
	Spacing float64 `mapstructure:"spacing"`
	// NodeSep separates two boxes in the same rank.
	NodeSep float64 `mapstructure:"node-sep"`
	// EdgeSep separates edge routing points (dummy nodes) in the same rank.
	EdgeSep float64 `mapstructure:"edge-sep"`
	// RankSep separates two consecutive ranks.
	RankSep float64 `mapstructure:"rank-sep"`
	MarginX float64 `mapstructure:"margin-x"`
	MarginY float64 `mapstructure:"margin-y"`
	// GridColumns is the row length of the grid fallback.
	GridColumns int `mapstructure:"grid-columns"`
	// Sweeps is the number of crossing reduction passes.
	Sweeps int `mapstructure:"sweeps"`
}

func DefaultConfig() Config {
	return Config{
		NodeWidth:   500,
		NodeHeight:  400,
		Spacing:     100,
		NodeSep:     100,
		EdgeSep:     40,
		RankSep:     150,
		MarginX:     50,
		MarginY:     50,
		GridColumns: 3,
		Sweeps:      8,
	}
}

// normalize fills zero values with defaults so a partially populated config
// coming from flags or files still produces a usable layout.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.NodeWidth <= 0 {
		c.NodeWidth = d.NodeWidth
	}
	if c.NodeHeight <= 0 {
		c.NodeHeight = d.NodeHeight
	}
	if c.Spacing < 0 {
		c.Spacing = d.Spacing
	}
	if c.NodeSep < 0 {
		c.NodeSep = d.NodeSep
	}
	if c.EdgeSep < 0 {
		c.EdgeSep = d.EdgeSep
	}
	if c.RankSep < 0 {
		c.RankSep = d.RankSep
	}
	if c.GridColumns <= 0 {
		c.GridColumns = d.GridColumns
	}
	if c.Sweeps <= 0 {
		c.Sweeps = d.Sweeps
	}
	return c
}

// Overlaps reports whether two boxes of the configured size intersect once
// the first one is grown by margin on every side.
func (c Config) Overlaps(a, b Point, margin float64) bool {
	return a.X-margin < b.X+c.NodeWidth &&
		b.X < a.X+c.NodeWidth+margin &&
		a.Y-margin < b.Y+c.NodeHeight &&
		b.Y < a.Y+c.NodeHeight+margin
}
