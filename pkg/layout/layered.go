package layout

import (
	"sort"

	"github.com/pkg/errors"
)

// vertex is a node of the layered graph. Dummy vertices break edges that
// span more than one rank so that every edge connects adjacent ranks.
type vertex struct {
	id    string
	dummy bool
	rank  int
	pred  []int
	succ  []int
}

type rawEdge struct {
	from, to int
}

type layeredGraph struct {
	vertices []*vertex
	realN    int
	layers   [][]int
}

// Layered computes a hierarchical left-to-right layout: ranks are assigned by
// longest path from the sources, vertex order within a rank is chosen by
// barycenter sweeps to reduce edge crossings, and coordinates keep boxes of
// the same rank NodeSep apart and ranks RankSep apart. The result is
// deterministic for a given graph and config.
func Layered(g Graph, cfg Config) (Positions, error) {
	cfg = cfg.normalize()
	if len(g.Nodes) == 0 {
		return Positions{}, nil
	}

	lg, edges, err := newLayeredGraph(g)
	if err != nil {
		return nil, err
	}
	if err := lg.assignRanks(edges); err != nil {
		return nil, err
	}
	lg.connect(edges)
	lg.initOrder()
	lg.reduceCrossings(cfg.Sweeps)
	ys := lg.assignY(cfg)

	ret := make(Positions, lg.realN)
	for i := 0; i < lg.realN; i++ {
		v := lg.vertices[i]
		cx := cfg.MarginX + float64(v.rank)*(cfg.NodeWidth+cfg.RankSep) + cfg.NodeWidth/2
		cy := ys[i]
		ret[v.id] = Point{X: cx - cfg.NodeWidth/2, Y: cy - cfg.NodeHeight/2}
	}
	for _, id := range g.Nodes {
		if _, ok := ret[id]; !ok {
			return nil, errors.Wrapf(ErrLayoutFailure, "node %q has no position", id)
		}
	}
	return ret, nil
}

func newLayeredGraph(g Graph) (*layeredGraph, []rawEdge, error) {
	lg := &layeredGraph{}
	index := make(map[string]int, len(g.Nodes))
	for _, id := range g.Nodes {
		if id == "" {
			return nil, nil, errors.Wrap(ErrLayoutFailure, "empty node id")
		}
		if _, ok := index[id]; ok {
			return nil, nil, errors.Wrapf(ErrLayoutFailure, "duplicate node %q", id)
		}
		index[id] = len(lg.vertices)
		lg.vertices = append(lg.vertices, &vertex{id: id})
	}
	lg.realN = len(lg.vertices)

	seen := make(map[rawEdge]struct{}, len(g.Edges))
	edges := make([]rawEdge, 0, len(g.Edges))
	for _, e := range g.Edges {
		from, ok := index[e.From]
		if !ok {
			return nil, nil, errors.Wrapf(ErrLayoutFailure, "edge source %q is not a node", e.From)
		}
		to, ok := index[e.To]
		if !ok {
			return nil, nil, errors.Wrapf(ErrLayoutFailure, "edge target %q is not a node", e.To)
		}
		if from == to {
			return nil, nil, errors.Wrapf(ErrLayoutFailure, "self loop on %q", e.From)
		}
		re := rawEdge{from: from, to: to}
		if _, ok := seen[re]; ok {
			continue
		}
		seen[re] = struct{}{}
		edges = append(edges, re)
	}
	return lg, edges, nil
}

// assignRanks gives every vertex the length of the longest path reaching it
// from a source. A cycle leaves vertices unprocessed and fails the layout.
func (lg *layeredGraph) assignRanks(edges []rawEdge) error {
	n := lg.realN
	indeg := make([]int, n)
	out := make([][]int, n)
	for _, e := range edges {
		out[e.from] = append(out[e.from], e.to)
		indeg[e.to]++
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}

	processed := 0
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		processed++
		for _, w := range out[v] {
			if lg.vertices[v].rank+1 > lg.vertices[w].rank {
				lg.vertices[w].rank = lg.vertices[v].rank + 1
			}
			indeg[w]--
			if indeg[w] == 0 {
				queue = append(queue, w)
			}
		}
	}

	if processed < n {
		return errors.Wrapf(ErrLayoutFailure, "graph has a cycle (%d of %d nodes ranked)", processed, n)
	}
	return nil
}

func (lg *layeredGraph) link(from, to int) {
	lg.vertices[from].succ = append(lg.vertices[from].succ, to)
	lg.vertices[to].pred = append(lg.vertices[to].pred, from)
}

// connect adds the edges, inserting a chain of dummies for every edge that
// spans more than one rank.
func (lg *layeredGraph) connect(edges []rawEdge) {
	for _, e := range edges {
		prev := e.from
		for r := lg.vertices[e.from].rank + 1; r < lg.vertices[e.to].rank; r++ {
			lg.vertices = append(lg.vertices, &vertex{dummy: true, rank: r})
			d := len(lg.vertices) - 1
			lg.link(prev, d)
			prev = d
		}
		lg.link(prev, e.to)
	}
}

// initOrder fills the layers in depth-first order from the sources, which is
// already crossing free for trees.
func (lg *layeredGraph) initOrder() {
	maxRank := 0
	for _, v := range lg.vertices {
		if v.rank > maxRank {
			maxRank = v.rank
		}
	}
	lg.layers = make([][]int, maxRank+1)
	visited := make([]bool, len(lg.vertices))

	var visit func(v int)
	visit = func(v int) {
		if visited[v] {
			return
		}
		visited[v] = true
		r := lg.vertices[v].rank
		lg.layers[r] = append(lg.layers[r], v)
		for _, w := range lg.vertices[v].succ {
			visit(w)
		}
	}

	for i := 0; i < lg.realN; i++ {
		if len(lg.vertices[i].pred) == 0 {
			visit(i)
		}
	}
	for i := range lg.vertices {
		visit(i)
	}
}

func (lg *layeredGraph) positions() []int {
	pos := make([]int, len(lg.vertices))
	for _, layer := range lg.layers {
		for i, v := range layer {
			pos[v] = i
		}
	}
	return pos
}

func (lg *layeredGraph) crossings() int {
	pos := lg.positions()
	total := 0
	for r := 0; r+1 < len(lg.layers); r++ {
		type seg struct{ a, b int }
		var segs []seg
		for _, u := range lg.layers[r] {
			for _, w := range lg.vertices[u].succ {
				segs = append(segs, seg{pos[u], pos[w]})
			}
		}
		for i := 0; i < len(segs); i++ {
			for j := i + 1; j < len(segs); j++ {
				if (segs[i].a < segs[j].a && segs[i].b > segs[j].b) ||
					(segs[i].a > segs[j].a && segs[i].b < segs[j].b) {
					total++
				}
			}
		}
	}
	return total
}

func copyLayers(layers [][]int) [][]int {
	ret := make([][]int, len(layers))
	for i, l := range layers {
		ret[i] = append([]int(nil), l...)
	}
	return ret
}

// reduceCrossings alternates downward (by predecessors) and upward (by
// successors) barycenter sweeps and keeps the best order seen.
func (lg *layeredGraph) reduceCrossings(sweeps int) {
	best := copyLayers(lg.layers)
	bestCrossings := lg.crossings()

	for i := 0; i < sweeps && bestCrossings > 0; i++ {
		if i%2 == 0 {
			for r := 1; r < len(lg.layers); r++ {
				lg.sortLayer(r, true)
			}
		} else {
			for r := len(lg.layers) - 2; r >= 0; r-- {
				lg.sortLayer(r, false)
			}
		}
		if c := lg.crossings(); c < bestCrossings {
			bestCrossings = c
			best = copyLayers(lg.layers)
		}
	}

	lg.layers = best
}

// sortLayer reorders one layer by the barycenter of its neighbours in the
// adjacent fixed layer. Vertices without neighbours keep their slot.
func (lg *layeredGraph) sortLayer(r int, byPred bool) {
	pos := lg.positions()
	layer := lg.layers[r]

	type keyed struct {
		v    int
		bary float64
		idx  int
	}
	var movable []keyed
	fixed := make([]bool, len(layer))
	for idx, v := range layer {
		nbrs := lg.vertices[v].succ
		if byPred {
			nbrs = lg.vertices[v].pred
		}
		if len(nbrs) == 0 {
			fixed[idx] = true
			continue
		}
		sum := 0.0
		for _, n := range nbrs {
			sum += float64(pos[n])
		}
		movable = append(movable, keyed{v: v, bary: sum / float64(len(nbrs)), idx: idx})
	}

	sort.SliceStable(movable, func(i, j int) bool {
		if movable[i].bary != movable[j].bary {
			return movable[i].bary < movable[j].bary
		}
		return movable[i].idx < movable[j].idx
	})

	next := make([]int, len(layer))
	k := 0
	for idx, v := range layer {
		if fixed[idx] {
			next[idx] = v
			continue
		}
		next[idx] = movable[k].v
		k++
	}
	lg.layers[r] = next
}

func (lg *layeredGraph) size(v int, cfg Config) float64 {
	if lg.vertices[v].dummy {
		return 0
	}
	return cfg.NodeHeight
}

// minDist is the smallest allowed distance between the centers of two
// neighbouring vertices of the same rank.
func (lg *layeredGraph) minDist(a, b int, cfg Config) float64 {
	da, db := lg.vertices[a].dummy, lg.vertices[b].dummy
	sep := (cfg.NodeSep + cfg.EdgeSep) / 2
	switch {
	case !da && !db:
		sep = cfg.NodeSep
	case da && db:
		sep = cfg.EdgeSep
	}
	return lg.size(a, cfg)/2 + lg.size(b, cfg)/2 + sep
}

// assignY returns the center coordinate of every vertex along the in-rank
// axis. Layers start tightly packed and centered, then each vertex is pulled
// towards the median of its neighbours while order and separation hold.
func (lg *layeredGraph) assignY(cfg Config) []float64 {
	ys := make([]float64, len(lg.vertices))

	for _, layer := range lg.layers {
		for i, v := range layer {
			if i == 0 {
				ys[v] = lg.size(v, cfg) / 2
				continue
			}
			ys[v] = ys[layer[i-1]] + lg.minDist(layer[i-1], v, cfg)
		}
		if len(layer) > 0 {
			first, last := layer[0], layer[len(layer)-1]
			mid := (ys[first] - lg.size(first, cfg)/2 + ys[last] + lg.size(last, cfg)/2) / 2
			for _, v := range layer {
				ys[v] -= mid
			}
		}
	}

	passes := 2 * cfg.Sweeps
	for i := 0; i < passes; i++ {
		down := i%2 == 0
		if down {
			for r := 1; r < len(lg.layers); r++ {
				lg.alignLayer(r, true, ys, cfg)
			}
		} else {
			for r := len(lg.layers) - 2; r >= 0; r-- {
				lg.alignLayer(r, false, ys, cfg)
			}
		}
	}

	minTop := 0.0
	first := true
	for v := range lg.vertices {
		top := ys[v] - lg.size(v, cfg)/2
		if first || top < minTop {
			minTop = top
			first = false
		}
	}
	shift := cfg.MarginY - minTop
	for v := range ys {
		ys[v] += shift
	}
	return ys
}

func (lg *layeredGraph) alignLayer(r int, byPred bool, ys []float64, cfg Config) {
	layer := lg.layers[r]
	n := len(layer)
	if n == 0 {
		return
	}

	desired := make([]float64, n)
	for i, v := range layer {
		nbrs := lg.vertices[v].succ
		if byPred {
			nbrs = lg.vertices[v].pred
		}
		if len(nbrs) == 0 {
			desired[i] = ys[v]
			continue
		}
		vals := make([]float64, len(nbrs))
		for j, nb := range nbrs {
			vals[j] = ys[nb]
		}
		desired[i] = median(vals)
	}

	forward := make([]float64, n)
	backward := make([]float64, n)
	forward[0] = desired[0]
	for i := 1; i < n; i++ {
		forward[i] = max(desired[i], forward[i-1]+lg.minDist(layer[i-1], layer[i], cfg))
	}
	backward[n-1] = desired[n-1]
	for i := n - 2; i >= 0; i-- {
		backward[i] = min(desired[i], backward[i+1]-lg.minDist(layer[i], layer[i+1], cfg))
	}
	for i, v := range layer {
		ys[v] = (forward[i] + backward[i]) / 2
	}
}

func median(vals []float64) float64 {
	sort.Float64s(vals)
	m := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[m]
	}
	return (vals[m-1] + vals[m]) / 2
}
