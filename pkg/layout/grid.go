package layout

// Grid places nodes in reading order, GridColumns per row, each cell sized
// box + spacing. It cannot fail and is the last resort of Engine.Layout.
func Grid(g Graph, cfg Config) Positions {
	cfg = cfg.normalize()
	ret := make(Positions, len(g.Nodes))
	for i, id := range g.Nodes {
		col := i % cfg.GridColumns
		row := i / cfg.GridColumns
		ret[id] = Point{
			X: cfg.MarginX + float64(col)*(cfg.NodeWidth+cfg.Spacing),
			Y: cfg.MarginY + float64(row)*(cfg.NodeHeight+cfg.Spacing),
		}
	}
	return ret
}
