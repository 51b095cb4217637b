package layout

import "math"

// Handle names the side of a box an edge attaches to.
type Handle string

const (
	HandleTop    Handle = "top"
	HandleRight  Handle = "right"
	HandleBottom Handle = "bottom"
	HandleLeft   Handle = "left"
)

// EdgeHandles picks the sides to connect two boxes on. A mostly horizontal
// relationship attaches left/right, anything else top/bottom.
func EdgeHandles(source, target Point, cfg Config) (Handle, Handle) {
	cfg = cfg.normalize()
	sx := source.X + cfg.NodeWidth/2
	sy := source.Y + cfg.NodeHeight/2
	tx := target.X + cfg.NodeWidth/2
	ty := target.Y + cfg.NodeHeight/2
	dx := tx - sx
	dy := ty - sy

	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return HandleRight, HandleLeft
		}
		return HandleLeft, HandleRight
	}
	if dy >= 0 {
		return HandleBottom, HandleTop
	}
	return HandleTop, HandleBottom
}
