package game

import (
	"fmt"
	"strings"
)

// Point is a stage-space position.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Rect is an axis-aligned box in stage space (Y grows downward).
type Rect struct {
	X float64 `yaml:"x" json:"x" msgpack:"x"`
	Y float64 `yaml:"y" json:"y" msgpack:"y"`
	W float64 `yaml:"w" json:"w" msgpack:"w"`
	H float64 `yaml:"h" json:"h" msgpack:"h"`
}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Center returns the rect center.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Intersects reports strict overlap. Rects that only share an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Clip returns the intersection of r and o. The result is empty when they do not overlap.
func (r Rect) Clip(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.Right(), o.Right())
	y1 := min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Offset translates the rect.
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Place converts an anchor-relative rect (authored facing right) into stage
// space for a fighter whose foot anchor is (ax, ay) and who faces facing.
func (r Rect) Place(ax, ay float64, facing int) Rect {
	if facing < 0 {
		return Rect{X: ax - r.X - r.W, Y: ay + r.Y, W: r.W, H: r.H}
	}
	return Rect{X: ax + r.X, Y: ay + r.Y, W: r.W, H: r.H}
}

// signature renders a rect list as a stable key. Used to tell hit groups apart.
func signature(rects []Rect) string {
	if len(rects) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range rects {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%g,%g,%g,%g", r.X, r.Y, r.W, r.H)
	}
	return b.String()
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
