package drag

import (
	"math"

	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// Point is a position in screen units (terminal cells in the TUI).
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned rectangle with its origin at the top-left.
type Rect struct {
	X, Y, W, H float64
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} //nolint:mnd // midpoint
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Target is a drop zone for one status column.
type Target struct {
	Status task.Status
	Rect   Rect
}

// ClosestCenter returns the target whose center is nearest to p. Ties go to
// the earlier target. ok is false when targets is empty.
func ClosestCenter(p Point, targets []Target) (task.Status, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, t := range targets {
		if d := p.Dist(t.Rect.Center()); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return "", false
	}
	return targets[best].Status, true
}

// ColumnTargets lays out one target per status side by side, each width
// wide and height tall, starting at (x, y).
func ColumnTargets(statuses []task.Status, x, y, width, height float64) []Target {
	targets := make([]Target, len(statuses))
	for i, s := range statuses {
		targets[i] = Target{
			Status: s,
			Rect:   Rect{X: x + float64(i)*width, Y: y, W: width, H: height},
		}
	}
	return targets
}
