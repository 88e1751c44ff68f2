package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Box is an axis aligned bounding box given by its top-left (X1,Y1) and
// bottom-right (X2,Y2) corners
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewBox creates a new Box from corner coordinates
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// BoxFromXYWH creates a Box from its top-left corner, width and height
func BoxFromXYWH(x, y, w, h float64) Box {
	return Box{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// Validate checks the box has a positive width and height and finite
// coordinates
func (b Box) Validate() error {

	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: box has non-finite coordinate", ErrInvalidGeometry)
		}
	}

	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return fmt.Errorf("%w: box (%.1f,%.1f,%.1f,%.1f) requires x1<x2 and y1<y2",
			ErrInvalidGeometry, b.X1, b.Y1, b.X2, b.Y2)
	}

	return nil
}

// Width returns the width of the box
func (b Box) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the height of the box
func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

// Area returns the area of the box, zero for an inverted box
func (b Box) Area() float64 {
	w := b.Width()
	h := b.Height()

	if w <= 0 || h <= 0 {
		return 0
	}

	return w * h
}

// Centroid returns the midpoint of the box
func (b Box) Centroid() Point {
	return fromVec(b.r2().Center())
}

// BottomCenter returns the middle of the bottom edge, the point where a
// vehicle meets the road surface
func (b Box) BottomCenter() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: b.Y2}
}

// Contains reports whether the point lies inside or on the edge of the box
func (b Box) Contains(p Point) bool {
	return b.r2().Contains(p.Vec())
}

// Corners returns the four corners of the box in clockwise order starting at
// the top-left corner
func (b Box) Corners() []Point {
	return []Point{
		{X: b.X1, Y: b.Y1},
		{X: b.X2, Y: b.Y1},
		{X: b.X2, Y: b.Y2},
		{X: b.X1, Y: b.Y2},
	}
}

// Intersect returns the overlapping region of two boxes.  The bool result is
// false when the boxes do not overlap with a positive area
func (b Box) Intersect(other Box) (Box, bool) {

	in := Box{
		X1: math.Max(b.X1, other.X1),
		Y1: math.Max(b.Y1, other.Y1),
		X2: math.Min(b.X2, other.X2),
		Y2: math.Min(b.Y2, other.Y2),
	}

	if in.X1 >= in.X2 || in.Y1 >= in.Y2 {
		return Box{}, false
	}

	return in, true
}

// Scale multiplies the box coordinates by the given horizontal and vertical
// factors
func (b Box) Scale(sx, sy float64) Box {
	return Box{X1: b.X1 * sx, Y1: b.Y1 * sy, X2: b.X2 * sx, Y2: b.Y2 * sy}
}

// Translate moves the box by the given offset
func (b Box) Translate(dx, dy float64) Box {
	return Box{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// r2 returns the box as a gonum r2.Box
func (b Box) r2() r2.Box {
	return r2.Box{Min: r2.Vec{X: b.X1, Y: b.Y1}, Max: r2.Vec{X: b.X2, Y: b.Y2}}
}

// Centroid returns the midpoint of the bounding box
func Centroid(b Box) Point {
	return b.Centroid()
}

// IoU calculates the Intersection over Union of two boxes.  Returns 0 when
// the boxes do not overlap
func IoU(a, b Box) float64 {

	in, ok := a.Intersect(b)

	if !ok {
		return 0
	}

	inter := in.Area()
	union := a.Area() + b.Area() - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}
