package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Side is the result of a side of line test
type Side int

const (
	// SideOn means the point lies on the line
	SideOn Side = 0
	// SideLeft means the cross product (B-A)x(P-A) is positive
	SideLeft Side = 1
	// SideRight means the cross product (B-A)x(P-A) is negative
	SideRight Side = 2
)

// String returns the side name
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "on"
	}
}

// Opposite returns the other side of the line, SideOn is its own opposite
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return SideOn
	}
}

// Line is a directed segment from A to B.  Side tests treat it as the
// infinite line through both points
type Line struct {
	A Point
	B Point
}

// Validate checks the line has two distinct finite endpoints
func (l Line) Validate() error {

	for _, v := range []float64{l.A.X, l.A.Y, l.B.X, l.B.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: line has non-finite endpoint", ErrInvalidGeometry)
		}
	}

	if l.Length() == 0 {
		return fmt.Errorf("%w: line endpoints are identical", ErrInvalidGeometry)
	}

	return nil
}

// Length returns the length of the segment
func (l Line) Length() float64 {
	return Distance(l.A, l.B)
}

// Midpoint returns the middle of the segment
func (l Line) Midpoint() Point {
	return fromVec(r2.Scale(0.5, r2.Add(l.A.Vec(), l.B.Vec())))
}

// cross returns (B-A)x(P-A)
func (l Line) cross(p Point) float64 {
	return r2.Cross(r2.Sub(l.B.Vec(), l.A.Vec()), r2.Sub(p.Vec(), l.A.Vec()))
}

// SignedDistance returns the perpendicular distance from the point to the
// line, positive on SideLeft and negative on SideRight
func (l Line) SignedDistance(p Point) float64 {

	length := l.Length()

	if length == 0 {
		return 0
	}

	return l.cross(p) / length
}

// Scale multiplies both endpoints by the horizontal and vertical factors and
// rounds them to the nearest pixel
func (l Line) Scale(sx, sy float64) Line {
	return Line{
		A: Point{X: math.Round(l.A.X * sx), Y: math.Round(l.A.Y * sy)},
		B: Point{X: math.Round(l.B.X * sx), Y: math.Round(l.B.Y * sy)},
	}
}

// SideOfLine returns which side of the line the point lies on using the sign
// of the 2D cross product
func SideOfLine(p Point, l Line) Side {

	c := l.cross(p)

	switch {
	case math.Abs(c) <= onEdgeTolerance*math.Max(1, l.Length()):
		return SideOn
	case c > 0:
		return SideLeft
	default:
		return SideRight
	}
}
