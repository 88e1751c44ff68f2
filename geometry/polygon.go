package geometry

import (
	"fmt"
	"math"
)

// onEdgeTolerance is the cross product magnitude below which a point is
// considered to lie on a polygon edge or line
const onEdgeTolerance = 1e-9

// Polygon is an ordered sequence of vertices, implicitly closed between the
// last and first vertex
type Polygon []Point

// Validate checks the polygon has at least 3 finite vertices
func (p Polygon) Validate() error {

	if len(p) < 3 {
		return fmt.Errorf("%w: polygon has %d vertices, need at least 3",
			ErrInvalidGeometry, len(p))
	}

	for i, v := range p {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return fmt.Errorf("%w: polygon vertex %d is not finite", ErrInvalidGeometry, i)
		}
	}

	return nil
}

// Bounds returns the smallest box containing every vertex
func (p Polygon) Bounds() Box {

	if len(p) == 0 {
		return Box{}
	}

	b := Box{X1: p[0].X, Y1: p[0].Y, X2: p[0].X, Y2: p[0].Y}

	for _, v := range p[1:] {
		b.X1 = math.Min(b.X1, v.X)
		b.Y1 = math.Min(b.Y1, v.Y)
		b.X2 = math.Max(b.X2, v.X)
		b.Y2 = math.Max(b.Y2, v.Y)
	}

	return b
}

// Area returns the absolute area enclosed by the polygon using the shoelace
// formula
func (p Polygon) Area() float64 {
	return math.Abs(signedArea(p))
}

// Centroid returns the mean of the vertices.  This is the label anchor used
// when drawing zones rather than the true area centroid
func (p Polygon) Centroid() Point {

	if len(p) == 0 {
		return Point{}
	}

	var sx, sy float64

	for _, v := range p {
		sx += v.X
		sy += v.Y
	}

	n := float64(len(p))

	return Point{X: sx / n, Y: sy / n}
}

// Scale multiplies each vertex by the horizontal and vertical factors and
// rounds the result to the nearest pixel
func (p Polygon) Scale(sx, sy float64) Polygon {

	out := make(Polygon, len(p))

	for i, v := range p {
		out[i] = Point{X: math.Round(v.X * sx), Y: math.Round(v.Y * sy)}
	}

	return out
}

// signedArea returns the shoelace area, positive for vertices ordered
// counter-clockwise in a y-up frame
func signedArea(p []Point) float64 {

	var sum float64

	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}

	return sum / 2
}

// PointInPolygon tests whether the point lies inside the polygon using the
// even-odd ray casting rule.  A point exactly on an edge or vertex is treated
// as inside.  Returns ErrInvalidGeometry for polygons with fewer than 3
// vertices
func PointInPolygon(pt Point, poly Polygon) (bool, error) {

	if err := poly.Validate(); err != nil {
		return false, err
	}

	return pointInPolygon(pt, poly), nil
}

// pointInPolygon is PointInPolygon for a polygon already known to be valid
func pointInPolygon(pt Point, poly Polygon) bool {

	n := len(poly)

	// edge membership first so boundary points are not subject to the
	// parity of the ray crossing
	for i := 0; i < n; i++ {
		if onSegment(pt, poly[i], poly[(i+1)%n]) {
			return true
		}
	}

	inside := false

	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a := poly[i]
		b := poly[j]

		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			xCross := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X

			if pt.X < xCross {
				inside = !inside
			}
		}
	}

	return inside
}

// onSegment reports whether p lies on the closed segment a-b
func onSegment(p, a, b Point) bool {

	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)

	if math.Abs(cross) > onEdgeTolerance*math.Max(1, Distance(a, b)) {
		return false
	}

	return p.X >= math.Min(a.X, b.X)-onEdgeTolerance &&
		p.X <= math.Max(a.X, b.X)+onEdgeTolerance &&
		p.Y >= math.Min(a.Y, b.Y)-onEdgeTolerance &&
		p.Y <= math.Max(a.Y, b.Y)+onEdgeTolerance
}
