package geometry

import (
	"math"

	clipper "github.com/ctessum/go.clipper"
	"gonum.org/v1/gonum/spatial/r2"
)

// clipScale converts pixel coordinates to the integer space clipper works in
// while keeping sub-pixel precision
const clipScale = 1000.0

// BoxCoverage returns the fraction in [0,1] of the box area lying on the given
// side of the infinite line through l.  Passing SideOn returns 0
func BoxCoverage(b Box, l Line, side Side) float64 {

	area := b.Area()

	if area == 0 || side == SideOn || l.Length() == 0 {
		return 0
	}

	dir := r2.Unit(r2.Sub(l.B.Vec(), l.A.Vec()))

	// unit normal pointing to SideLeft, flipped for SideRight
	normal := r2.Vec{X: -dir.Y, Y: dir.X}
	if side == SideRight {
		normal = r2.Scale(-1, normal)
	}

	// foot of the box center on the line, then a square reaching far enough
	// past the box in every direction to stand in for the half plane
	center := b.Centroid().Vec()
	foot := r2.Add(l.A.Vec(), r2.Scale(r2.Dot(r2.Sub(center, l.A.Vec()), dir), dir))
	diag := math.Hypot(b.Width(), b.Height())
	reach := r2.Norm(r2.Sub(center, foot)) + 2*diag + 1

	half := []r2.Vec{
		r2.Sub(foot, r2.Scale(reach, dir)),
		r2.Add(foot, r2.Scale(reach, dir)),
		r2.Add(r2.Add(foot, r2.Scale(reach, dir)), r2.Scale(2*reach, normal)),
		r2.Add(r2.Sub(foot, r2.Scale(reach, dir)), r2.Scale(2*reach, normal)),
	}

	c := clipper.NewClipper(0)
	c.AddPath(toClipPath(b.Corners()), clipper.PtSubject, true)
	c.AddPath(toClipPathVec(half), clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)

	if !ok {
		return 0
	}

	var covered float64

	for _, path := range solution {
		covered += math.Abs(signedArea(fromClipPath(path)))
	}

	return math.Min(1, covered/area)
}

// toClipPath converts points into a scaled clipper path
func toClipPath(pts []Point) clipper.Path {

	path := make(clipper.Path, 0, len(pts))

	for _, p := range pts {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(p.X * clipScale)),
			Y: clipper.CInt(math.Round(p.Y * clipScale)),
		})
	}

	return path
}

// toClipPathVec converts gonum vectors into a scaled clipper path
func toClipPathVec(vs []r2.Vec) clipper.Path {

	pts := make([]Point, len(vs))

	for i, v := range vs {
		pts[i] = fromVec(v)
	}

	return toClipPath(pts)
}

// fromClipPath converts a clipper path back to pixel space points
func fromClipPath(path clipper.Path) []Point {

	pts := make([]Point, len(path))

	for i, p := range path {
		pts[i] = Point{X: float64(p.X) / clipScale, Y: float64(p.Y) / clipScale}
	}

	return pts
}
