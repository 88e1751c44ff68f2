package region

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/tracker"
)

// DefaultScoreThreshold is the lane violation score a track must reach
const DefaultScoreThreshold = 0.3

// majorityCoverage is the fraction of the bounding box that must lie in the
// opposing lane
const majorityCoverage = 0.5

// Boundary names one of the two lane boundaries
type Boundary int

const (
	// BoundaryLeft is the left lane boundary
	BoundaryLeft Boundary = iota
	// BoundaryRight is the right lane boundary
	BoundaryRight
)

// String returns the boundary name
func (b Boundary) String() string {
	if b == BoundaryRight {
		return "right"
	}
	return "left"
}

// ParseBoundary converts "left" or "right" into a Boundary, an empty string
// gives BoundaryLeft
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "", "left":
		return BoundaryLeft, nil
	case "right":
		return BoundaryRight, nil
	}
	return BoundaryLeft, fmt.Errorf("unknown lane boundary %q", s)
}

// LaneModel is the travel lane bounded by a left and right line with the
// opposing traffic lane beyond one of them
type LaneModel struct {
	left     geometry.Line
	right    geometry.Line
	opposing Boundary
	// threshold is the minimum score for a violation
	threshold float64
	// wrongSide is the side of the opposing boundary facing away from the
	// lane interior
	wrongSide geometry.Side
	// width is the lane width measured from the opposing boundary
	width float64
	// BaseWidth and BaseHeight are the canvas size the boundaries were drawn
	// on, zero when already in frame coordinates
	BaseWidth  int
	BaseHeight int
}

// NewLaneModel creates a lane model.  The boundaries must be distinct
// non-degenerate lines not crossing each other at their midpoints
func NewLaneModel(left, right geometry.Line, opposing Boundary,
	threshold float64) (*LaneModel, error) {

	if err := left.Validate(); err != nil {
		return nil, fmt.Errorf("left boundary: %w", err)
	}

	if err := right.Validate(); err != nil {
		return nil, fmt.Errorf("right boundary: %w", err)
	}

	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("score threshold %v outside of [0,1]", threshold)
	}

	l := &LaneModel{
		left:      left,
		right:     right,
		opposing:  opposing,
		threshold: threshold,
	}

	border, other := l.boundaries()
	interior := geometry.SideOfLine(other.Midpoint(), border)

	if interior == geometry.SideOn {
		return nil, fmt.Errorf("%w: lane boundaries are collinear", geometry.ErrInvalidGeometry)
	}

	l.wrongSide = interior.Opposite()
	l.width = math.Abs(border.SignedDistance(other.Midpoint()))

	return l, nil
}

// boundaries returns the opposing boundary then the other one
func (l *LaneModel) boundaries() (geometry.Line, geometry.Line) {
	if l.opposing == BoundaryRight {
		return l.right, l.left
	}
	return l.left, l.right
}

// ID returns LaneID
func (l *LaneModel) ID() string {
	return LaneID
}

// Left returns the left boundary
func (l *LaneModel) Left() geometry.Line {
	return l.left
}

// Right returns the right boundary
func (l *LaneModel) Right() geometry.Line {
	return l.right
}

// Opposing returns which boundary the opposing lane lies beyond
func (l *LaneModel) Opposing() Boundary {
	return l.opposing
}

// Threshold returns the violation score threshold
func (l *LaneModel) Threshold() float64 {
	return l.threshold
}

// Width returns the lane width in pixels
func (l *LaneModel) Width() float64 {
	return l.width
}

// Score returns how far the point lies past the opposing boundary as a
// fraction of the lane width, 0 on the boundary or inside the lane and 1 at
// a full lane width or more
func (l *LaneModel) Score(p geometry.Point) float64 {

	border, _ := l.boundaries()

	if geometry.SideOfLine(p, border) != l.wrongSide || l.width == 0 {
		return 0
	}

	return math.Min(1, math.Abs(border.SignedDistance(p))/l.width)
}

// Violates is true when the track's centroid is past the opposing boundary,
// the majority of its box lies in the opposing lane and its score reaches
// the threshold
func (l *LaneModel) Violates(t *tracker.Track) Verdict {

	border, _ := l.boundaries()
	centroid := t.Centroid()

	if geometry.SideOfLine(centroid, border) != l.wrongSide {
		return Verdict{}
	}

	score := l.Score(centroid)

	if geometry.BoxCoverage(t.Box(), border, l.wrongSide) <= majorityCoverage {
		return Verdict{Score: score}
	}

	return Verdict{Violating: score >= l.threshold, Score: score}
}

// Fingerprint identifies the boundaries, opposing side and threshold
func (l *LaneModel) Fingerprint() uuid.UUID {
	key := fmt.Sprintf("lane|%g,%g,%g,%g|%g,%g,%g,%g|%s|%g",
		l.left.A.X, l.left.A.Y, l.left.B.X, l.left.B.Y,
		l.right.A.X, l.right.A.Y, l.right.B.X, l.right.B.Y,
		l.opposing, l.threshold)

	return uuid.NewSHA1(fingerprintSpace, []byte(key))
}

// WithThreshold returns a copy of the model using a different score
// threshold
func (l *LaneModel) WithThreshold(threshold float64) (*LaneModel, error) {
	m, err := NewLaneModel(l.left, l.right, l.opposing, threshold)
	if err != nil {
		return nil, err
	}
	m.BaseWidth = l.BaseWidth
	m.BaseHeight = l.BaseHeight
	return m, nil
}

// RescaleTo returns a copy of the model scaled from its base canvas to the
// given frame size.  Models without a base size are returned unchanged
func (l *LaneModel) RescaleTo(width, height int) (*LaneModel, error) {

	if l.BaseWidth <= 0 || l.BaseHeight <= 0 || width <= 0 || height <= 0 {
		return l, nil
	}

	sx := float64(width) / float64(l.BaseWidth)
	sy := float64(height) / float64(l.BaseHeight)

	m, err := NewLaneModel(l.left.Scale(sx, sy), l.right.Scale(sx, sy), l.opposing, l.threshold)
	if err != nil {
		return nil, err
	}

	m.BaseWidth = width
	m.BaseHeight = height

	return m, nil
}
