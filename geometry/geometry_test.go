package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentroid(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Pt(15, 30), Centroid(NewBox(10, 20, 20, 40)))
	assert.Equal(t, Pt(15, 40), NewBox(10, 20, 20, 40).BottomCenter())
}

func TestIoU(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		a, b     Box
		expected float64
	}{
		{"identical", NewBox(0, 0, 10, 10), NewBox(0, 0, 10, 10), 1},
		{"half overlap", NewBox(0, 0, 10, 10), NewBox(5, 0, 15, 10), 50.0 / 150.0},
		{"touching edges", NewBox(0, 0, 10, 10), NewBox(10, 0, 20, 10), 0},
		{"disjoint", NewBox(0, 0, 10, 10), NewBox(50, 50, 60, 60), 0},
		{"contained", NewBox(0, 0, 10, 10), NewBox(2, 2, 7, 7), 25.0 / 100.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.expected, IoU(tc.a, tc.b), 1e-12)
			assert.InDelta(t, tc.expected, IoU(tc.b, tc.a), 1e-12)
		})
	}
}

func TestBoxValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewBox(0, 0, 1, 1).Validate())
	assert.ErrorIs(t, NewBox(5, 0, 5, 1).Validate(), ErrInvalidGeometry)
	assert.ErrorIs(t, NewBox(0, 3, 1, 2).Validate(), ErrInvalidGeometry)
}

func TestPointInPolygon(t *testing.T) {
	t.Parallel()

	square := Polygon{Pt(0, 0), Pt(1, 0), Pt(1, 1), Pt(0, 1)}

	tests := []struct {
		name     string
		pt       Point
		expected bool
	}{
		{"strictly inside", Pt(0.5, 0.5), true},
		{"strictly outside", Pt(2, 2), false},
		{"on edge", Pt(1, 0.5), true},
		{"on vertex", Pt(0, 0), true},
		{"on bottom edge", Pt(0.3, 1), true},
		{"left of polygon on edge line", Pt(-1, 0), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in, err := PointInPolygon(tc.pt, square)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, in)
		})
	}
}

func TestPointInPolygonConcave(t *testing.T) {
	t.Parallel()

	// U shape opening upward
	u := Polygon{Pt(0, 0), Pt(1, 0), Pt(1, 3), Pt(2, 3), Pt(2, 0), Pt(3, 0), Pt(3, 4), Pt(0, 4)}

	in, err := PointInPolygon(Pt(1.5, 1), u)
	require.NoError(t, err)
	assert.False(t, in)

	in, err = PointInPolygon(Pt(0.5, 1), u)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestPointInPolygonInvalid(t *testing.T) {
	t.Parallel()

	_, err := PointInPolygon(Pt(0, 0), Polygon{Pt(0, 0), Pt(1, 1)})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestSideOfLine(t *testing.T) {
	t.Parallel()

	// pointing down the image
	l := Line{A: Pt(100, 0), B: Pt(100, 400)}

	assert.Equal(t, SideLeft, SideOfLine(Pt(300, 200), l).Opposite())
	assert.Equal(t, SideRight, SideOfLine(Pt(300, 200), l))
	assert.Equal(t, SideLeft, SideOfLine(Pt(30, 120), l))
	assert.Equal(t, SideOn, SideOfLine(Pt(100, 1000), l))

	assert.InDelta(t, 70, l.SignedDistance(Pt(30, 120)), 1e-12)
	assert.InDelta(t, -200, l.SignedDistance(Pt(300, 0)), 1e-12)
}

func TestLineValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Line{A: Pt(0, 0), B: Pt(0, 1)}.Validate())
	assert.ErrorIs(t, Line{A: Pt(3, 3), B: Pt(3, 3)}.Validate(), ErrInvalidGeometry)
}

func TestBoxCoverage(t *testing.T) {
	t.Parallel()

	l := Line{A: Pt(100, 0), B: Pt(100, 400)}

	tests := []struct {
		name     string
		box      Box
		side     Side
		expected float64
	}{
		{"fully left", NewBox(0, 100, 60, 140), SideLeft, 1},
		{"fully right", NewBox(200, 100, 260, 140), SideLeft, 0},
		{"straddling", NewBox(70, 100, 130, 140), SideLeft, 0.5},
		{"mostly left", NewBox(40, 100, 120, 140), SideLeft, 0.75},
		{"mostly left seen from right", NewBox(40, 100, 120, 140), SideRight, 0.25},
		{"on side", NewBox(40, 100, 120, 140), SideOn, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.expected, BoxCoverage(tc.box, l, tc.side), 1e-6)
		})
	}
}

func TestBoxCoverageDiagonal(t *testing.T) {
	t.Parallel()

	// line through the box corners splits it in half
	l := Line{A: Pt(0, 0), B: Pt(10, 10)}

	left := BoxCoverage(NewBox(0, 0, 10, 10), l, SideLeft)
	right := BoxCoverage(NewBox(0, 0, 10, 10), l, SideRight)

	assert.InDelta(t, 0.5, left, 1e-6)
	assert.InDelta(t, 1, left+right, 1e-6)
}

func TestPolygonScale(t *testing.T) {
	t.Parallel()

	p := Polygon{Pt(10, 10), Pt(21, 10), Pt(21, 33)}

	assert.Equal(t, Polygon{Pt(20, 5), Pt(42, 5), Pt(42, 17)}, p.Scale(2, 0.5))
	assert.Equal(t, NewBox(10, 10, 21, 33), p.Bounds())
}
