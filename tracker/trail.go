package tracker

import "github.com/swdee/go-lanewatch/geometry"

// Trail is a bounded history of a track's centroids.  Once full the oldest
// point is overwritten by each new point
type Trail struct {
	// points is the ring storage
	points []geometry.Point
	// start is the index of the oldest point
	start int
	// size is the number of points held
	size int
}

// NewTrail returns a new trail holding at most capacity points.  A capacity
// below 2 is raised to 2 so a direction of travel is always available
func NewTrail(capacity int) *Trail {

	if capacity < 2 {
		capacity = 2
	}

	return &Trail{
		points: make([]geometry.Point, capacity),
	}
}

// Push adds a point to the trail, evicting the oldest point when full
func (t *Trail) Push(p geometry.Point) {

	if t.size < len(t.points) {
		t.points[(t.start+t.size)%len(t.points)] = p
		t.size++
		return
	}

	t.points[t.start] = p
	t.start = (t.start + 1) % len(t.points)
}

// Len returns the number of points held
func (t *Trail) Len() int {
	return t.size
}

// Cap returns the maximum number of points held
func (t *Trail) Cap() int {
	return len(t.points)
}

// At returns the i'th point with 0 being the oldest
func (t *Trail) At(i int) geometry.Point {
	return t.points[(t.start+i)%len(t.points)]
}

// Last returns the most recent point
func (t *Trail) Last() (geometry.Point, bool) {

	if t.size == 0 {
		return geometry.Point{}, false
	}

	return t.At(t.size - 1), true
}

// Points returns a copy of the trail ordered oldest first
func (t *Trail) Points() []geometry.Point {

	out := make([]geometry.Point, t.size)

	for i := range out {
		out[i] = t.At(i)
	}

	return out
}
