package tracker

import (
	"github.com/swdee/go-lanewatch/geometry"
)

// Track is the persistent identity of a single vehicle across frames.  Tracks
// are created and mutated only by the Store that owns them
type Track struct {
	// id is the unique track ID, never reused within a Store
	id int
	// class is the vehicle class, fixed once locked
	class VehicleClass
	// classLocked indicates the class can no longer change
	classLocked bool
	// classVotes counts the classes seen before the class is locked
	classVotes map[VehicleClass]int
	// classOrder records the order classes were first seen, used to break
	// ties between votes
	classOrder []VehicleClass
	// box is the most recent bounding box
	box geometry.Box
	// confidence is the detector score of the most recent match
	confidence float64
	// detectionID is the ID of the most recent detection matched
	detectionID int64
	// trail is the centroid history
	trail *Trail
	// age is the number of frames since the track was created
	age int
	// hits is the number of frames the track was matched
	hits int
	// timeSinceUpdate is the number of frames since the last match
	timeSinceUpdate int
	// updated is set when the track was matched or spawned in the current
	// frame and cleared by AgeAndPrune
	updated bool
	// confirmedCount is the number of violation events emitted for the track
	confirmedCount int
	// lastViolationFrame is the frame of the most recent violation event,
	// -1 if there has been none
	lastViolationFrame int
}

// newTrack creates a track from its first detection
func newTrack(id int, det Detection, trailLength, classLockHits int) *Track {

	t := &Track{
		id:                 id,
		class:              det.Class,
		box:                det.Box,
		confidence:         det.Confidence,
		detectionID:        det.ID,
		trail:              NewTrail(trailLength),
		hits:               1,
		updated:            true,
		lastViolationFrame: -1,
	}

	t.trail.Push(det.Centroid())

	if classLockHits <= 1 {
		t.classLocked = true
	} else {
		t.classVotes = map[VehicleClass]int{det.Class: 1}
		t.classOrder = []VehicleClass{det.Class}
	}

	return t
}

// ID returns the unique track ID
func (t *Track) ID() int {
	return t.id
}

// Class returns the vehicle class of the track
func (t *Track) Class() VehicleClass {
	return t.class
}

// ClassLocked reports whether the class is final
func (t *Track) ClassLocked() bool {
	return t.classLocked
}

// Box returns the most recent bounding box
func (t *Track) Box() geometry.Box {
	return t.box
}

// Centroid returns the midpoint of the most recent bounding box
func (t *Track) Centroid() geometry.Point {
	return t.box.Centroid()
}

// Confidence returns the detector score of the most recent match
func (t *Track) Confidence() float64 {
	return t.confidence
}

// DetectionID returns the ID of the detection most recently matched
func (t *Track) DetectionID() int64 {
	return t.detectionID
}

// Trail returns the centroid history of the track
func (t *Track) Trail() *Trail {
	return t.trail
}

// Age returns the number of frames since the track was created
func (t *Track) Age() int {
	return t.age
}

// Hits returns the number of frames the track was matched, including the
// frame it was created on
func (t *Track) Hits() int {
	return t.hits
}

// TimeSinceUpdate returns the number of frames since the track was last
// matched
func (t *Track) TimeSinceUpdate() int {
	return t.timeSinceUpdate
}

// Confirmed reports whether the track has at least minHits matches
func (t *Track) Confirmed(minHits int) bool {
	return t.hits >= minHits
}

// ConfirmedCount returns the number of violation events emitted for the track
func (t *Track) ConfirmedCount() int {
	return t.confirmedCount
}

// LastViolationFrame returns the frame number of the most recent violation
// event, or -1 if none
func (t *Track) LastViolationFrame() int {
	return t.lastViolationFrame
}

// RecordViolation notes that a violation event was emitted for the track on
// the given frame
func (t *Track) RecordViolation(frame int) {
	t.confirmedCount++
	t.lastViolationFrame = frame
}

// predict returns the expected centroid for the next frame.  With two or more
// trail points it extrapolates linearly from the last two, stepping once for
// every frame since the last match
func (t *Track) predict() geometry.Point {

	last, _ := t.trail.Last()

	if t.trail.Len() < 2 {
		return last
	}

	prev := t.trail.At(t.trail.Len() - 2)
	steps := float64(1 + t.timeSinceUpdate)

	return geometry.Point{
		X: last.X + (last.X-prev.X)*steps,
		Y: last.Y + (last.Y-prev.Y)*steps,
	}
}

// update applies a matched detection to the track
func (t *Track) update(det Detection, classLockHits int) {

	t.box = det.Box
	t.confidence = det.Confidence
	t.detectionID = det.ID
	t.trail.Push(det.Centroid())
	t.timeSinceUpdate = 0
	t.hits++
	t.age++
	t.updated = true

	if !t.classLocked {
		t.voteClass(det.Class, classLockHits)
	}
}

// voteClass records a class observation and locks the class to the majority
// once classLockHits observations have been made.  Ties go to the class seen
// first
func (t *Track) voteClass(class VehicleClass, classLockHits int) {

	if _, seen := t.classVotes[class]; !seen {
		t.classOrder = append(t.classOrder, class)
	}

	t.classVotes[class]++

	best := t.classOrder[0]

	for _, c := range t.classOrder[1:] {
		if t.classVotes[c] > t.classVotes[best] {
			best = c
		}
	}

	t.class = best

	if t.hits >= classLockHits {
		t.classLocked = true
		t.classVotes = nil
		t.classOrder = nil
	}
}
