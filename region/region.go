// Package region answers whether a tracked vehicle is violating a lane
// boundary or a restricted zone on the current frame.  Regions are pure
// predicates holding no per track history.
package region

import (
	"errors"

	"github.com/google/uuid"

	"github.com/swdee/go-lanewatch/tracker"
)

var (
	// ErrDuplicateRegion is returned when two regions in a Set share an ID
	ErrDuplicateRegion = errors.New("duplicate region id")
	// ErrMixedModes is returned when zones and a lane model are supplied for
	// the same session
	ErrMixedModes = errors.New("zones and lane model are mutually exclusive")
	// ErrUnknownRegion is returned when selecting a region ID not in the Set
	ErrUnknownRegion = errors.New("unknown region id")
)

// LaneID is the region identifier reported for lane boundary violations
const LaneID = "lane"

// Mode is the kind of regions active in a session
type Mode int

const (
	// ModeZone evaluates tracks against polygon zones with class rules
	ModeZone Mode = iota
	// ModeLane evaluates tracks against a lane boundary model
	ModeLane
)

// String returns the mode name
func (m Mode) String() string {
	if m == ModeLane {
		return "lane"
	}
	return "zone"
}

// Verdict is the outcome of testing a track against a region for one frame
type Verdict struct {
	// Violating is true when the region's condition holds this frame
	Violating bool
	// Score is the strength of the violation in [0,1]
	Score float64
}

// Region is a lane model or zone able to judge a track
type Region interface {
	// ID returns the region identifier used on violation events
	ID() string
	// Violates tests the track's current position and class
	Violates(t *tracker.Track) Verdict
	// Fingerprint identifies the region's geometry and rules, it changes
	// whenever either does
	Fingerprint() uuid.UUID
}

// fingerprintSpace namespaces region fingerprints
var fingerprintSpace = uuid.MustParse("8f0c2a86-5d55-4d4e-9a53-1c54f0d2b7e1")
