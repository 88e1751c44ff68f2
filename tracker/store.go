package tracker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/swdee/go-lanewatch/geometry"
)

// ErrTrackNotFound is returned when a track ID is not live in the Store
var ErrTrackNotFound = errors.New("track not found")

// Store is the indexed collection of live tracks for a single stream.  It
// owns the lifecycle of every track: creation, update, aging and eviction.
// A Store is not safe for concurrent use, each stream owns its own
type Store struct {
	// tracks holds the live tracks by ID
	tracks map[int]*Track
	// lastID is the most recently issued track ID
	lastID int
	// trailLength is the trail capacity given to new tracks
	trailLength int
	// classLockHits is the number of detections used to settle a track's
	// class
	classLockHits int
}

// NewStore returns an empty Store.  trailLength caps each track's centroid
// history and classLockHits is the number of detections a track's class is
// voted over before it is fixed, 1 fixes the class at creation
func NewStore(trailLength, classLockHits int) *Store {
	return &Store{
		tracks:        make(map[int]*Track),
		trailLength:   trailLength,
		classLockHits: classLockHits,
	}
}

// Len returns the number of live tracks
func (s *Store) Len() int {
	return len(s.tracks)
}

// LastID returns the most recently issued track ID, 0 if none have been
// issued
func (s *Store) LastID() int {
	return s.lastID
}

// Get returns the live track with the given ID.  The bool result is false if
// the track has been evicted or never existed
func (s *Store) Get(id int) (*Track, bool) {
	t, ok := s.tracks[id]
	return t, ok
}

// PredictPositions returns the expected centroid of every live track for the
// frame about to be associated
func (s *Store) PredictPositions() map[int]geometry.Point {

	out := make(map[int]geometry.Point, len(s.tracks))

	for id, t := range s.tracks {
		out[id] = t.predict()
	}

	return out
}

// Upsert applies a matched detection to an existing track, overwriting its
// box, extending its trail and resetting its time since update
func (s *Store) Upsert(id int, det Detection) error {

	t, ok := s.tracks[id]

	if !ok {
		return fmt.Errorf("%w: %d", ErrTrackNotFound, id)
	}

	if t.updated {
		panic(fmt.Sprintf("tracker: track %d matched twice in one frame", id))
	}

	t.update(det, s.classLockHits)

	return nil
}

// Spawn creates a new track from an unmatched detection and returns its ID
func (s *Store) Spawn(det Detection) int {

	s.lastID++
	id := s.lastID

	if _, exists := s.tracks[id]; exists {
		panic(fmt.Sprintf("tracker: track ID %d issued twice", id))
	}

	s.tracks[id] = newTrack(id, det, s.trailLength, s.classLockHits)

	return id
}

// AgeAndPrune advances every track that was not matched this frame and
// removes any whose time since update exceeds maxAge.  Returns the evicted
// track IDs in ascending order.  It also closes the frame, so every surviving
// track is eligible to be matched again
func (s *Store) AgeAndPrune(maxAge int) []int {

	var evicted []int

	for id, t := range s.tracks {

		if t.updated {
			t.updated = false
			continue
		}

		t.timeSinceUpdate++
		t.age++

		if t.timeSinceUpdate > maxAge {
			evicted = append(evicted, id)
		}
	}

	sort.Ints(evicted)

	for _, id := range evicted {
		delete(s.tracks, id)
	}

	return evicted
}

// LiveTracks returns all live tracks ordered by ascending ID
func (s *Store) LiveTracks() []*Track {

	out := make([]*Track, 0, len(s.tracks))

	for _, t := range s.tracks {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].id < out[j].id
	})

	return out
}
