package tracker

import (
	"fmt"
)

// Config holds the tunables for a Tracker
type Config struct {
	// MaxAge is the number of frames a track may go unmatched before it is
	// evicted
	MaxAge int
	// MinHits is the number of matches before a track counts as confirmed
	MinHits int
	// TrailLength is the capacity of each track's centroid history
	TrailLength int
	// ClassLockHits is the number of detections a track's class is voted
	// over before being fixed, 1 fixes it on the first detection
	ClassLockHits int
	// MaxTracks caps the number of live tracks, 0 for no limit
	MaxTracks int
	// Association holds the matching tunables
	Association AssociatorConfig
}

// DefaultConfig returns the default tracker tunables
func DefaultConfig() Config {
	return Config{
		MaxAge:        30,
		MinHits:       3,
		TrailLength:   100,
		ClassLockHits: 1,
		MaxTracks:     0,
		Association:   DefaultAssociatorConfig(),
	}
}

// Validate checks the tracker tunables are usable
func (c Config) Validate() error {

	if c.MaxAge < 0 {
		return fmt.Errorf("max age must not be negative, got %d", c.MaxAge)
	}

	if c.MinHits < 1 {
		return fmt.Errorf("min hits must be at least 1, got %d", c.MinHits)
	}

	if c.TrailLength < 2 {
		return fmt.Errorf("trail length must be at least 2, got %d", c.TrailLength)
	}

	if c.ClassLockHits < 1 {
		return fmt.Errorf("class lock hits must be at least 1, got %d", c.ClassLockHits)
	}

	if c.MaxTracks < 0 {
		return fmt.Errorf("max tracks must not be negative, got %d", c.MaxTracks)
	}

	return c.Association.Validate()
}

// Rejection records a detection discarded for failing validation
type Rejection struct {
	// Index is the position of the detection in the input slice
	Index int
	// Err describes why it was rejected
	Err error
}

// FrameUpdate describes what a single call to Tracker.Update did.  Detection
// indices refer to the slice passed to Update
type FrameUpdate struct {
	// Matched are the detections applied to existing tracks
	Matched []Match
	// Spawned are the IDs of tracks created this frame, ascending
	Spawned []int
	// Evicted are the IDs of tracks removed this frame, ascending
	Evicted []int
	// BelowFloor are detections ignored for low confidence
	BelowFloor []int
	// Ignored are unmatched detections that could not spawn a track because
	// MaxTracks was reached
	Ignored []int
	// Rejected are detections that failed validation
	Rejected []Rejection
}

// Tracker associates each frame's detections to persistent tracks.  It is
// not safe for concurrent use, frames must be fed in order from one goroutine
type Tracker struct {
	cfg   Config
	store *Store
}

// New returns a Tracker with an empty Store
func New(cfg Config) (*Tracker, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracker config: %w", err)
	}

	return &Tracker{
		cfg:   cfg,
		store: NewStore(cfg.TrailLength, cfg.ClassLockHits),
	}, nil
}

// Config returns the tunables the Tracker was created with
func (t *Tracker) Config() Config {
	return t.cfg
}

// Store returns the Tracker's track store
func (t *Tracker) Store() *Store {
	return t.store
}

// LiveTracks returns all live tracks ordered by ascending ID
func (t *Tracker) LiveTracks() []*Track {
	return t.store.LiveTracks()
}

// Reset discards all tracks and restarts ID allocation
func (t *Tracker) Reset() {
	t.store = NewStore(t.cfg.TrailLength, t.cfg.ClassLockHits)
}

// Update processes one frame of detections: invalid detections are rejected,
// the rest associated to live tracks, unmatched ones spawn new tracks and
// tracks left unmatched are aged and evicted once stale
func (t *Tracker) Update(dets []Detection) (FrameUpdate, error) {

	var res FrameUpdate

	// keep a mapping from the filtered slice back to caller indices
	valid := make([]Detection, 0, len(dets))
	index := make([]int, 0, len(dets))

	for i, d := range dets {
		if err := d.Validate(); err != nil {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Err: err})
			continue
		}

		valid = append(valid, d)
		index = append(index, i)
	}

	assoc, err := Associate(t.cfg.Association, t.store, valid)

	if err != nil {
		return FrameUpdate{}, err
	}

	for _, m := range assoc.Matches {
		if err := t.store.Upsert(m.TrackID, valid[m.Detection]); err != nil {
			return FrameUpdate{}, err
		}

		m.Detection = index[m.Detection]
		res.Matched = append(res.Matched, m)
	}

	for _, di := range assoc.Unmatched {

		if t.cfg.MaxTracks > 0 && t.store.Len() >= t.cfg.MaxTracks {
			res.Ignored = append(res.Ignored, index[di])
			continue
		}

		res.Spawned = append(res.Spawned, t.store.Spawn(valid[di]))
	}

	for _, di := range assoc.BelowFloor {
		res.BelowFloor = append(res.BelowFloor, index[di])
	}

	res.Evicted = t.store.AgeAndPrune(t.cfg.MaxAge)

	return res, nil
}
