package violation

import (
	"fmt"
	"sort"

	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/region"
	"github.com/swdee/go-lanewatch/tracker"
)

// Event is emitted once each time a track's violation of a region is
// confirmed
type Event struct {
	TrackID    int                  `json:"track_id"`
	Class      tracker.VehicleClass `json:"class"`
	RegionID   string               `json:"region_id"`
	Frame      int                  `json:"frame"`
	Score      float64              `json:"score"`
	Confidence float64              `json:"confidence"`
	Box        geometry.Box         `json:"box"`
}

// pairKey identifies a (track, region) pair
type pairKey struct {
	trackID  int
	regionID string
}

// Engine holds the confirmation state of every (track, region) pair in one
// stream.  It is not safe for concurrent use
type Engine struct {
	cfg    Config
	states map[pairKey]*State
}

// NewEngine returns an Engine with no state
func NewEngine(cfg Config) (*Engine, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid violation config: %w", err)
	}

	return &Engine{
		cfg:    cfg,
		states: make(map[pairKey]*State),
	}, nil
}

// Config returns the tunables the Engine was created with
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate steps every (track, region) pair for the frame and returns the
// events confirmed, ordered by track then region in the order given.  Each
// event is also recorded on its track.  Tracks not matched to a detection
// this frame are stepped as not violating
func (e *Engine) Evaluate(frame int, tracks []*tracker.Track, regions []region.Region) []Event {

	var events []Event

	for _, t := range tracks {

		seen := t.TimeSinceUpdate() == 0

		for _, r := range regions {

			var verdict region.Verdict

			if seen {
				verdict = r.Violates(t)
			}
			key := pairKey{trackID: t.ID(), regionID: r.ID()}
			st, ok := e.states[key]

			if !ok {
				if !verdict.Violating {
					continue
				}

				st = &State{}
				e.states[key] = st
			}

			if st.Step(e.cfg, verdict.Violating) {
				t.RecordViolation(frame)

				events = append(events, Event{
					TrackID:    t.ID(),
					Class:      t.Class(),
					RegionID:   r.ID(),
					Frame:      frame,
					Score:      verdict.Score,
					Confidence: t.Confidence(),
					Box:        t.Box(),
				})
			}

			if st.idle() {
				delete(e.states, key)
			}
		}
	}

	return events
}

// State returns the confirmation state of a pair, the zero State if the pair
// is idle
func (e *Engine) State(trackID int, regionID string) State {

	if st, ok := e.states[pairKey{trackID: trackID, regionID: regionID}]; ok {
		return *st
	}

	return State{}
}

// CoolingDown returns the IDs of tracks with at least one pair in cooldown in
// ascending order
func (e *Engine) CoolingDown() []int {

	seen := make(map[int]struct{})

	for k, st := range e.states {
		if st.Phase == Cooldown {
			seen[k.trackID] = struct{}{}
		}
	}

	out := make([]int, 0, len(seen))

	for id := range seen {
		out = append(out, id)
	}

	sort.Ints(out)

	return out
}

// Len returns the number of pairs holding state
func (e *Engine) Len() int {
	return len(e.states)
}

// Forget discards all state held for the given tracks
func (e *Engine) Forget(trackIDs ...int) {

	drop := make(map[int]struct{}, len(trackIDs))

	for _, id := range trackIDs {
		drop[id] = struct{}{}
	}

	for k := range e.states {
		if _, ok := drop[k.trackID]; ok {
			delete(e.states, k)
		}
	}
}

// ForgetRegions discards all state held against the given regions
func (e *Engine) ForgetRegions(regionIDs ...string) {

	drop := make(map[string]struct{}, len(regionIDs))

	for _, id := range regionIDs {
		drop[id] = struct{}{}
	}

	for k := range e.states {
		if _, ok := drop[k.regionID]; ok {
			delete(e.states, k)
		}
	}
}

// Reset discards all state
func (e *Engine) Reset() {
	e.states = make(map[pairKey]*State)
}
