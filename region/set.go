package region

import (
	"fmt"

	"github.com/google/uuid"
)

// Set is the immutable collection of regions active for a session.  A Set
// holds either polygon zones or a single lane model, never both
type Set struct {
	mode    Mode
	zones   []*PolygonZone
	lane    *LaneModel
	regions []Region
}

// NewZoneSet creates a Set of polygon zones evaluated in the order given
func NewZoneSet(zones ...*PolygonZone) (*Set, error) {

	seen := make(map[string]struct{}, len(zones))
	s := &Set{mode: ModeZone}

	for _, z := range zones {

		if _, dup := seen[z.ID()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRegion, z.ID())
		}

		seen[z.ID()] = struct{}{}
		s.zones = append(s.zones, z)
		s.regions = append(s.regions, z)
	}

	return s, nil
}

// NewLaneSet creates a Set holding a single lane model
func NewLaneSet(lane *LaneModel) (*Set, error) {

	if lane == nil {
		return nil, fmt.Errorf("lane model is nil")
	}

	return &Set{
		mode:    ModeLane,
		lane:    lane,
		regions: []Region{lane},
	}, nil
}

// Mode returns whether the Set holds zones or a lane model
func (s *Set) Mode() Mode {
	return s.mode
}

// Regions returns the regions in evaluation order
func (s *Set) Regions() []Region {
	return append([]Region(nil), s.regions...)
}

// Zones returns the polygon zones, empty in lane mode
func (s *Set) Zones() []*PolygonZone {
	return append([]*PolygonZone(nil), s.zones...)
}

// Lane returns the lane model, nil in zone mode
func (s *Set) Lane() *LaneModel {
	return s.lane
}

// Len returns the number of regions
func (s *Set) Len() int {
	return len(s.regions)
}

// Get returns the region with the given ID
func (s *Set) Get(id string) (Region, bool) {

	for _, r := range s.regions {
		if r.ID() == id {
			return r, true
		}
	}

	return nil, false
}

// Fingerprints returns the fingerprint of every region keyed by ID
func (s *Set) Fingerprints() map[string]uuid.UUID {

	out := make(map[string]uuid.UUID, len(s.regions))

	for _, r := range s.regions {
		out[r.ID()] = r.Fingerprint()
	}

	return out
}

// Select returns a Set restricted to the zones with the given IDs, kept in
// their original order.  No IDs returns the Set unchanged.  Selecting is only
// meaningful in zone mode, a lane Set accepts only LaneID
func (s *Set) Select(ids ...string) (*Set, error) {

	if len(ids) == 0 {
		return s, nil
	}

	want := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := s.Get(id); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, id)
		}
		want[id] = struct{}{}
	}

	if s.mode == ModeLane {
		return s, nil
	}

	var keep []*PolygonZone

	for _, z := range s.zones {
		if _, ok := want[z.ID()]; ok {
			keep = append(keep, z)
		}
	}

	return NewZoneSet(keep...)
}

// RescaleTo returns a Set with every region that carries a base canvas size
// scaled to the given frame size
func (s *Set) RescaleTo(width, height int) (*Set, error) {

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	if s.mode == ModeLane {
		lane, err := s.lane.RescaleTo(width, height)
		if err != nil {
			return nil, fmt.Errorf("error rescaling lane: %w", err)
		}
		return NewLaneSet(lane)
	}

	zones := make([]*PolygonZone, len(s.zones))

	for i, z := range s.zones {
		zones[i] = z.RescaleTo(width, height)
	}

	return NewZoneSet(zones...)
}

// WithScoreThreshold returns a Set whose lane model uses the given score
// threshold.  Zone Sets are returned unchanged
func (s *Set) WithScoreThreshold(threshold float64) (*Set, error) {

	if s.mode != ModeLane {
		return s, nil
	}

	lane, err := s.lane.WithThreshold(threshold)
	if err != nil {
		return nil, err
	}

	return NewLaneSet(lane)
}

// Changed compares two Sets and returns the IDs of regions in prev that are
// missing from or differ in next.  The bool result is true when the mode
// changed, in which case every region counts as changed
func Changed(prev, next *Set) ([]string, bool) {

	if prev == nil {
		return nil, false
	}

	var ids []string

	if next == nil || prev.mode != next.mode {
		for _, r := range prev.regions {
			ids = append(ids, r.ID())
		}
		return ids, true
	}

	after := next.Fingerprints()

	for _, r := range prev.regions {
		if fp, ok := after[r.ID()]; !ok || fp != r.Fingerprint() {
			ids = append(ids, r.ID())
		}
	}

	return ids, false
}
