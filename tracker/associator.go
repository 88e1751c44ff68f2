package tracker

import (
	"fmt"
	"math"

	"github.com/swdee/go-lanewatch/geometry"
)

// tieBreakEpsilon is added per track rank to the cost so that between two
// otherwise equal pairs the one with the lower track ID wins
const tieBreakEpsilon = 1e-9

// AssociatorConfig holds the tunables for matching detections to tracks
type AssociatorConfig struct {
	// ConfidenceFloor is the minimum detection confidence considered for
	// matching or spawning
	ConfidenceFloor float64
	// GatingRadius is the centroid distance in pixels beyond which a pair
	// with no box overlap is infeasible
	GatingRadius float64
	// IoUWeight is the weight given to (1-IoU), the normalized centroid
	// distance gets the remainder
	IoUWeight float64
	// MaxMatchCost is the largest cost a feasible pair may have and still be
	// matched
	MaxMatchCost float64
}

// DefaultAssociatorConfig returns the default association tunables
func DefaultAssociatorConfig() AssociatorConfig {
	return AssociatorConfig{
		ConfidenceFloor: 0.3,
		GatingRadius:    100,
		IoUWeight:       0.7,
		MaxMatchCost:    0.9,
	}
}

// Validate checks the association tunables are usable
func (c AssociatorConfig) Validate() error {

	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence floor %v outside of [0,1]", c.ConfidenceFloor)
	}

	if c.GatingRadius <= 0 {
		return fmt.Errorf("gating radius must be positive, got %v", c.GatingRadius)
	}

	if c.IoUWeight < 0 || c.IoUWeight > 1 {
		return fmt.Errorf("IoU weight %v outside of [0,1]", c.IoUWeight)
	}

	if c.MaxMatchCost <= 0 || c.MaxMatchCost > 1 {
		return fmt.Errorf("max match cost %v outside of (0,1]", c.MaxMatchCost)
	}

	return nil
}

// Match pairs an input detection with the track it was assigned to
type Match struct {
	// Detection is the index into the detections passed to Associate
	Detection int
	// TrackID is the ID of the matched track
	TrackID int
	// Cost is the association cost of the pair
	Cost float64
}

// Association is the outcome of matching a frame's detections against the
// live tracks.  Detection indices refer to the slice passed to Associate
type Association struct {
	// Matches are the accepted detection to track pairs ordered by track ID
	Matches []Match
	// Unmatched are detection indices eligible to spawn new tracks
	Unmatched []int
	// UnmatchedTracks are the IDs of live tracks that received no detection
	UnmatchedTracks []int
	// BelowFloor are detection indices excluded for low confidence
	BelowFloor []int
}

// Associate matches detections to the live tracks in the store by solving a
// minimum cost assignment over the IoU and predicted centroid distance
func Associate(cfg AssociatorConfig, store *Store, dets []Detection) (Association, error) {

	var res Association

	// split out low confidence noise
	eligible := make([]int, 0, len(dets))

	for i, d := range dets {
		if d.Confidence < cfg.ConfidenceFloor {
			res.BelowFloor = append(res.BelowFloor, i)
			continue
		}
		eligible = append(eligible, i)
	}

	tracks := store.LiveTracks()

	if len(tracks) == 0 || len(eligible) == 0 {
		res.Unmatched = eligible

		for _, t := range tracks {
			res.UnmatchedTracks = append(res.UnmatchedTracks, t.ID())
		}

		return res, nil
	}

	predicted := store.PredictPositions()
	infeasible := cfg.MaxMatchCost + 1

	// rows are tracks in ascending ID order, columns are detections.  raw
	// holds the pair costs without the tie break
	cost := make([][]float64, len(tracks))
	raw := make([][]float64, len(tracks))

	for r, t := range tracks {
		cost[r] = make([]float64, len(eligible))
		raw[r] = make([]float64, len(eligible))

		for c, di := range eligible {
			pairCost, ok := Cost(cfg, t.Box(), predicted[t.ID()], dets[di].Box)

			if !ok {
				cost[r][c] = infeasible
				raw[r][c] = infeasible
				continue
			}

			raw[r][c] = pairCost
			cost[r][c] = pairCost + tieBreakEpsilon*float64(r)
		}
	}

	// lift the limit by the largest tie break so a pair costing exactly
	// MaxMatchCost stays feasible on every row
	limit := cfg.MaxMatchCost + tieBreakEpsilon*float64(len(tracks))

	rowsol, _, err := solveAssignment(cost, limit)

	if err != nil {
		return Association{}, fmt.Errorf("error solving association: %w", err)
	}

	assigned := make([]bool, len(eligible))

	for r, c := range rowsol {

		t := tracks[r]

		if c < 0 || raw[r][c] > cfg.MaxMatchCost {
			res.UnmatchedTracks = append(res.UnmatchedTracks, t.ID())
			continue
		}

		assigned[c] = true
		res.Matches = append(res.Matches, Match{
			Detection: eligible[c],
			TrackID:   t.ID(),
			Cost:      raw[r][c],
		})
	}

	for c, di := range eligible {
		if !assigned[c] {
			res.Unmatched = append(res.Unmatched, di)
		}
	}

	return res, nil
}

// Cost returns the association cost of a detection box against a track's last
// box and predicted centroid.  The bool result is false when the pair is
// infeasible, having no overlap and a centroid further than the gating radius
func Cost(cfg AssociatorConfig, last geometry.Box, predicted geometry.Point,
	det geometry.Box) (float64, bool) {

	iou := geometry.IoU(det, last)
	dist := geometry.Distance(det.Centroid(), predicted)

	if iou == 0 && dist > cfg.GatingRadius {
		return 0, false
	}

	normDist := math.Min(dist/cfg.GatingRadius, 1)

	return cfg.IoUWeight*(1-iou) + (1-cfg.IoUWeight)*normDist, true
}
