package lanewatch

import (
	"fmt"

	"github.com/swdee/go-lanewatch/region"
	"github.com/swdee/go-lanewatch/tracker"
	"github.com/swdee/go-lanewatch/violation"
)

// Params defines the tunables of a Session
type Params struct {
	// Tracker holds the association and track lifecycle tunables
	Tracker tracker.Config
	// Violation holds the confirmation and cooldown tunables
	Violation violation.Config
	// ScoreThreshold is the lane violation score a track must reach, it
	// overrides any threshold given in the region file
	ScoreThreshold float64
	// FrameSkip processes only every n'th frame, 1 processes all
	FrameSkip int
	// SelectedZones restricts evaluation to these zone IDs, empty for all
	SelectedZones []string
}

// DefaultParams returns the default Session tunables.  These are
//
// - Tracker: max age 30, min hits 3, trail length 100, confidence floor 0.3,
// gating radius 100px, IoU weight 0.7, max match cost 0.9
// - Violation: 3 consecutive frames, 30 frame cooldown
// - Lane score threshold: 0.3
func DefaultParams() Params {
	return Params{
		Tracker:        tracker.DefaultConfig(),
		Violation:      violation.DefaultConfig(),
		ScoreThreshold: region.DefaultScoreThreshold,
		FrameSkip:      1,
	}
}

// Validate checks every tunable
func (p Params) Validate() error {

	if err := p.Tracker.Validate(); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}

	if err := p.Violation.Validate(); err != nil {
		return fmt.Errorf("violation: %w", err)
	}

	if p.ScoreThreshold < 0 || p.ScoreThreshold > 1 {
		return fmt.Errorf("score threshold %v outside of [0,1]", p.ScoreThreshold)
	}

	if p.FrameSkip < 1 {
		return fmt.Errorf("frame skip must be at least 1, got %d", p.FrameSkip)
	}

	return nil
}
