// Package violation turns per frame region verdicts into violation events
// using a consecutive frame confirmation and a per track cooldown.
package violation

import (
	"fmt"
)

// Phase is the position of a (track, region) pair in the confirmation cycle
type Phase int

const (
	// Clean means the condition does not currently hold
	Clean Phase = iota
	// Accumulating means the condition has held for fewer frames than
	// required
	Accumulating
	// Confirmed is entered for the frame an event is emitted
	Confirmed
	// Cooldown suppresses further events until it expires
	Cooldown
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case Clean:
		return "clean"
	case Accumulating:
		return "accumulating"
	case Confirmed:
		return "confirmed"
	case Cooldown:
		return "cooldown"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Config holds the confirmation tunables
type Config struct {
	// ConsecutiveFrames is the number of qualifying frames in a row needed
	// to emit an event
	ConsecutiveFrames int
	// CooldownFrames is the number of frames after an event during which no
	// new event is emitted for the same pair
	CooldownFrames int
}

// DefaultConfig returns the default confirmation tunables
func DefaultConfig() Config {
	return Config{
		ConsecutiveFrames: 3,
		CooldownFrames:    30,
	}
}

// Validate checks the tunables are usable
func (c Config) Validate() error {

	if c.ConsecutiveFrames < 1 {
		return fmt.Errorf("consecutive frames must be at least 1, got %d", c.ConsecutiveFrames)
	}

	if c.CooldownFrames < 0 {
		return fmt.Errorf("cooldown frames must not be negative, got %d", c.CooldownFrames)
	}

	return nil
}

// State is the confirmation state of one (track, region) pair
type State struct {
	Phase             Phase
	Consecutive       int
	CooldownRemaining int
}

// Step advances the state by one frame given whether the region condition
// held.  Returns true when an event must be emitted on this frame
func (s *State) Step(cfg Config, qualifying bool) bool {

	if s.CooldownRemaining < 0 {
		panic(fmt.Sprintf("violation: negative cooldown %d", s.CooldownRemaining))
	}

	if s.Phase == Cooldown {
		s.CooldownRemaining--

		if s.CooldownRemaining < 0 {
			panic("violation: cooldown decremented below zero")
		}

		if s.CooldownRemaining == 0 {
			s.Phase = Clean
		}

		return false
	}

	if !qualifying {
		s.Consecutive = 0
		s.Phase = Clean
		return false
	}

	s.Consecutive++
	s.Phase = Accumulating

	if s.Consecutive < cfg.ConsecutiveFrames || s.CooldownRemaining != 0 {
		return false
	}

	s.Phase = Confirmed
	s.Consecutive = 0
	s.CooldownRemaining = cfg.CooldownFrames

	if s.CooldownRemaining > 0 {
		s.Phase = Cooldown
	} else {
		s.Phase = Clean
	}

	return true
}

// idle reports whether the state carries no information
func (s *State) idle() bool {
	return s.Phase == Clean && s.Consecutive == 0 && s.CooldownRemaining == 0
}
