package lanewatch

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/region"
	"github.com/swdee/go-lanewatch/tracker"
	"github.com/swdee/go-lanewatch/violation"
)

var (
	// ErrFrameOrder is returned when a frame number does not increase
	ErrFrameOrder = errors.New("frame out of order")
	// ErrTrackNotFound is returned when looking up a track that is not live
	ErrTrackNotFound = tracker.ErrTrackNotFound
)

// EventSink receives the result of every processed frame.  Sinks are called
// synchronously in frame order from the goroutine calling Process
type EventSink interface {
	OnFrameResult(res *FrameResult)
}

// TrackView is a snapshot of a live track for drawing and export
type TrackView struct {
	ID                 int                  `json:"id"`
	Class              tracker.VehicleClass `json:"class"`
	Box                geometry.Box         `json:"box"`
	Confidence         float64              `json:"confidence"`
	Trail              []geometry.Point     `json:"trail"`
	Age                int                  `json:"age"`
	Hits               int                  `json:"hits"`
	TimeSinceUpdate    int                  `json:"time_since_update"`
	Confirmed          bool                 `json:"confirmed"`
	Alert              bool                 `json:"alert"`
	ConfirmedCount     int                  `json:"confirmed_count"`
	LastViolationFrame int                  `json:"last_violation_frame"`
}

// FrameResult is the outcome of processing one frame
type FrameResult struct {
	// StreamID identifies the Session that produced the result
	StreamID string `json:"stream_id"`
	// Frame is the frame number
	Frame int `json:"frame"`
	// Skipped is true when the frame was not processed due to FrameSkip
	Skipped bool `json:"skipped,omitempty"`
	// Detections is the number of detections handed in
	Detections int `json:"detections"`
	// Events are the violations confirmed on this frame
	Events []violation.Event `json:"events"`
	// Tracks are the live tracks after the frame, ascending by ID
	Tracks []TrackView `json:"tracks"`
	// Evicted are the IDs of tracks lost on this frame
	Evicted []int `json:"evicted,omitempty"`
	// Rejected are the detections discarded as invalid
	Rejected []tracker.Rejection `json:"-"`
}

// SessionOption configures optional Session behaviour
type SessionOption func(*Session)

// WithLogger sets the logger used for discarded detections, evictions and
// violations
func WithLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.log = log
	}
}

// WithSink adds a receiver of frame results
func WithSink(sink EventSink) SessionOption {
	return func(s *Session) {
		s.sinks = append(s.sinks, sink)
	}
}

// WithStreamID sets the stream identifier instead of a random one
func WithStreamID(id string) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// Session runs the tracker and violation engine for a single stream.  It is
// not safe for concurrent use
type Session struct {
	id        string
	params    Params
	tracker   *tracker.Tracker
	engine    *violation.Engine
	regions   *region.Set
	initial   *region.Set
	lastFrame int
	base      zerolog.Logger
	log       zerolog.Logger
	sinks     []EventSink
}

// NewSession creates a Session evaluating tracks against the given regions
func NewSession(params Params, regions *region.Set, opts ...SessionOption) (*Session, error) {

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	trk, err := tracker.New(params.Tracker)
	if err != nil {
		return nil, err
	}

	engine, err := violation.NewEngine(params.Violation)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        uuid.NewString(),
		params:    params,
		tracker:   trk,
		engine:    engine,
		lastFrame: -1,
		log:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	active, err := s.prepare(regions)
	if err != nil {
		return nil, err
	}

	s.regions = active
	s.initial = active
	s.base = s.log
	s.SetID(s.id)

	return s, nil
}

// prepare applies the zone selection and lane threshold to a region set
func (s *Session) prepare(set *region.Set) (*region.Set, error) {

	if set == nil {
		return nil, errors.New("region set is nil")
	}

	if set.Mode() == region.ModeZone {
		selected, err := set.Select(s.params.SelectedZones...)
		if err != nil {
			return nil, fmt.Errorf("error selecting zones: %w", err)
		}
		return selected, nil
	}

	return set.WithScoreThreshold(s.params.ScoreThreshold)
}

// SetID changes the stream identifier used on results and log lines, eg:
// when a pooled Session is handed a named stream
func (s *Session) SetID(id string) {
	s.id = id
	s.log = s.base.With().Str("stream", id).Logger()
}

// ID returns the stream identifier
func (s *Session) ID() string {
	return s.id
}

// Params returns the tunables the Session was created with
func (s *Session) Params() Params {
	return s.params
}

// Regions returns the region set being evaluated after zone selection
func (s *Session) Regions() *region.Set {
	return s.regions
}

// Process runs one frame of detections through the tracker and violation
// engine.  Frame numbers must strictly increase.  Invalid detections are
// discarded and reported in the result rather than failing the frame
func (s *Session) Process(frame int, dets []tracker.Detection) (*FrameResult, error) {

	if frame <= s.lastFrame {
		return nil, fmt.Errorf("%w: frame %d after %d", ErrFrameOrder, frame, s.lastFrame)
	}

	s.lastFrame = frame

	res := &FrameResult{
		StreamID:   s.id,
		Frame:      frame,
		Detections: len(dets),
	}

	if frame%s.params.FrameSkip != 0 {
		res.Skipped = true
		res.Tracks = s.views(nil)
		s.publish(res)
		return res, nil
	}

	upd, err := s.tracker.Update(dets)
	if err != nil {
		return nil, fmt.Errorf("error updating tracks on frame %d: %w", frame, err)
	}

	for _, rej := range upd.Rejected {
		s.log.Debug().Int("frame", frame).Int("detection", rej.Index).
			Err(rej.Err).Msg("Discarded detection")
	}

	if len(upd.BelowFloor) > 0 {
		s.log.Trace().Int("frame", frame).Ints("detections", upd.BelowFloor).
			Msg("Detections below confidence floor")
	}

	if len(upd.Ignored) > 0 {
		s.log.Warn().Int("frame", frame).Int("count", len(upd.Ignored)).
			Msg("Track limit reached, detections not tracked")
	}

	if len(upd.Evicted) > 0 {
		s.engine.Forget(upd.Evicted...)
		s.log.Trace().Int("frame", frame).Ints("tracks", upd.Evicted).Msg("Tracks lost")
	}

	events := s.engine.Evaluate(frame, s.tracker.LiveTracks(), s.regions.Regions())

	for _, ev := range events {
		s.log.Info().Int("frame", frame).Int("track", ev.TrackID).
			Str("class", ev.Class.String()).Str("region", ev.RegionID).
			Float64("score", ev.Score).Msg("Violation confirmed")
	}

	res.Events = events
	res.Tracks = s.views(events)
	res.Evicted = upd.Evicted
	res.Rejected = upd.Rejected

	s.publish(res)

	return res, nil
}

// publish hands a frame result to every sink
func (s *Session) publish(res *FrameResult) {
	for _, sink := range s.sinks {
		sink.OnFrameResult(res)
	}
}

// views snapshots the live tracks, marking those with an event this frame
// or an active cooldown
func (s *Session) views(events []violation.Event) []TrackView {

	alert := make(map[int]bool)

	for _, ev := range events {
		alert[ev.TrackID] = true
	}

	for _, id := range s.engine.CoolingDown() {
		alert[id] = true
	}

	live := s.tracker.LiveTracks()
	out := make([]TrackView, 0, len(live))

	for _, t := range live {
		v := s.view(t)
		v.Alert = alert[t.ID()]
		out = append(out, v)
	}

	return out
}

func (s *Session) view(t *tracker.Track) TrackView {
	return TrackView{
		ID:                 t.ID(),
		Class:              t.Class(),
		Box:                t.Box(),
		Confidence:         t.Confidence(),
		Trail:              t.Trail().Points(),
		Age:                t.Age(),
		Hits:               t.Hits(),
		TimeSinceUpdate:    t.TimeSinceUpdate(),
		Confirmed:          t.Confirmed(s.params.Tracker.MinHits),
		ConfirmedCount:     t.ConfirmedCount(),
		LastViolationFrame: t.LastViolationFrame(),
	}
}

// Track returns a snapshot of a live track.  Evicted or unknown IDs return an
// error wrapping ErrTrackNotFound
func (s *Session) Track(id int) (TrackView, error) {

	t, ok := s.tracker.Store().Get(id)

	if !ok {
		return TrackView{}, fmt.Errorf("%w: %d", ErrTrackNotFound, id)
	}

	return s.view(t), nil
}

// SetRegions swaps the region set mid stream.  Violation state held against
// regions that were removed or changed is discarded, switching between lane
// and zone mode discards all of it.  Tracks themselves are kept
func (s *Session) SetRegions(set *region.Set) error {

	active, err := s.prepare(set)
	if err != nil {
		return err
	}

	changed, modeChanged := region.Changed(s.regions, active)

	if modeChanged {
		s.engine.Reset()
	} else if len(changed) > 0 {
		s.engine.ForgetRegions(changed...)
	}

	s.log.Info().Str("mode", active.Mode().String()).Int("regions", active.Len()).
		Strs("changed", changed).Msg("Regions updated")

	s.regions = active

	return nil
}

// Reset discards all tracks and violation state, restarting track IDs and
// frame numbering and restoring the regions the Session was created with, as
// if the Session was new
func (s *Session) Reset() {
	s.tracker.Reset()
	s.engine.Reset()
	s.regions = s.initial
	s.lastFrame = -1
}
