// Package report collects, stores and exports the violation events and track
// statistics produced by lanewatch Sessions.
package report

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"

	"github.com/swdee/go-lanewatch"
)

// topViolatorCount is the number of vehicles listed in Summary.TopViolators
const topViolatorCount = 10

// VehicleCount is the number of violations of a single tracked vehicle
type VehicleCount struct {
	StreamID   string `json:"stream_id"`
	TrackID    int    `json:"track_id"`
	Class      string `json:"class"`
	Violations int    `json:"violations"`
}

// Summary is the analytics report over every frame seen by a Collector
type Summary struct {
	Streams               int            `json:"streams"`
	FramesProcessed       int            `json:"frames_processed"`
	FramesSkipped         int            `json:"frames_skipped"`
	TotalDetections       int            `json:"total_detections"`
	AvgDetectionsPerFrame float64        `json:"avg_detections_per_frame"`
	P95DetectionsPerFrame float64        `json:"p95_detections_per_frame"`
	TotalViolations       int            `json:"total_violations"`
	MeanViolationScore    float64        `json:"mean_violation_score"`
	UniqueVehicles        int            `json:"unique_vehicles"`
	ViolatingVehicles     int            `json:"violating_vehicles"`
	ViolationRate         float64        `json:"violation_rate"`
	ViolationsByRegion    map[string]int `json:"violations_by_region"`
	ViolationsByClass     map[string]int `json:"violations_by_class"`
	TopViolators          []VehicleCount `json:"top_violators"`
	DurationSeconds       float64        `json:"duration_seconds"`
	FPS                   float64        `json:"fps"`
}

// vehicleKey identifies a track within a stream
type vehicleKey struct {
	stream string
	track  int
}

// Collector accumulates analytics from frame results.  It implements
// lanewatch.EventSink and is safe for use by many Sessions at once
type Collector struct {
	mu         sync.Mutex
	now        func() time.Time
	start      time.Time
	last       time.Time
	streams    map[string]struct{}
	detections []float64
	skipped    int
	scores     []float64
	vehicles   map[vehicleKey]string
	violators  map[vehicleKey]int
	byRegion   map[string]int
	byClass    map[string]int
}

// NewCollector returns an empty Collector
func NewCollector() *Collector {
	return &Collector{
		now:       time.Now,
		streams:   make(map[string]struct{}),
		vehicles:  make(map[vehicleKey]string),
		violators: make(map[vehicleKey]int),
		byRegion:  make(map[string]int),
		byClass:   make(map[string]int),
	}
}

// OnFrameResult implements lanewatch.EventSink
func (c *Collector) OnFrameResult(res *lanewatch.FrameResult) {

	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now()

	if c.start.IsZero() {
		c.start = ts
	}

	c.last = ts
	c.streams[res.StreamID] = struct{}{}

	if res.Skipped {
		c.skipped++
		return
	}

	c.detections = append(c.detections, float64(res.Detections))

	for _, t := range res.Tracks {
		c.vehicles[vehicleKey{stream: res.StreamID, track: t.ID}] = t.Class.String()
	}

	for _, ev := range res.Events {
		key := vehicleKey{stream: res.StreamID, track: ev.TrackID}
		c.vehicles[key] = ev.Class.String()
		c.violators[key]++
		c.byRegion[ev.RegionID]++
		c.byClass[ev.Class.String()]++
		c.scores = append(c.scores, ev.Score)
	}
}

// Summary calculates the analytics report for everything seen so far
func (c *Collector) Summary() Summary {

	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Streams:            len(c.streams),
		FramesProcessed:    len(c.detections),
		FramesSkipped:      c.skipped,
		TotalViolations:    len(c.scores),
		UniqueVehicles:     len(c.vehicles),
		ViolatingVehicles:  len(c.violators),
		ViolationsByRegion: make(map[string]int, len(c.byRegion)),
		ViolationsByClass:  make(map[string]int, len(c.byClass)),
		TopViolators:       []VehicleCount{},
	}

	for _, d := range c.detections {
		s.TotalDetections += int(d)
	}

	if len(c.detections) > 0 {
		sorted := append([]float64(nil), c.detections...)
		sort.Float64s(sorted)

		s.AvgDetectionsPerFrame = stat.Mean(sorted, nil)
		s.P95DetectionsPerFrame = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}

	if len(c.scores) > 0 {
		s.MeanViolationScore = stat.Mean(c.scores, nil)
	}

	if s.UniqueVehicles > 0 {
		s.ViolationRate = float64(s.ViolatingVehicles) / float64(s.UniqueVehicles)
	}

	for k, v := range c.byRegion {
		s.ViolationsByRegion[k] = v
	}

	for k, v := range c.byClass {
		s.ViolationsByClass[k] = v
	}

	for key, n := range c.violators {
		s.TopViolators = append(s.TopViolators, VehicleCount{
			StreamID:   key.stream,
			TrackID:    key.track,
			Class:      c.vehicles[key],
			Violations: n,
		})
	}

	sort.Slice(s.TopViolators, func(i, j int) bool {
		a, b := s.TopViolators[i], s.TopViolators[j]
		if a.Violations != b.Violations {
			return a.Violations > b.Violations
		}
		if a.StreamID != b.StreamID {
			return a.StreamID < b.StreamID
		}
		return a.TrackID < b.TrackID
	})

	if len(s.TopViolators) > topViolatorCount {
		s.TopViolators = s.TopViolators[:topViolatorCount]
	}

	s.DurationSeconds = c.last.Sub(c.start).Seconds()

	if s.DurationSeconds > 0 {
		s.FPS = float64(s.FramesProcessed) / s.DurationSeconds
	}

	return s
}

// WriteJSON writes the summary as indented JSON to the given path
func (c *Collector) WriteJSON(path string) error {

	data, err := json.MarshalIndent(c.Summary(), "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}

	return nil
}

var _ lanewatch.EventSink = (*Collector)(nil)
