package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-lanewatch"
	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/region"
	"github.com/swdee/go-lanewatch/tracker"
	"github.com/swdee/go-lanewatch/violation"
)

type countSink struct {
	frames []int
}

func (c *countSink) OnFrameResult(res *lanewatch.FrameResult) {
	c.frames = append(c.frames, res.Frame)
}

func event(track, frame int, class tracker.VehicleClass, regionID string, score float64) violation.Event {
	return violation.Event{
		TrackID:    track,
		Class:      class,
		RegionID:   regionID,
		Frame:      frame,
		Score:      score,
		Confidence: 0.8,
		Box:        geometry.NewBox(10, 20, 50, 40),
	}
}

func view(id int, class tracker.VehicleClass, sinceUpdate, confirmed int) lanewatch.TrackView {
	return lanewatch.TrackView{
		ID:              id,
		Class:           class,
		Hits:            5,
		TimeSinceUpdate: sinceUpdate,
		ConfirmedCount:  confirmed,
	}
}

func TestEventBusFanOut(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()

	all := &countSink{}
	cam2 := &countSink{}

	unsubAll := bus.Subscribe(all)
	bus.SubscribeStream("cam-2", cam2)

	ch, unsubCh := bus.SubscribeChannel(4)

	assert.Equal(t, 3, bus.SubscriberCount())

	bus.OnFrameResult(&lanewatch.FrameResult{StreamID: "cam-1", Frame: 1})
	bus.OnFrameResult(&lanewatch.FrameResult{StreamID: "cam-2", Frame: 2})
	bus.Publish(nil)

	assert.Equal(t, []int{1, 2}, all.frames)
	assert.Equal(t, []int{2}, cam2.frames)

	require.Len(t, ch, 2)
	assert.Equal(t, 1, (<-ch).Frame)
	assert.Equal(t, 2, (<-ch).Frame)

	unsubAll()
	unsubCh()

	_, open := <-ch
	assert.False(t, open)

	bus.OnFrameResult(&lanewatch.FrameResult{StreamID: "cam-2", Frame: 3})
	assert.Equal(t, []int{1, 2}, all.frames)
	assert.Equal(t, []int{2, 3}, cam2.frames)

	bus.Close()
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestEventBusChannelFull(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	ch, _ := bus.SubscribeChannel(1)

	bus.Publish(&lanewatch.FrameResult{Frame: 1})
	bus.Publish(&lanewatch.FrameResult{Frame: 2})

	require.Len(t, ch, 1)
	assert.Equal(t, 1, (<-ch).Frame)

	bus.Close()

	_, open := <-ch
	assert.False(t, open)
}

func TestCollectorSummary(t *testing.T) {
	t.Parallel()

	c := NewCollector()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		clock = clock.Add(100 * time.Millisecond)
		return clock
	}

	// eighteen frames with one detection and two with ten
	for frame := 0; frame < 20; frame++ {
		res := &lanewatch.FrameResult{
			StreamID:   "cam-1",
			Frame:      frame,
			Detections: 1,
			Tracks:     []lanewatch.TrackView{view(1, tracker.Car, 0, 0)},
		}

		if frame >= 18 {
			res.Detections = 10
			res.Tracks = append(res.Tracks, view(2, tracker.Truck, 0, 0))
		}

		switch frame {
		case 5:
			res.Events = []violation.Event{event(1, frame, tracker.Car, "bus-lane", 1)}
		case 15:
			res.Events = []violation.Event{event(1, frame, tracker.Car, "bus-lane", 0.5)}
		case 19:
			res.Events = []violation.Event{event(2, frame, tracker.Truck, "lane", 0.6)}
		}

		c.OnFrameResult(res)
	}

	c.OnFrameResult(&lanewatch.FrameResult{StreamID: "cam-2", Frame: 1, Skipped: true})

	s := c.Summary()

	assert.Equal(t, 2, s.Streams)
	assert.Equal(t, 20, s.FramesProcessed)
	assert.Equal(t, 1, s.FramesSkipped)
	assert.Equal(t, 38, s.TotalDetections)
	assert.InDelta(t, 1.9, s.AvgDetectionsPerFrame, 1e-9)
	assert.InDelta(t, 10, s.P95DetectionsPerFrame, 1e-9)
	assert.Equal(t, 3, s.TotalViolations)
	assert.InDelta(t, 0.7, s.MeanViolationScore, 1e-9)
	assert.Equal(t, 2, s.UniqueVehicles)
	assert.Equal(t, 2, s.ViolatingVehicles)
	assert.InDelta(t, 1, s.ViolationRate, 1e-9)
	assert.Equal(t, map[string]int{"bus-lane": 2, "lane": 1}, s.ViolationsByRegion)
	assert.Equal(t, map[string]int{"car": 2, "truck": 1}, s.ViolationsByClass)

	require.Len(t, s.TopViolators, 2)
	assert.Equal(t, VehicleCount{StreamID: "cam-1", TrackID: 1, Class: "car", Violations: 2}, s.TopViolators[0])
	assert.Equal(t, 2, s.TopViolators[1].TrackID)

	assert.InDelta(t, 2.0, s.DurationSeconds, 1e-6)
	assert.InDelta(t, 10, s.FPS, 1e-6)
}

func TestCollectorCountsSkippedFrames(t *testing.T) {
	t.Parallel()

	zone, err := region.NewPolygonZone("bus-lane", "Bus Lane",
		geometry.Polygon{geometry.Pt(200, 0), geometry.Pt(400, 0), geometry.Pt(400, 200), geometry.Pt(200, 200)},
		[]tracker.VehicleClass{tracker.Bus})
	require.NoError(t, err)

	set, err := region.NewZoneSet(zone)
	require.NoError(t, err)

	params := lanewatch.DefaultParams()
	params.FrameSkip = 2

	c := NewCollector()
	s, err := lanewatch.NewSession(params, set, lanewatch.WithSink(c))
	require.NoError(t, err)

	for frame := 0; frame < 10; frame++ {
		det := tracker.NewDetection(tracker.Car, 0.8, geometry.NewBox(20, 20, 60, 40))
		_, err := s.Process(frame, []tracker.Detection{det})
		require.NoError(t, err)
	}

	sum := c.Summary()
	assert.Equal(t, 5, sum.FramesProcessed)
	assert.Equal(t, 5, sum.FramesSkipped)
	assert.Equal(t, 5, sum.TotalDetections)
}

func TestCollectorTopViolatorsLimit(t *testing.T) {
	t.Parallel()

	c := NewCollector()

	var events []violation.Event

	for id := 1; id <= 15; id++ {
		events = append(events, event(id, 0, tracker.Car, "bus-lane", 1))
	}

	// track 15 violates twice
	events = append(events, event(15, 0, tracker.Car, "bus-lane", 1))

	c.OnFrameResult(&lanewatch.FrameResult{StreamID: "cam-1", Events: events})

	s := c.Summary()

	require.Len(t, s.TopViolators, topViolatorCount)
	assert.Equal(t, 15, s.TopViolators[0].TrackID)
	assert.Equal(t, 2, s.TopViolators[0].Violations)
	assert.Equal(t, 1, s.TopViolators[1].TrackID)
	assert.Equal(t, 9, s.TopViolators[9].TrackID)
	assert.Equal(t, 15, s.ViolatingVehicles)
}

func TestCollectorEmpty(t *testing.T) {
	t.Parallel()

	s := NewCollector().Summary()

	assert.Zero(t, s.FramesProcessed)
	assert.Zero(t, s.FPS)
	assert.Zero(t, s.ViolationRate)
	assert.NotNil(t, s.TopViolators)
}

func TestCollectorWriteJSON(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.OnFrameResult(&lanewatch.FrameResult{
		StreamID:   "cam-1",
		Detections: 2,
		Events:     []violation.Event{event(3, 0, tracker.Bus, "lane", 0.4)},
	})

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, c.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var s Summary
	require.NoError(t, json.Unmarshal(data, &s))

	assert.Equal(t, 1, s.TotalViolations)
	assert.Equal(t, 2, s.TotalDetections)
	assert.Equal(t, map[string]int{"bus": 1}, s.ViolationsByClass)
}

func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := OpenStore(filepath.Join(t.TempDir(), "lanewatch.db"), "test.jsonl", zerolog.Nop())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })

	return s
}

func TestStoreMigrations(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	// running again is a no-op
	require.NoError(t, s.MigrateUp())
	assert.NotEmpty(t, s.RunID())

	require.NoError(t, s.MigrateDown())

	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	require.NoError(t, s.MigrateUp())
}

func TestStoreViolations(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	s.OnFrameResult(&lanewatch.FrameResult{
		StreamID: "cam-1",
		Frame:    12,
		Events:   []violation.Event{event(1, 12, tracker.Car, "bus-lane", 1)},
		Tracks:   []lanewatch.TrackView{view(1, tracker.Car, 0, 1)},
	})

	s.OnFrameResult(&lanewatch.FrameResult{
		StreamID: "cam-2",
		Frame:    4,
		Events:   []violation.Event{event(7, 4, tracker.Truck, "lane", 0.55)},
		Tracks:   []lanewatch.TrackView{view(7, tracker.Truck, 0, 1)},
	})

	// skipped frames are not stored
	s.OnFrameResult(&lanewatch.FrameResult{
		StreamID: "cam-2",
		Frame:    5,
		Skipped:  true,
		Events:   []violation.Event{event(9, 5, tracker.Car, "lane", 1)},
	})

	require.NoError(t, s.Err())

	all, err := s.Violations(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, event(1, 12, tracker.Car, "bus-lane", 1), all[0])

	cam2, err := s.Violations(ctx, "cam-2")
	require.NoError(t, err)
	require.Len(t, cam2, 1)
	assert.Equal(t, 7, cam2[0].TrackID)
	assert.Equal(t, tracker.Truck, cam2[0].Class)
	assert.InDelta(t, 0.55, cam2[0].Score, 1e-9)
}

func TestStoreTrackStats(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	s.OnFrameResult(&lanewatch.FrameResult{
		StreamID: "cam-1",
		Frame:    3,
		Tracks:   []lanewatch.TrackView{view(1, tracker.Car, 0, 0)},
	})

	s.OnFrameResult(&lanewatch.FrameResult{
		StreamID: "cam-1",
		Frame:    8,
		Tracks:   []lanewatch.TrackView{view(1, tracker.Car, 0, 2)},
	})

	// coasting keeps the last observed frame
	s.OnFrameResult(&lanewatch.FrameResult{
		StreamID: "cam-1",
		Frame:    9,
		Tracks:   []lanewatch.TrackView{view(1, tracker.Car, 1, 2)},
	})

	require.NoError(t, s.Err())

	stats, err := s.TrackStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	assert.Equal(t, TrackStat{
		StreamID:   "cam-1",
		TrackID:    1,
		Class:      "car",
		FirstFrame: 3,
		LastFrame:  8,
		Hits:       5,
		Violations: 2,
	}, stats[0])
}

func TestStoreRunsAreSeparate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shared.db")

	first, err := OpenStore(path, "a", zerolog.Nop())
	require.NoError(t, err)

	first.OnFrameResult(&lanewatch.FrameResult{
		StreamID: "cam-1",
		Events:   []violation.Event{event(1, 0, tracker.Car, "lane", 1)},
	})
	require.NoError(t, first.Err())
	require.NoError(t, first.Close())

	second, err := OpenStore(path, "b", zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.RunID(), second.RunID())

	evs, err := second.Violations(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestEventLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewEventLog(&buf, zerolog.Nop())

	l.OnFrameResult(&lanewatch.FrameResult{StreamID: "cam-1", Frame: 1})
	l.OnFrameResult(&lanewatch.FrameResult{
		StreamID: "cam-1",
		Frame:    12,
		Events: []violation.Event{
			event(1, 12, tracker.Car, "bus-lane", 1),
			event(2, 12, tracker.Truck, "bus-lane", 1),
		},
	})

	require.NoError(t, l.Flush())
	assert.Equal(t, 2, l.Written())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))

	assert.Equal(t, "cam-1", got["stream_id"])
	assert.Equal(t, "truck", got["class"])
	assert.Equal(t, "bus-lane", got["region_id"])
	assert.EqualValues(t, 2, got["track_id"])
	assert.EqualValues(t, 12, got["frame"])
}
