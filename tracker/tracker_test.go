package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-lanewatch/geometry"
)

func newTestTracker(t *testing.T, mutate func(*Config)) *Tracker {
	t.Helper()

	cfg := DefaultConfig()

	if mutate != nil {
		mutate(&cfg)
	}

	tr, err := New(cfg)
	require.NoError(t, err)

	return tr
}

func TestTrackerFollowsMovingVehicle(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t, nil)

	for frame := 0; frame < 20; frame++ {
		upd, err := tr.Update([]Detection{carAt(float64(frame*8), 100)})
		require.NoError(t, err)

		if frame == 0 {
			assert.Equal(t, []int{1}, upd.Spawned)
			continue
		}

		require.Len(t, upd.Matched, 1, "frame %d", frame)
		assert.Equal(t, 1, upd.Matched[0].TrackID)
		assert.Empty(t, upd.Spawned)
	}

	live := tr.LiveTracks()
	require.Len(t, live, 1)
	assert.Equal(t, 20, live[0].Hits())
	assert.Equal(t, 19, live[0].Age())
	assert.True(t, live[0].Confirmed(tr.Config().MinHits))
}

func TestTrackerLowConfidenceNeverTracked(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t, nil)

	weak := carAt(0, 0)
	weak.Confidence = 0.05

	upd, err := tr.Update([]Detection{weak})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, upd.BelowFloor)
	assert.Empty(t, upd.Spawned)
	assert.Equal(t, 0, tr.Store().Len())

	// an existing track is not refreshed by a weak detection either
	_, err = tr.Update([]Detection{carAt(0, 0)})
	require.NoError(t, err)

	upd, err = tr.Update([]Detection{weak})
	require.NoError(t, err)
	assert.Empty(t, upd.Matched)

	track, ok := tr.Store().Get(1)
	require.True(t, ok)
	assert.Equal(t, 1, track.Hits())
	assert.Equal(t, 1, track.TimeSinceUpdate())
}

func TestTrackerEvictsAfterMaxAge(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t, func(c *Config) { c.MaxAge = 2 })

	_, err := tr.Update([]Detection{carAt(0, 0)})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		upd, err := tr.Update(nil)
		require.NoError(t, err)
		assert.Empty(t, upd.Evicted)
	}

	upd, err := tr.Update(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, upd.Evicted)

	// the vehicle reappearing gets a fresh identity
	upd, err = tr.Update([]Detection{carAt(0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, upd.Spawned)
}

func TestTrackerRejectsInvalidDetections(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t, nil)

	dets := []Detection{
		NewDetection(Car, 0.9, geometry.NewBox(10, 10, 5, 20)),
		carAt(0, 0),
		NewDetection(Bus, 1.5, geometry.NewBox(0, 0, 10, 10)),
	}

	upd, err := tr.Update(dets)
	require.NoError(t, err)

	require.Len(t, upd.Rejected, 2)
	assert.Equal(t, 0, upd.Rejected[0].Index)
	assert.ErrorIs(t, upd.Rejected[0].Err, ErrInvalidDetection)
	assert.Equal(t, 2, upd.Rejected[1].Index)
	assert.ErrorIs(t, upd.Rejected[1].Err, ErrInvalidDetection)
	assert.Equal(t, []int{1}, upd.Spawned)
}

func TestTrackerMaxTracks(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t, func(c *Config) { c.MaxTracks = 2 })

	upd, err := tr.Update([]Detection{carAt(0, 0), carAt(200, 0), carAt(400, 0)})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, upd.Spawned)
	assert.Equal(t, []int{2}, upd.Ignored)
}

func TestTrackerIDsUniqueOverLongSequence(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t, func(c *Config) { c.MaxAge = 4 })
	issued := make(map[int]bool)

	for frame := 0; frame < 500; frame++ {
		var dets []Detection

		// vehicles appear in bursts on separate rows and then vanish
		if (frame/10)%2 == 0 {
			for lane := 0; lane < 3; lane++ {
				dets = append(dets, carAt(float64((frame%10)*5), float64(lane*200)))
			}
		}

		upd, err := tr.Update(dets)
		require.NoError(t, err)

		for _, id := range upd.Spawned {
			require.False(t, issued[id], "id %d issued twice", id)
			issued[id] = true
		}
	}

	assert.Len(t, issued, 75)
}

func TestTrackerReset(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t, nil)

	_, err := tr.Update([]Detection{carAt(0, 0)})
	require.NoError(t, err)

	tr.Reset()
	assert.Equal(t, 0, tr.Store().Len())

	upd, err := tr.Update([]Detection{carAt(0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, upd.Spawned)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	_, err := New(Config{})
	assert.Error(t, err)
}
