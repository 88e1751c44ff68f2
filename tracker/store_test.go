package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-lanewatch/geometry"
)

func carAt(x, y float64) Detection {
	return NewDetection(Car, 0.9, geometry.NewBox(x, y, x+40, y+20))
}

func TestStoreSpawn(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 1)

	id := s.Spawn(carAt(0, 0))
	require.Equal(t, 1, id)

	tr, ok := s.Get(id)
	require.True(t, ok)

	assert.Equal(t, 0, tr.Age())
	assert.Equal(t, 1, tr.Hits())
	assert.Equal(t, 0, tr.TimeSinceUpdate())
	assert.Equal(t, Car, tr.Class())
	assert.True(t, tr.ClassLocked())
	assert.Equal(t, geometry.Pt(20, 10), tr.Centroid())
	assert.Equal(t, 1, tr.Trail().Len())
	assert.Equal(t, -1, tr.LastViolationFrame())
}

func TestStoreUpsert(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 1)
	id := s.Spawn(carAt(0, 0))
	s.AgeAndPrune(5)

	require.NoError(t, s.Upsert(id, carAt(10, 0)))
	s.AgeAndPrune(5)

	tr, _ := s.Get(id)
	assert.Equal(t, 1, tr.Age())
	assert.Equal(t, 2, tr.Hits())
	assert.Equal(t, 0, tr.TimeSinceUpdate())
	assert.Equal(t, geometry.NewBox(10, 0, 50, 20), tr.Box())
	assert.Equal(t, []geometry.Point{geometry.Pt(20, 10), geometry.Pt(30, 10)},
		tr.Trail().Points())
}

func TestStoreUpsertUnknownTrack(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 1)

	err := s.Upsert(42, carAt(0, 0))
	assert.ErrorIs(t, err, ErrTrackNotFound)

	_, ok := s.Get(42)
	assert.False(t, ok)
}

func TestStoreUpsertTwicePanics(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 1)
	id := s.Spawn(carAt(0, 0))
	s.AgeAndPrune(5)

	require.NoError(t, s.Upsert(id, carAt(1, 0)))

	assert.Panics(t, func() {
		_ = s.Upsert(id, carAt(2, 0))
	})
}

func TestStoreEvictionTiming(t *testing.T) {
	t.Parallel()

	const maxAge = 3

	s := NewStore(10, 1)
	id := s.Spawn(carAt(0, 0))
	require.Empty(t, s.AgeAndPrune(maxAge))

	// unmatched for maxAge frames survives, the next one evicts
	for i := 1; i <= maxAge; i++ {
		evicted := s.AgeAndPrune(maxAge)
		require.Empty(t, evicted, "frame %d", i)

		tr, ok := s.Get(id)
		require.True(t, ok)
		assert.Equal(t, i, tr.TimeSinceUpdate())
	}

	assert.Equal(t, []int{id}, s.AgeAndPrune(maxAge))

	_, ok := s.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStoreMatchResetsTimeSinceUpdate(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 1)
	id := s.Spawn(carAt(0, 0))
	s.AgeAndPrune(5)
	s.AgeAndPrune(5)
	s.AgeAndPrune(5)

	tr, _ := s.Get(id)
	require.Equal(t, 2, tr.TimeSinceUpdate())

	require.NoError(t, s.Upsert(id, carAt(5, 0)))
	s.AgeAndPrune(5)

	assert.Equal(t, 0, tr.TimeSinceUpdate())
}

func TestStoreIDsNeverReused(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 1)
	seen := make(map[int]bool)

	for frame := 0; frame < 200; frame++ {
		// a new vehicle every third frame, never matched again
		if frame%3 == 0 {
			id := s.Spawn(carAt(float64(frame), 0))
			require.False(t, seen[id], "id %d reused", id)
			seen[id] = true
		}

		s.AgeAndPrune(2)
	}

	assert.Len(t, seen, 67)
	assert.Equal(t, 67, s.LastID())
}

func TestStoreLiveTracksOrdered(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 1)

	for i := 0; i < 5; i++ {
		s.Spawn(carAt(float64(i*50), 0))
	}

	var ids []int

	for _, tr := range s.LiveTracks() {
		ids = append(ids, tr.ID())
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids)
}

func TestStorePredictPositions(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 1)
	id := s.Spawn(carAt(0, 0))
	s.AgeAndPrune(5)

	// single point predicts the last centroid
	assert.Equal(t, geometry.Pt(20, 10), s.PredictPositions()[id])

	require.NoError(t, s.Upsert(id, carAt(10, 0)))
	s.AgeAndPrune(5)

	// moving 10px per frame
	assert.Equal(t, geometry.Pt(40, 10), s.PredictPositions()[id])

	// one missed frame extrapolates two steps
	s.AgeAndPrune(5)
	assert.Equal(t, geometry.Pt(50, 10), s.PredictPositions()[id])
}

func TestTrackClassVoting(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 3)
	id := s.Spawn(NewDetection(Truck, 0.9, geometry.NewBox(0, 0, 10, 10)))
	s.AgeAndPrune(5)

	tr, _ := s.Get(id)
	require.False(t, tr.ClassLocked())

	require.NoError(t, s.Upsert(id, NewDetection(Car, 0.9, geometry.NewBox(0, 0, 10, 10))))
	s.AgeAndPrune(5)

	// one vote each, the first seen wins the tie
	assert.Equal(t, Truck, tr.Class())
	assert.False(t, tr.ClassLocked())

	require.NoError(t, s.Upsert(id, NewDetection(Car, 0.9, geometry.NewBox(0, 0, 10, 10))))
	s.AgeAndPrune(5)

	assert.Equal(t, Car, tr.Class())
	assert.True(t, tr.ClassLocked())

	// locked classes no longer change
	require.NoError(t, s.Upsert(id, NewDetection(Bus, 0.9, geometry.NewBox(0, 0, 10, 10))))
	s.AgeAndPrune(5)

	assert.Equal(t, Car, tr.Class())
}

func TestTrailRingBuffer(t *testing.T) {
	t.Parallel()

	tr := NewTrail(3)

	_, ok := tr.Last()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		tr.Push(geometry.Pt(float64(i), 0))
	}

	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, 3, tr.Cap())
	assert.Equal(t, []geometry.Point{geometry.Pt(3, 0), geometry.Pt(4, 0), geometry.Pt(5, 0)},
		tr.Points())

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(5, 0), last)

	assert.Equal(t, 2, NewTrail(0).Cap())
}
