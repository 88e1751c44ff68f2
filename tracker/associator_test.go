package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-lanewatch/geometry"
)

func TestCost(t *testing.T) {
	t.Parallel()

	cfg := DefaultAssociatorConfig()
	box := geometry.NewBox(0, 0, 40, 20)

	t.Run("identical box", func(t *testing.T) {
		cost, ok := Cost(cfg, box, box.Centroid(), box)
		require.True(t, ok)
		assert.InDelta(t, 0, cost, 1e-12)
	})

	t.Run("no overlap within gate", func(t *testing.T) {
		det := box.Translate(50, 0)
		cost, ok := Cost(cfg, box, box.Centroid(), det)
		require.True(t, ok)
		assert.InDelta(t, 0.7+0.3*0.5, cost, 1e-12)
	})

	t.Run("no overlap beyond gate", func(t *testing.T) {
		det := box.Translate(150, 0)
		_, ok := Cost(cfg, box, box.Centroid(), det)
		assert.False(t, ok)
	})

	t.Run("overlap beyond gate stays feasible", func(t *testing.T) {
		big := geometry.NewBox(0, 0, 400, 400)
		det := geometry.NewBox(300, 300, 400, 400)
		_, ok := Cost(cfg, big, big.Centroid(), det)
		assert.True(t, ok)
	})
}

func TestAssociateEmpty(t *testing.T) {
	t.Parallel()

	cfg := DefaultAssociatorConfig()
	s := NewStore(10, 1)

	res, err := Associate(cfg, s, []Detection{carAt(0, 0), carAt(100, 0)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Unmatched)
	assert.Empty(t, res.Matches)

	s.Spawn(carAt(0, 0))
	s.AgeAndPrune(5)

	res, err = Associate(cfg, s, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.UnmatchedTracks)
	assert.Empty(t, res.Unmatched)
}

func TestAssociateMatchesNearest(t *testing.T) {
	t.Parallel()

	cfg := DefaultAssociatorConfig()
	s := NewStore(10, 1)
	a := s.Spawn(carAt(0, 0))
	b := s.Spawn(carAt(300, 0))
	s.AgeAndPrune(5)

	// detections given in reverse order plus a far away newcomer
	dets := []Detection{carAt(305, 2), carAt(600, 300), carAt(4, 1)}

	res, err := Associate(cfg, s, dets)
	require.NoError(t, err)

	require.Len(t, res.Matches, 2)
	assert.Equal(t, a, res.Matches[0].TrackID)
	assert.Equal(t, 2, res.Matches[0].Detection)
	assert.Equal(t, b, res.Matches[1].TrackID)
	assert.Equal(t, 0, res.Matches[1].Detection)
	assert.Equal(t, []int{1}, res.Unmatched)
	assert.Empty(t, res.UnmatchedTracks)
}

func TestAssociateTieBreakLowerTrackID(t *testing.T) {
	t.Parallel()

	cfg := DefaultAssociatorConfig()
	s := NewStore(10, 1)

	// two tracks with identical boxes compete for one detection
	first := s.Spawn(carAt(0, 0))
	second := s.Spawn(carAt(0, 0))
	s.AgeAndPrune(5)

	res, err := Associate(cfg, s, []Detection{carAt(2, 0)})
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, first, res.Matches[0].TrackID)
	assert.Equal(t, []int{second}, res.UnmatchedTracks)
}

func TestAssociateCostAtLimitOnLaterRow(t *testing.T) {
	t.Parallel()

	s := NewStore(10, 1)
	s.Spawn(carAt(1000, 0))
	second := s.Spawn(carAt(0, 0))
	s.AgeAndPrune(5)

	det := carAt(50, 0)
	track, ok := s.Get(second)
	require.True(t, ok)

	cfg := DefaultAssociatorConfig()
	pairCost, ok := Cost(cfg, track.Box(), s.PredictPositions()[second], det.Box)
	require.True(t, ok)

	// a pair costing exactly the limit is accepted whatever its row
	cfg.MaxMatchCost = pairCost

	res, err := Associate(cfg, s, []Detection{det})
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, second, res.Matches[0].TrackID)
	assert.Equal(t, pairCost, res.Matches[0].Cost)
	assert.Empty(t, res.Unmatched)
}

func TestAssociateConfidenceFloor(t *testing.T) {
	t.Parallel()

	cfg := DefaultAssociatorConfig()
	s := NewStore(10, 1)
	s.Spawn(carAt(0, 0))
	s.AgeAndPrune(5)

	weak := carAt(1, 0)
	weak.Confidence = 0.05

	res, err := Associate(cfg, s, []Detection{weak})
	require.NoError(t, err)

	assert.Equal(t, []int{0}, res.BelowFloor)
	assert.Empty(t, res.Matches)
	assert.Empty(t, res.Unmatched)
	assert.Equal(t, []int{1}, res.UnmatchedTracks)
}

func TestAssociateGatedPairStaysUnmatched(t *testing.T) {
	t.Parallel()

	cfg := DefaultAssociatorConfig()
	s := NewStore(10, 1)
	s.Spawn(carAt(0, 0))
	s.AgeAndPrune(5)

	res, err := Associate(cfg, s, []Detection{carAt(500, 0)})
	require.NoError(t, err)

	assert.Empty(t, res.Matches)
	assert.Equal(t, []int{0}, res.Unmatched)
	assert.Equal(t, []int{1}, res.UnmatchedTracks)
}

func TestAssociatorConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultAssociatorConfig().Validate())

	cfg := DefaultAssociatorConfig()
	cfg.GatingRadius = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultAssociatorConfig()
	cfg.IoUWeight = 1.5
	assert.Error(t, cfg.Validate())
}
