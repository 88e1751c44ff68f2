package render

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/swdee/go-lanewatch"
	"github.com/swdee/go-lanewatch/region"
)

// Annotator draws a Session's frame results onto video frames.  It keeps the
// running violation count for the stats panel so one Annotator should be
// used per stream
type Annotator struct {
	Font          Font
	Trail         TrailStyle
	Region        RegionStyle
	LineThickness int
	// ShowPanel enables the stats panel in the top left corner
	ShowPanel bool

	total int
}

// NewAnnotator returns an Annotator with default styles
func NewAnnotator() *Annotator {
	return &Annotator{
		Font:          DefaultFont(),
		Trail:         DefaultTrailStyle(),
		Region:        DefaultRegionStyle(),
		LineThickness: 1,
		ShowPanel:     true,
	}
}

// Violations returns the number of violation events seen so far
func (a *Annotator) Violations() int {
	return a.total
}

// Draw renders regions, trails, track boxes and the stats panel for res onto
// img.  Skipped frames only redraw the regions and panel
func (a *Annotator) Draw(img *gocv.Mat, res *lanewatch.FrameResult, regions *region.Set) error {

	Regions(img, regions, a.Region, a.Font)

	if !res.Skipped {
		a.total += len(res.Events)

		Trail(img, res.Tracks, a.Trail)
		TrackBoxes(img, res.Tracks, a.Font, a.LineThickness)
	}

	if !a.ShowPanel {
		return nil
	}

	return Panel(img, StatsLines(res, a.total), image.Pt(panelPad, panelPad))
}
