package render

import (
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-lanewatch"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	// LineSame defines if the color of the trail line should be the
	// same color as that of the bounding box.  If set to false then use
	// the color specified at LineColor
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	// CircleSame defines if the color of the centroid circle should be the
	// same color as that of the bounding box.  If set to false then use
	// the color specified at CircleColor
	CircleSame   bool
	CircleColor  color.RGBA
	CircleRadius int
	// MaxPoints limits how much history is drawn, 0 draws the whole trail
	MaxPoints int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      false,
		LineColor:     Yellow,
		LineThickness: 1,
		CircleSame:    true,
		CircleColor:   Pink,
		CircleRadius:  3,
		MaxPoints:     30,
	}
}

// Trail draws each track's centroid history on the image
func Trail(img *gocv.Mat, tracks []lanewatch.TrackView, style TrailStyle) {

	for _, t := range tracks {

		_, objClr := TrackLabel(t)

		lineClr := objClr
		circleClr := objClr

		if !style.LineSame {
			lineClr = style.LineColor
		}

		if !style.CircleSame {
			circleClr = style.CircleColor
		}

		points := t.Trail

		if style.MaxPoints > 0 && len(points) > style.MaxPoints {
			points = points[len(points)-style.MaxPoints:]
		}

		if len(points) < 2 {
			continue
		}

		for i := 1; i < len(points); i++ {
			gocv.Line(img, pt(points[i-1]), pt(points[i]), lineClr, style.LineThickness)
		}

		// mark the current centroid
		gocv.Circle(img, pt(points[len(points)-1]), style.CircleRadius, circleClr, -1)
	}
}
