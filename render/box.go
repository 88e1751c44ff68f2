package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/swdee/go-lanewatch"
	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/tracker"
)

// rect converts a geometry box to pixel coordinates
func rect(b geometry.Box) image.Rectangle {
	return image.Rect(int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)))
}

// pt converts a geometry point to pixel coordinates
func pt(p geometry.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// DetectionBoxes renders the bounding boxes around raw detections labelled
// with their class and confidence
func DetectionBoxes(img *gocv.Mat, dets []tracker.Detection, font Font,
	lineThickness int) {

	labels := make([]boxLabel, 0, len(dets))

	for i, det := range dets {

		useClr := trackColors[i%len(trackColors)]
		r := rect(det.Box)

		gocv.Rectangle(img, r, useClr, lineThickness)

		text := fmt.Sprintf("%s %.2f", det.Class, det.Confidence)
		bg, pos := font.label(r, text, lineThickness)

		labels = append(labels, boxLabel{rect: bg, clr: useClr, text: text, textPos: pos})
	}

	drawLabels(img, labels, font)
}

// TrackLabel returns the label text and color used for a track.  Tracks in
// their alert window are drawn in red
func TrackLabel(t lanewatch.TrackView) (string, color.RGBA) {

	if t.Alert {
		return fmt.Sprintf("VIOLATION #%d", t.ID), Red
	}

	return fmt.Sprintf("%s #%d", t.Class, t.ID), TrackColor(t.ID)
}

// TrackBoxes renders the bounding boxes around tracked vehicles.  Coasting
// tracks, which were not matched this frame, are skipped
func TrackBoxes(img *gocv.Mat, tracks []lanewatch.TrackView, font Font,
	lineThickness int) {

	labels := make([]boxLabel, 0, len(tracks))

	for _, t := range tracks {

		if t.TimeSinceUpdate > 0 {
			continue
		}

		text, useClr := TrackLabel(t)
		r := rect(t.Box)

		thickness := lineThickness
		if t.Alert {
			thickness *= 2
		}

		gocv.Rectangle(img, r, useClr, thickness)

		bg, pos := font.label(r, text, thickness)
		labels = append(labels, boxLabel{rect: bg, clr: useClr, text: text, textPos: pos})
	}

	drawLabels(img, labels, font)
}
