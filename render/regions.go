package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/region"
)

// RegionStyle defines how zones and lanes are drawn
type RegionStyle struct {
	// Alpha is the opacity of the zone fill, 0 disables the fill
	Alpha         float64
	LineThickness int
	// LaneColor is used for the permitted lane boundary and OpposingColor
	// for the boundary that must not be crossed
	LaneColor     color.RGBA
	OpposingColor color.RGBA
}

// DefaultRegionStyle returns default region style settings
func DefaultRegionStyle() RegionStyle {
	return RegionStyle{
		Alpha:         0.25,
		LineThickness: 2,
		LaneColor:     White,
		OpposingColor: Red,
	}
}

// polygonPoints converts a polygon to pixel coordinates
func polygonPoints(poly geometry.Polygon) []image.Point {

	pts := make([]image.Point, len(poly))

	for i, p := range poly {
		pts[i] = pt(p)
	}

	return pts
}

// Zones draws each zone as a translucent filled polygon with a solid outline
// and its name placed at the polygon centroid
func Zones(img *gocv.Mat, zones []*region.PolygonZone, style RegionStyle, font Font) {

	if len(zones) == 0 {
		return
	}

	if style.Alpha > 0 {
		overlay := img.Clone()
		defer overlay.Close()

		for _, z := range zones {
			pv := gocv.NewPointsVectorFromPoints([][]image.Point{polygonPoints(z.Polygon())})
			gocv.FillPoly(&overlay, pv, bgr(z.Color))
			pv.Close()
		}

		gocv.AddWeighted(overlay, style.Alpha, *img, 1-style.Alpha, 0, img)
	}

	labels := make([]boxLabel, 0, len(zones))

	for _, z := range zones {
		clr := bgr(z.Color)

		pv := gocv.NewPointsVectorFromPoints([][]image.Point{polygonPoints(z.Polygon())})
		gocv.Polylines(img, pv, true, clr, style.LineThickness)
		pv.Close()

		name := z.Name()
		if name == "" {
			name = z.ID()
		}

		c := pt(z.Polygon().Centroid())
		bg, pos := font.label(image.Rectangle{Min: c, Max: c}, name, style.LineThickness)

		labels = append(labels, boxLabel{rect: bg, clr: clr, text: name, textPos: pos})
	}

	drawLabels(img, labels, font)
}

// Lane draws both lane boundaries, the opposing one in its own color
func Lane(img *gocv.Mat, lane *region.LaneModel, style RegionStyle) {

	if lane == nil {
		return
	}

	leftClr, rightClr := style.LaneColor, style.LaneColor

	if lane.Opposing() == region.BoundaryLeft {
		leftClr = style.OpposingColor
	} else {
		rightClr = style.OpposingColor
	}

	left, right := lane.Left(), lane.Right()

	gocv.Line(img, pt(left.A), pt(left.B), leftClr, style.LineThickness)
	gocv.Line(img, pt(right.A), pt(right.B), rightClr, style.LineThickness)
}

// Regions draws whichever regions are configured in the set
func Regions(img *gocv.Mat, set *region.Set, style RegionStyle, font Font) {

	if set == nil {
		return
	}

	switch set.Mode() {
	case region.ModeLane:
		Lane(img, set.Lane(), style)
	default:
		Zones(img, set.Zones(), style, font)
	}
}
