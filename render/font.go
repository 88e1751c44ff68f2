package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// label calculates where a text label sits on top of box, returning the
// filled background rectangle and the text origin
func (f Font) label(box image.Rectangle, text string, lineThickness int) (image.Rectangle, image.Point) {

	textSize := gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)

	var centerX int

	switch f.Alignment {
	case Center:
		centerX = (box.Min.X + box.Max.X) / 2

	case Right:
		centerX = box.Max.X - (textSize.X / 2) - f.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = box.Min.X + (textSize.X / 2) + f.LeftPad - (lineThickness / 2)
	}

	// labels above the top of the frame are pushed inside the box
	top := box.Min.Y
	if top-textSize.Y-f.TopPad-f.BottomPad < 0 {
		top = textSize.Y + f.TopPad + f.BottomPad
	}

	bg := image.Rect(centerX-textSize.X/2-f.LeftPad, top-textSize.Y-f.TopPad-f.BottomPad,
		centerX+textSize.X/2+f.RightPad, top)

	return bg, image.Pt(centerX-textSize.X/2, top-f.BottomPad)
}

// boxLabel defines where an object label should be rendered on the image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// drawLabels renders labels after all other shapes so they are the top most
// layer on the image
func drawLabels(img *gocv.Mat, labels []boxLabel, f Font) {
	for _, l := range labels {
		gocv.Rectangle(img, l.rect, l.clr, -1)
		gocv.PutTextWithParams(img, l.text, l.textPos, f.Face, f.Scale, f.Color,
			f.Thickness, f.LineType, false)
	}
}
