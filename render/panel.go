package render

import (
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/swdee/go-lanewatch"
)

const (
	panelPad        = 6
	panelLineHeight = 16
	// panelAlpha is the opacity of the panel over the frame
	panelAlpha = 0.75
)

// StatsLines returns the text shown on the stats panel for a frame.  Total
// is the running count of violations on the stream
func StatsLines(res *lanewatch.FrameResult, total int) []string {

	alerts := 0

	for _, t := range res.Tracks {
		if t.Alert {
			alerts++
		}
	}

	lines := []string{
		fmt.Sprintf("frame %d", res.Frame),
		fmt.Sprintf("tracks %d", len(res.Tracks)),
		fmt.Sprintf("alerts %d", alerts),
		fmt.Sprintf("violations %d", total),
	}

	if res.StreamID != "" {
		lines = append([]string{res.StreamID}, lines...)
	}

	return lines
}

// PanelImage renders lines of white text on a black background
func PanelImage(lines []string) *image.RGBA {

	face := basicfont.Face7x13

	width := 0
	for _, l := range lines {
		if w := font.MeasureString(face, l).Ceil(); w > width {
			width = w
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width+2*panelPad, len(lines)*panelLineHeight+2*panelPad))
	draw.Draw(img, img.Bounds(), image.NewUniform(Black), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(White),
		Face: face,
	}

	for i, l := range lines {
		d.Dot = fixed.Point26_6{
			X: fixed.I(panelPad),
			Y: fixed.I(panelPad + (i+1)*panelLineHeight - 4),
		}
		d.DrawString(l)
	}

	return img
}

// Panel blends the text panel onto the image with its top left corner at
// origin.  Panels extending past the image edge are cropped
func Panel(img *gocv.Mat, lines []string, origin image.Point) error {

	if len(lines) == 0 {
		return nil
	}

	rgba := PanelImage(lines)

	area := image.Rectangle{Min: origin, Max: origin.Add(rgba.Bounds().Size())}
	area = area.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if area.Empty() {
		return nil
	}

	panelMat, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(),
		gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil {
		return fmt.Errorf("error creating Mat from panel: %w", err)
	}

	defer panelMat.Close()

	gocv.CvtColor(panelMat, &panelMat, gocv.ColorRGBAToBGR)

	src := panelMat.Region(image.Rect(0, 0, area.Dx(), area.Dy()))
	defer src.Close()

	dst := img.Region(area)
	defer dst.Close()

	gocv.AddWeighted(src, panelAlpha, dst, 1-panelAlpha, 0, &dst)

	return nil
}
