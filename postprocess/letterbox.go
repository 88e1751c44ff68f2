package postprocess

import "math"

// Letterbox holds the parameters used when a source frame was scaled and
// padded to the detector's input size
type Letterbox struct {
	// Scale is the factor the source frame was resized by
	Scale float64
	// XPad is the horizontal padding added on the left
	XPad int
	// YPad is the vertical padding added on the top
	YPad int
	// SrcWidth is the width of the source frame
	SrcWidth int
	// SrcHeight is the height of the source frame
	SrcHeight int
}

// NewLetterbox calculates the letterbox parameters for fitting a source
// frame into the detector input dimensions while keeping its aspect ratio
func NewLetterbox(srcWidth, srcHeight, destWidth, destHeight int) Letterbox {

	scale := math.Min(float64(destWidth)/float64(srcWidth),
		float64(destHeight)/float64(srcHeight))

	resizeW := int(float64(srcWidth) * scale)
	resizeH := int(float64(srcHeight) * scale)

	return Letterbox{
		Scale:     scale,
		XPad:      (destWidth - resizeW) / 2,
		YPad:      (destHeight - resizeH) / 2,
		SrcWidth:  srcWidth,
		SrcHeight: srcHeight,
	}
}

// Restore maps detections from detector input space back to source frame
// pixels, clamping boxes to the frame
func (l Letterbox) Restore(dets []DetectResult) []DetectResult {

	out := make([]DetectResult, len(dets))

	for i, d := range dets {
		d.Box = BoxRect{
			Left:   l.restore(d.Box.Left, l.XPad, l.SrcWidth),
			Right:  l.restore(d.Box.Right, l.XPad, l.SrcWidth),
			Top:    l.restore(d.Box.Top, l.YPad, l.SrcHeight),
			Bottom: l.restore(d.Box.Bottom, l.YPad, l.SrcHeight),
		}
		out[i] = d
	}

	return out
}

func (l Letterbox) restore(v, pad, limit int) int {

	if l.Scale == 0 {
		return v
	}

	return clampInt(int(math.Round(float64(v-pad)/l.Scale)), 0, limit)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
