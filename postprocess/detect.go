package postprocess

import (
	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/postprocess/result"
)

// DetectionResult is implemented by anything able to hand over a frame of
// raw detector output
type DetectionResult interface {
	GetDetectResults() []DetectResult
}

// BoxRect are the dimensions of the bounding box of a detect object
type BoxRect struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// Width returns the width of the box
func (b BoxRect) Width() int {
	return b.Right - b.Left
}

// Height returns the height of the box
func (b BoxRect) Height() int {
	return b.Bottom - b.Top
}

// Box returns the rectangle as a geometry box
func (b BoxRect) Box() geometry.Box {
	return geometry.NewBox(float64(b.Left), float64(b.Top),
		float64(b.Right), float64(b.Bottom))
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the line number in the labels file the Model was trained on
	// defining the Class of the detected object
	Class int `json:"class"`
	// Box are the bounding box dimensions of the object location
	Box BoxRect `json:"box"`
	// Probability is the confidence score of the object detected
	Probability float32 `json:"probability"`
	// ID is a unique ID assigned to the detection result
	ID int64 `json:"id,omitempty"`
}

// Results is a plain slice of detections satisfying DetectionResult
type Results []DetectResult

// GetDetectResults returns the detections
func (r Results) GetDetectResults() []DetectResult {
	return r
}

// FilterClasses returns only the detections whose class index is in keep
func FilterClasses(dets []DetectResult, keep ...int) []DetectResult {

	allowed := make(map[int]struct{}, len(keep))

	for _, k := range keep {
		allowed[k] = struct{}{}
	}

	out := make([]DetectResult, 0, len(dets))

	for _, d := range dets {
		if _, ok := allowed[d.Class]; ok {
			out = append(out, d)
		}
	}

	return out
}

// AssignIDs gives every detection without an ID the next ID from gen
func AssignIDs(gen *result.IDGenerator, dets []DetectResult) {
	for i := range dets {
		if dets[i].ID == 0 {
			dets[i].ID = gen.GetNext()
		}
	}
}
