package postprocess

import (
	"github.com/swdee/go-lanewatch/tracker"
)

// ClassMap maps detector class indices to vehicle classes
type ClassMap []tracker.VehicleClass

// NewClassMap builds a ClassMap from the model's label list, where the label
// on line i names class index i.  Labels that are not vehicles map to
// tracker.Unknown
func NewClassMap(labels []string) ClassMap {

	m := make(ClassMap, len(labels))

	for i, l := range labels {
		m[i] = tracker.ParseVehicleClass(l)
	}

	return m
}

// Lookup returns the vehicle class for a class index, tracker.Unknown when
// the index is out of range
func (m ClassMap) Lookup(class int) tracker.VehicleClass {

	if class < 0 || class >= len(m) {
		return tracker.Unknown
	}

	return m[class]
}

// Vehicles returns the class indices that map to a known vehicle class
func (m ClassMap) Vehicles() []int {

	var out []int

	for i, c := range m {
		if c != tracker.Unknown {
			out = append(out, i)
		}
	}

	return out
}

// DetectionsToTracker takes postprocess object detection results and
// converts them into tracker detections
func DetectionsToTracker(dets []DetectResult, classes ClassMap) []tracker.Detection {

	out := make([]tracker.Detection, 0, len(dets))

	for _, det := range dets {
		out = append(out, tracker.Detection{
			Class:      classes.Lookup(det.Class),
			Confidence: float64(det.Probability),
			Box:        det.Box.Box(),
			ID:         det.ID,
		})
	}

	return out
}
