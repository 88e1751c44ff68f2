package tracker

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/swdee/go-lanewatch/geometry"
)

// ErrInvalidDetection is returned for a detection with an inverted or
// degenerate bounding box or a confidence outside of [0,1]
var ErrInvalidDetection = errors.New("invalid detection")

// VehicleClass is the vehicle category assigned by the detector
type VehicleClass int

const (
	// Unknown is used for any class the detector produced that is not a
	// recognised vehicle
	Unknown VehicleClass = 0
	// Car is a passenger car
	Car VehicleClass = 1
	// Motorcycle is a motorcycle or scooter
	Motorcycle VehicleClass = 2
	// Bus is a bus or coach
	Bus VehicleClass = 3
	// Truck is a truck or lorry
	Truck VehicleClass = 4
)

// vehicleClassNames maps each class to its canonical name
var vehicleClassNames = map[VehicleClass]string{
	Unknown:    "unknown",
	Car:        "car",
	Motorcycle: "motorcycle",
	Bus:        "bus",
	Truck:      "truck",
}

// classAliases are alternative label names emitted by common detection
// models, eg: COCO uses "motorbike" in some label files
var classAliases = map[string]VehicleClass{
	"car":        Car,
	"motorcycle": Motorcycle,
	"motorbike":  Motorcycle,
	"scooter":    Motorcycle,
	"bus":        Bus,
	"coach":      Bus,
	"truck":      Truck,
	"lorry":      Truck,
	"unknown":    Unknown,
}

// String returns the canonical class name
func (c VehicleClass) String() string {
	if name, ok := vehicleClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("VehicleClass(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler
func (c VehicleClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.  Unrecognised names are
// rejected so misspelt zone rules fail at load time
func (c *VehicleClass) UnmarshalText(text []byte) error {

	class, ok := LookupVehicleClass(string(text))

	if !ok {
		return fmt.Errorf("unknown vehicle class %q", string(text))
	}

	*c = class
	return nil
}

// LookupVehicleClass returns the class for a label name, matching case
// insensitively and accepting common aliases
func LookupVehicleClass(name string) (VehicleClass, bool) {
	class, ok := classAliases[strings.ToLower(strings.TrimSpace(name))]
	return class, ok
}

// ParseVehicleClass returns the class for a label name, or Unknown for any
// label that is not a vehicle
func ParseVehicleClass(name string) VehicleClass {
	class, _ := LookupVehicleClass(name)
	return class
}

// Detection is a single object found in a frame by the detector
type Detection struct {
	// Class is the vehicle class assigned by the detector
	Class VehicleClass `json:"class"`
	// Confidence is the detector score in [0,1]
	Confidence float64 `json:"confidence"`
	// Box is the bounding box in image pixel space
	Box geometry.Box `json:"box"`
	// ID is an optional identifier assigned by the detector so the caller can
	// match input detections to tracks
	ID int64 `json:"id,omitempty"`
}

// NewDetection is a constructor function for the Detection struct
func NewDetection(class VehicleClass, confidence float64, box geometry.Box) Detection {
	return Detection{
		Class:      class,
		Confidence: confidence,
		Box:        box,
	}
}

// Centroid returns the midpoint of the detection bounding box
func (d Detection) Centroid() geometry.Point {
	return d.Box.Centroid()
}

// Validate checks the bounding box has x1<x2 and y1<y2 and the confidence
// is within [0,1]
func (d Detection) Validate() error {

	if err := d.Box.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDetection, err)
	}

	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside of [0,1]", ErrInvalidDetection, d.Confidence)
	}

	return nil
}
