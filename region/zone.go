package region

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/tracker"
)

// PolygonZone is a named polygon where only some vehicle classes may be.  A
// zone with no allowed classes is closed to every vehicle
type PolygonZone struct {
	id      string
	name    string
	polygon geometry.Polygon
	bounds  geometry.Box
	allowed map[tracker.VehicleClass]struct{}
	// Color is the BGR drawing color for the zone
	Color [3]uint8
	// BaseWidth and BaseHeight are the canvas size the polygon was drawn on,
	// zero when the polygon is already in frame coordinates
	BaseWidth  int
	BaseHeight int
}

// NewPolygonZone creates a zone, failing with geometry.ErrInvalidGeometry if
// the polygon has fewer than 3 vertices
func NewPolygonZone(id, name string, polygon geometry.Polygon,
	allowed []tracker.VehicleClass) (*PolygonZone, error) {

	if id == "" {
		return nil, fmt.Errorf("%w: zone id is empty", geometry.ErrInvalidGeometry)
	}

	if err := polygon.Validate(); err != nil {
		return nil, fmt.Errorf("zone %q: %w", id, err)
	}

	z := &PolygonZone{
		id:      id,
		name:    name,
		polygon: append(geometry.Polygon(nil), polygon...),
		bounds:  polygon.Bounds(),
		allowed: make(map[tracker.VehicleClass]struct{}, len(allowed)),
		Color:   [3]uint8{0, 255, 0},
	}

	for _, c := range allowed {
		z.allowed[c] = struct{}{}
	}

	return z, nil
}

// ID returns the zone identifier
func (z *PolygonZone) ID() string {
	return z.id
}

// Name returns the display name of the zone
func (z *PolygonZone) Name() string {
	return z.name
}

// Polygon returns a copy of the zone vertices
func (z *PolygonZone) Polygon() geometry.Polygon {
	return append(geometry.Polygon(nil), z.polygon...)
}

// AllowedClasses returns the permitted vehicle classes in ascending order
func (z *PolygonZone) AllowedClasses() []tracker.VehicleClass {

	out := make([]tracker.VehicleClass, 0, len(z.allowed))

	for c := range z.allowed {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Allows reports whether the vehicle class may be in the zone
func (z *PolygonZone) Allows(class tracker.VehicleClass) bool {
	_, ok := z.allowed[class]
	return ok
}

// Contains reports whether the point lies inside or on the edge of the zone
func (z *PolygonZone) Contains(p geometry.Point) bool {

	if !z.bounds.Contains(p) {
		return false
	}

	// polygon was validated at construction
	in, _ := geometry.PointInPolygon(p, z.polygon)

	return in
}

// Violates is true when the track's centroid is in the zone and its class is
// not allowed.  Tracks whose class is still being voted on never violate
func (z *PolygonZone) Violates(t *tracker.Track) Verdict {

	if !t.ClassLocked() {
		return Verdict{}
	}

	if !z.Contains(t.Centroid()) || z.Allows(t.Class()) {
		return Verdict{}
	}

	return Verdict{Violating: true, Score: 1}
}

// Fingerprint identifies the zone geometry and allowed classes
func (z *PolygonZone) Fingerprint() uuid.UUID {

	var b strings.Builder

	fmt.Fprintf(&b, "zone|%s|", z.id)

	for _, p := range z.polygon {
		fmt.Fprintf(&b, "%g,%g;", p.X, p.Y)
	}

	for _, c := range z.AllowedClasses() {
		fmt.Fprintf(&b, "|%s", c)
	}

	return uuid.NewSHA1(fingerprintSpace, []byte(b.String()))
}

// RescaleTo returns a copy of the zone scaled from its base canvas to the
// given frame size.  Zones without a base size are returned unchanged
func (z *PolygonZone) RescaleTo(width, height int) *PolygonZone {

	if z.BaseWidth <= 0 || z.BaseHeight <= 0 || width <= 0 || height <= 0 {
		return z
	}

	sx := float64(width) / float64(z.BaseWidth)
	sy := float64(height) / float64(z.BaseHeight)

	out := *z
	out.polygon = z.polygon.Scale(sx, sy)
	out.bounds = out.polygon.Bounds()
	out.BaseWidth = width
	out.BaseHeight = height

	return &out
}
