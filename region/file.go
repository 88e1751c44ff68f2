package region

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/tracker"
)

// fileVersion is written to saved region files
const fileVersion = "1.0"

// fileFormat is the on disk layout of a region file
type fileFormat struct {
	Version string     `json:"version"`
	Zones   []zoneFile `json:"zones,omitempty"`
	Lane    *laneFile  `json:"lane,omitempty"`
}

type zoneFile struct {
	ZoneID         string                 `json:"zone_id"`
	Name           string                 `json:"name"`
	Polygon        pointList              `json:"polygon"`
	AllowedClasses []string  `json:"allowed_classes"`
	Color          []int     `json:"color,omitempty"`
	BaseWidth      int       `json:"base_width,omitempty"`
	BaseHeight     int       `json:"base_height,omitempty"`
}

type laneFile struct {
	Left           pointList `json:"left"`
	Right          pointList `json:"right"`
	Opposing       string    `json:"opposing,omitempty"`
	ScoreThreshold *float64  `json:"score_threshold,omitempty"`
	BaseWidth      int       `json:"base_width,omitempty"`
	BaseHeight     int       `json:"base_height,omitempty"`
}

// pointList decodes either [[x,y],...] or [{"x":x,"y":y},...]
type pointList []geometry.Point

// UnmarshalJSON implements json.Unmarshaler
func (p *pointList) UnmarshalJSON(data []byte) error {

	var pairs [][]float64

	if err := json.Unmarshal(data, &pairs); err == nil {

		out := make(pointList, len(pairs))

		for i, pair := range pairs {
			if len(pair) != 2 {
				return fmt.Errorf("%w: point %d has %d coordinates",
					geometry.ErrInvalidGeometry, i, len(pair))
			}
			out[i] = geometry.Pt(pair[0], pair[1])
		}

		*p = out
		return nil
	}

	var objs []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	if err := json.Unmarshal(data, &objs); err != nil {
		return fmt.Errorf("points must be [x,y] pairs or {x,y} objects: %w", err)
	}

	out := make(pointList, len(objs))

	for i, o := range objs {
		out[i] = geometry.Pt(o.X, o.Y)
	}

	*p = out
	return nil
}

// MarshalJSON implements json.Marshaler writing [x,y] pairs
func (p pointList) MarshalJSON() ([]byte, error) {

	pairs := make([][2]float64, len(p))

	for i, pt := range p {
		pairs[i] = [2]float64{pt.X, pt.Y}
	}

	return json.Marshal(pairs)
}

// line converts a two point list to a line
func (p pointList) line(name string) (geometry.Line, error) {

	if len(p) != 2 {
		return geometry.Line{}, fmt.Errorf("%w: %s boundary needs 2 points, got %d",
			geometry.ErrInvalidGeometry, name, len(p))
	}

	return geometry.Line{A: p[0], B: p[1]}, nil
}

// Decode reads a region file.  Geometry errors are reported here so a bad
// file fails before any frame is processed
func Decode(r io.Reader) (*Set, error) {

	var f fileFormat

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("error decoding region file: %w", err)
	}

	if len(f.Zones) > 0 && f.Lane != nil {
		return nil, ErrMixedModes
	}

	if f.Lane != nil {
		return decodeLane(f.Lane)
	}

	zones := make([]*PolygonZone, 0, len(f.Zones))

	for _, zf := range f.Zones {

		z, err := NewPolygonZone(zf.ZoneID, zf.Name, geometry.Polygon(zf.Polygon),
			allowedClasses(zf.AllowedClasses))
		if err != nil {
			return nil, err
		}

		if len(zf.Color) == 3 {
			for i, c := range zf.Color {
				z.Color[i] = uint8(max(0, min(255, c)))
			}
		}

		z.BaseWidth = zf.BaseWidth
		z.BaseHeight = zf.BaseHeight
		zones = append(zones, z)
	}

	return NewZoneSet(zones...)
}

func decodeLane(lf *laneFile) (*Set, error) {

	left, err := lf.Left.line("left")
	if err != nil {
		return nil, err
	}

	right, err := lf.Right.line("right")
	if err != nil {
		return nil, err
	}

	opposing, err := ParseBoundary(lf.Opposing)
	if err != nil {
		return nil, err
	}

	threshold := DefaultScoreThreshold

	if lf.ScoreThreshold != nil {
		threshold = *lf.ScoreThreshold
	}

	lane, err := NewLaneModel(left, right, opposing, threshold)
	if err != nil {
		return nil, err
	}

	lane.BaseWidth = lf.BaseWidth
	lane.BaseHeight = lf.BaseHeight

	return NewLaneSet(lane)
}

// LoadFile reads a region file from disk
func LoadFile(path string) (*Set, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading region file: %w", err)
	}

	set, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return set, nil
}

// Encode writes the Set in region file format
func Encode(w io.Writer, s *Set) error {

	f := fileFormat{Version: fileVersion}

	if s.mode == ModeLane {
		threshold := s.lane.threshold
		f.Lane = &laneFile{
			Left:           pointList{s.lane.left.A, s.lane.left.B},
			Right:          pointList{s.lane.right.A, s.lane.right.B},
			Opposing:       s.lane.opposing.String(),
			ScoreThreshold: &threshold,
			BaseWidth:      s.lane.BaseWidth,
			BaseHeight:     s.lane.BaseHeight,
		}
	}

	for _, z := range s.zones {
		f.Zones = append(f.Zones, zoneFile{
			ZoneID:         z.id,
			Name:           z.name,
			Polygon:        pointList(z.polygon),
			AllowedClasses: classNames(z.AllowedClasses()),
			Color:          []int{int(z.Color[0]), int(z.Color[1]), int(z.Color[2])},
			BaseWidth:      z.BaseWidth,
			BaseHeight:     z.BaseHeight,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(f)
}

// SaveFile writes the Set to disk in region file format
func SaveFile(path string, s *Set) error {

	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating region file: %w", err)
	}

	if err := Encode(fh, s); err != nil {
		fh.Close()
		return fmt.Errorf("error writing region file: %w", err)
	}

	return fh.Close()
}

// allowedClasses maps zone rule class names to vehicle classes.  Names that
// are not vehicles, eg: "bicycle", map to unknown
func allowedClasses(names []string) []tracker.VehicleClass {

	out := make([]tracker.VehicleClass, 0, len(names))

	for _, name := range names {
		out = append(out, tracker.ParseVehicleClass(name))
	}

	return out
}

func classNames(classes []tracker.VehicleClass) []string {

	out := make([]string, 0, len(classes))

	for _, c := range classes {
		out = append(out, c.String())
	}

	return out
}
