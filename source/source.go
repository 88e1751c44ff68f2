// Package source reads recorded detector output from JSON lines files, one
// frame per line, for replay through lanewatch Sessions.
//
// Each line holds the frame number, an optional stream name and the frame's
// detections given either already mapped to vehicle classes
//
//	{"frame":12,"detections":[{"class":"car","confidence":0.8,"box":{"x1":10,"y1":20,"x2":50,"y2":40}}]}
//
// or as raw detector results indexed into the model's labels file
//
//	{"frame":12,"raw":[{"class":2,"probability":0.8,"box":{"left":10,"top":20,"right":50,"bottom":40}}]}
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/swdee/go-lanewatch/postprocess"
	"github.com/swdee/go-lanewatch/postprocess/result"
	"github.com/swdee/go-lanewatch/tracker"
)

// maxLineSize is the longest frame line accepted
const maxLineSize = 16 * 1024 * 1024

// Frame is one line of a detection file
type Frame struct {
	Stream     string                     `json:"stream,omitempty"`
	Frame      int                        `json:"frame"`
	Detections []tracker.Detection        `json:"detections,omitempty"`
	Raw        []postprocess.DetectResult `json:"raw,omitempty"`
}

// Resolver converts the raw detector results of frames to tracker
// detections.  Raw results are reduced to vehicle classes, restored from the
// detector's letterboxed input space when Letterbox is set, suppressed with
// class aware NMS when NMSThreshold is positive and given IDs.  Already
// mapped detections pass through unchanged.  A Resolver is not safe for
// concurrent use, create one per stream
type Resolver struct {
	Classes      postprocess.ClassMap
	Letterbox    *postprocess.Letterbox
	NMSThreshold float32
	ids          *result.IDGenerator
}

// NewResolver returns a Resolver mapping raw class indices with classes.  With
// no classes every raw result is dropped
func NewResolver(classes postprocess.ClassMap) *Resolver {
	return &Resolver{
		Classes: classes,
		ids:     result.NewIDGenerator(),
	}
}

// Resolve returns all of the frame's detections, raw results are converted
// and appended after the mapped ones
func (r *Resolver) Resolve(f Frame) []tracker.Detection {

	out := make([]tracker.Detection, 0, len(f.Detections)+len(f.Raw))
	out = append(out, f.Detections...)

	if len(f.Raw) == 0 {
		return out
	}

	raw := postprocess.FilterClasses(postprocess.Results(f.Raw).GetDetectResults(),
		r.Classes.Vehicles()...)

	if r.Letterbox != nil {
		raw = r.Letterbox.Restore(raw)
	}

	if r.NMSThreshold > 0 {
		raw = postprocess.NMS(raw, r.NMSThreshold)
	}

	postprocess.AssignIDs(r.ids, raw)

	return append(out, postprocess.DetectionsToTracker(raw, r.Classes)...)
}

// Reader reads frames from a JSON lines stream
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader over r
func NewReader(r io.Reader) *Reader {

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &Reader{scanner: scanner}
}

// Next returns the next frame, or io.EOF once the input is exhausted.  Blank
// lines and lines starting with # are skipped
func (r *Reader) Next() (Frame, error) {

	for r.scanner.Scan() {
		r.line++

		line := bytes.TrimSpace(r.scanner.Bytes())

		if len(line) == 0 || line[0] == '#' {
			continue
		}

		var f Frame

		if err := json.Unmarshal(line, &f); err != nil {
			return Frame{}, fmt.Errorf("line %d: %w", r.line, err)
		}

		return f, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("line %d: %w", r.line+1, err)
	}

	return Frame{}, io.EOF
}

// ReadAll reads every remaining frame
func (r *Reader) ReadAll() ([]Frame, error) {

	var frames []Frame

	for {
		f, err := r.Next()

		if errors.Is(err, io.EOF) {
			return frames, nil
		}

		if err != nil {
			return frames, err
		}

		frames = append(frames, f)
	}
}

// LoadFile reads every frame from the file at path
func LoadFile(path string) ([]Frame, error) {

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening detection file: %w", err)
	}

	defer fh.Close()

	frames, err := NewReader(fh).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	return frames, nil
}

// Streams splits frames by stream name, returning the names in the order
// they first appear.  Frame order within each stream is kept
func Streams(frames []Frame) ([]string, map[string][]Frame) {

	var names []string
	byStream := make(map[string][]Frame)

	for _, f := range frames {
		if _, ok := byStream[f.Stream]; !ok {
			names = append(names, f.Stream)
		}

		byStream[f.Stream] = append(byStream[f.Stream], f)
	}

	return names, byStream
}

// Writer writes frames as JSON lines
type Writer struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewWriter returns a Writer to w, Flush must be called when done
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{w: bw, enc: json.NewEncoder(bw)}
}

// Write encodes one frame on its own line
func (w *Writer) Write(f Frame) error {
	return w.enc.Encode(f)
}

// Flush writes any buffered data
func (w *Writer) Flush() error {
	return w.w.Flush()
}
