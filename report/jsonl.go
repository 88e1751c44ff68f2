package report

import (
	"bufio"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/swdee/go-lanewatch"
	"github.com/swdee/go-lanewatch/violation"
)

// EventLog writes every violation event as a JSON line tagged with its
// stream.  It implements lanewatch.EventSink
type EventLog struct {
	mu  sync.Mutex
	w   *bufio.Writer
	enc *json.Encoder
	log zerolog.Logger
	n   int
}

// eventLine is the encoded form of an event
type eventLine struct {
	StreamID string `json:"stream_id"`
	violation.Event
}

// NewEventLog returns an EventLog writing to w
func NewEventLog(w io.Writer, log zerolog.Logger) *EventLog {
	bw := bufio.NewWriter(w)
	return &EventLog{w: bw, enc: json.NewEncoder(bw), log: log}
}

// OnFrameResult implements lanewatch.EventSink
func (l *EventLog) OnFrameResult(res *lanewatch.FrameResult) {

	if len(res.Events) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ev := range res.Events {
		if err := l.enc.Encode(eventLine{StreamID: res.StreamID, Event: ev}); err != nil {
			l.log.Error().Err(err).Msg("Failed to write event")
			continue
		}
		l.n++
	}
}

// Written returns the number of events written
func (l *EventLog) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// Flush writes any buffered events
func (l *EventLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Flush()
}

var _ lanewatch.EventSink = (*EventLog)(nil)
