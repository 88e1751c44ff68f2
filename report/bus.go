package report

import (
	"sync"

	"github.com/swdee/go-lanewatch"
)

// EventBus fans frame results out to any number of subscribers.  It
// implements lanewatch.EventSink so it can be attached to Sessions
type EventBus struct {
	subscribers map[*subscription]bool
	mu          sync.RWMutex
}

type subscription struct {
	// streamFilter is empty to receive all streams
	streamFilter string
	channel      chan *lanewatch.FrameResult
	handler      lanewatch.EventSink
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[*subscription]bool),
	}
}

func (b *EventBus) add(sub *subscription) func() {

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		if _, ok := b.subscribers[sub]; ok {
			delete(b.subscribers, sub)
			if sub.channel != nil {
				close(sub.channel)
			}
		}
		b.mu.Unlock()
	}
}

// Subscribe registers a handler for results from all streams.  Returns an
// unsubscribe function
func (b *EventBus) Subscribe(handler lanewatch.EventSink) func() {
	return b.add(&subscription{handler: handler})
}

// SubscribeStream registers a handler for results from a single stream.
// Returns an unsubscribe function
func (b *EventBus) SubscribeStream(streamID string, handler lanewatch.EventSink) func() {
	return b.add(&subscription{streamFilter: streamID, handler: handler})
}

// SubscribeChannel returns a channel receiving results from all streams and
// an unsubscribe function.  Results are dropped when the channel is full
func (b *EventBus) SubscribeChannel(bufferSize int) (<-chan *lanewatch.FrameResult, func()) {

	if bufferSize <= 0 {
		bufferSize = 10
	}

	ch := make(chan *lanewatch.FrameResult, bufferSize)

	return ch, b.add(&subscription{channel: ch})
}

// Publish sends a frame result to all subscribers
func (b *EventBus) Publish(res *lanewatch.FrameResult) {

	if res == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {

		if sub.streamFilter != "" && sub.streamFilter != res.StreamID {
			continue
		}

		// handlers run synchronously so results arrive in frame order
		if sub.handler != nil {
			sub.handler.OnFrameResult(res)
		} else if sub.channel != nil {
			select {
			case sub.channel <- res:
			default:
				// channel full, skip this result
			}
		}
	}
}

// OnFrameResult implements lanewatch.EventSink
func (b *EventBus) OnFrameResult(res *lanewatch.FrameResult) {
	b.Publish(res)
}

// SubscriberCount returns the number of active subscribers
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close unsubscribes all subscribers and closes channels
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		if sub.channel != nil {
			close(sub.channel)
		}
		delete(b.subscribers, sub)
	}
}

var _ lanewatch.EventSink = (*EventBus)(nil)
