package lanewatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/swdee/go-lanewatch/region"
)

// ErrPoolClosed is returned when taking a Session from a closed Pool
var ErrPoolClosed = errors.New("session pool closed")

// Pool is a simple pool of Sessions sharing the same params and regions, used
// to bound the number of streams processed in parallel
type Pool struct {
	// pool of sessions
	sessions chan *Session
	// size of pool
	size int
	// mu guards closed and sends on sessions
	mu     sync.Mutex
	closed bool
}

// NewPool creates a new session pool
func NewPool(size int, params Params, regions *region.Set, opts ...SessionOption) (*Pool, error) {

	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	p := &Pool{
		sessions: make(chan *Session, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		s, err := NewSession(params, regions, opts...)

		if err != nil {
			p.Close()
			return nil, err
		}

		// attach to pool
		p.sessions <- s
	}

	return p, nil
}

// Size returns the number of Sessions in the pool
func (p *Pool) Size() int {
	return p.size
}

// Get takes a Session from the pool, blocking until one is available or the
// context is done
func (p *Pool) Get(ctx context.Context) (*Session, error) {
	select {
	case s, ok := <-p.sessions:
		if !ok {
			return nil, ErrPoolClosed
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Return a Session to the pool.  The Session is reset and given a fresh
// stream ID so no tracks leak between streams
func (p *Pool) Return(s *Session) {

	s.Reset()
	s.SetID(uuid.NewString())

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	select {
	case p.sessions <- s:
	default:
		// pool is full
	}
}

// Close the pool, Sessions already taken are dropped when returned
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.sessions)

	for range p.sessions {
	}
}

// StreamFunc processes one stream using a Session held for its whole duration
type StreamFunc func(ctx context.Context, stream int, s *Session) error

// RunStreams processes n independent streams in parallel, bounded by the
// pool size.  The first error cancels the context of the remaining streams
// and is returned
func RunStreams(ctx context.Context, pool *Pool, n int, fn StreamFunc) error {

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pool.Size())

	for i := 0; i < n; i++ {
		stream := i

		g.Go(func() error {
			s, err := pool.Get(ctx)
			if err != nil {
				return err
			}

			defer pool.Return(s)

			if err := fn(ctx, stream, s); err != nil {
				return fmt.Errorf("stream %d: %w", stream, err)
			}

			return nil
		})
	}

	return g.Wait()
}
