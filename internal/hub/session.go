package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/models"
)

type SessionState int32

const (
	StateDisconnected SessionState = iota
	StateConnected
	StateClosed
)

// Dialer performs the transport handshake for a session. The in-process
// hub does not care about the wire; the websocket layer supplies a real
// dialer, tests supply fakes.
type Dialer interface {
	Dial(ctx context.Context) error
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) error

func (f DialerFunc) Dial(ctx context.Context) error { return f(ctx) }

// NopDialer always succeeds; used for purely in-process sessions.
var NopDialer = DialerFunc(func(context.Context) error { return nil })

// Session is a caretaker connection endpoint. It starts Disconnected;
// subscriptions require a Connected session and do not survive a
// disconnect — the caller re-subscribes after reconnecting and calls
// Latest() to resynchronize, since fixes published during the gap are
// not replayed.
type Session struct {
	id  string
	hub *Hub

	state atomic.Int32

	mu     sync.Mutex
	topics map[string]struct{}

	queue   chan Envelope
	done    chan struct{}
	dropped atomic.Int64
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) isConnected() bool {
	return s.State() == StateConnected
}

// Connect performs the handshake through d, retrying with the given backoff
// schedule. It returns ErrTimeout when ctx expires mid-handshake and
// ErrDisconnected once the retry ceiling is exhausted.
func (s *Session) Connect(ctx context.Context, d Dialer, b Backoff) error {
	if s.State() == StateClosed {
		return models.ErrDisconnected
	}
	if d == nil {
		d = NopDialer
	}

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries(); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctxErr(ctx)
			case <-timeAfter(b.Delay(attempt)):
			}
		}

		if err := d.Dial(ctx); err != nil {
			if ctx.Err() != nil {
				return ctxErr(ctx)
			}
			lastErr = err
			continue
		}
		s.state.Store(int32(StateConnected))
		return nil
	}
	if lastErr != nil {
		return errors.Wrapf(models.ErrDisconnected, "retries exhausted: %v", lastErr)
	}
	return models.ErrDisconnected
}

// Disconnect returns the session to Disconnected and drops every
// subscription it held. Safe to call repeatedly.
func (s *Session) Disconnect() {
	if !s.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		return
	}
	s.dropSubscriptions()
}

// Close terminally disconnects the session. The delivery channel is not
// closed (publishers may still be in flight); consumers watch Done.
func (s *Session) Close() {
	prev := s.state.Swap(int32(StateClosed))
	if SessionState(prev) == StateClosed {
		return
	}
	s.dropSubscriptions()
	close(s.done)
}

// Done is closed when the session is closed for good.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) dropSubscriptions() {
	s.mu.Lock()
	topics := make([]string, 0, len(s.topics))
	for t := range s.topics {
		topics = append(topics, t)
	}
	s.topics = map[string]struct{}{}
	s.mu.Unlock()

	for _, t := range topics {
		s.hub.remove(t, s)
	}
}

func (s *Session) rememberTopic(topic string) {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) forgetTopic(topic string) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

// C is the session's delivery channel. It stays open for the life of the
// process; consumers watch Done to learn the session is gone.
func (s *Session) C() <-chan Envelope {
	return s.queue
}

// Dropped reports how many envelopes were evicted because the queue was
// full.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// deliver enqueues without ever blocking the publisher. On a full queue
// the oldest envelope is evicted first (drop-oldest).
func (s *Session) deliver(env Envelope) {
	if s.State() == StateClosed {
		return
	}
	select {
	case s.queue <- env:
		return
	default:
	}

	select {
	case <-s.queue:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.queue <- env:
	default:
		s.dropped.Add(1)
	}
}

func ctxErr(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return models.ErrTimeout
	}
	return models.ErrDisconnected
}
