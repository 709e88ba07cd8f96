package hub

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/CareTrack/internal/models"
)

func noSleep(t *testing.T) {
	t.Helper()
	orig := timeAfter
	timeAfter = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	t.Cleanup(func() { timeAfter = orig })
}

func TestSession_ConnectRetriesThenSucceeds(t *testing.T) {
	noSleep(t)
	h := New(0)
	s := h.Open()

	attempts := 0
	dial := DialerFunc(func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("refused")
		}
		return nil
	})

	require.NoError(t, s.Connect(context.Background(), dial, Backoff{MaxRetries: 5}))
	require.Equal(t, StateConnected, s.State())
	require.Equal(t, 3, attempts)
}

func TestSession_ConnectExhaustsRetryCeiling(t *testing.T) {
	noSleep(t)
	h := New(0)
	s := h.Open()

	attempts := 0
	dial := DialerFunc(func(ctx context.Context) error {
		attempts++
		return errors.New("refused")
	})

	err := s.Connect(context.Background(), dial, Backoff{MaxRetries: 3})
	require.ErrorIs(t, err, models.ErrDisconnected)
	require.Equal(t, StateDisconnected, s.State())
	require.Equal(t, 4, attempts) // initial try + 3 retries
}

func TestSession_ConnectHonorsDeadline(t *testing.T) {
	h := New(0)
	s := h.Open()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	dial := DialerFunc(func(ctx context.Context) error {
		return errors.New("refused")
	})

	// Real backoff sleeps here; the deadline must cut the wait short.
	err := s.Connect(ctx, dial, Backoff{Base: time.Second, Max: time.Second, MaxRetries: 10})
	require.ErrorIs(t, err, models.ErrTimeout)
}

func TestSession_CloseIsTerminal(t *testing.T) {
	h := New(0)
	s := h.Open()
	mustConnect(t, s)

	s.Close()
	s.Close() // idempotent
	require.Equal(t, StateClosed, s.State())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed")
	}

	require.ErrorIs(t, s.Connect(context.Background(), NopDialer, DefaultBackoff()), models.ErrDisconnected)
}

func TestBackoff_DelayGrowsAndCaps(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Max: 800 * time.Millisecond, MaxRetries: 8}

	for attempt, ceil := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
		4: 800 * time.Millisecond,
		9: 800 * time.Millisecond, // capped
	} {
		for i := 0; i < 20; i++ {
			d := b.Delay(attempt)
			require.GreaterOrEqual(t, d, time.Duration(0))
			require.LessOrEqual(t, d, ceil, "attempt %d", attempt)
		}
	}
}

func TestTopics(t *testing.T) {
	require.Equal(t, "location/p1", LocationTopic("p1"))
	require.Equal(t, "alerts/p1", AlertsTopic("p1"))
}
