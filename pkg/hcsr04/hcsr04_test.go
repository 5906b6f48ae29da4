package hcsr04

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sonard/pkg/port"
)

// pinRecorder records the levels written to the trigger pin.
type pinRecorder struct {
	mu     sync.Mutex
	levels []bool
}

func (p *pinRecorder) High() { p.record(true) }
func (p *pinRecorder) Low()  { p.record(false) }

func (p *pinRecorder) record(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.levels = append(p.levels, level)
}

func (p *pinRecorder) recorded() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]bool(nil), p.levels...)
}

// newIdleHandler returns a handler whose trigger loop stays quiet after the
// initial pulse, so the tests drive the correlator alone.
func newIdleHandler(t *testing.T) (*Handler, chan port.Event) {
	t.Helper()

	events := make(chan port.Event, distanceBuffer)
	h := New(&pinRecorder{}, events, time.Hour)
	t.Cleanup(func() { _ = h.Close() })

	// drain the cycle signal of the initial pulse
	select {
	case <-h.Cycle:
	case <-time.After(time.Second):
		t.Fatal("no cycle signal after start")
	}

	return h, events
}

func receiveDistance(t *testing.T, h *Handler) float64 {
	t.Helper()

	select {
	case d := <-h.C:
		return d
	case <-time.After(time.Second):
		t.Fatal("no distance")
		return 0
	}
}

func requireNoDistance(t *testing.T, h *Handler) {
	t.Helper()

	select {
	case d := <-h.C:
		t.Fatalf("unexpected distance %v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestDistanceCM checks the round trip to distance conversion against the
// speed of sound.
func TestDistanceCM(t *testing.T) {
	t.Parallel()

	require.Equal(t, 58*0.0343/2.0, DistanceCM(58*time.Microsecond))
	require.Equal(t, 0.0, DistanceCM(0))

	// 30 ms round trip is an echo from beyond the rated range
	require.Greater(t, DistanceCM(30*time.Millisecond), MaxRangeCM)
}

// TestRoundTrip checks that RoundTrip inverts DistanceCM.
func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, cm := range []float64{1, 50, 100, 400} {
		require.InDelta(t, cm, DistanceCM(RoundTrip(cm)), 1e-6)
	}
}

// TestCorrelatePair checks that one rising/falling pair yields exactly one
// distance computed from the timestamp difference.
func TestCorrelatePair(t *testing.T) {
	t.Parallel()

	h, events := newIdleHandler(t)

	events <- port.Event{Timestamp: 1000 * time.Microsecond, Type: port.RisingEdge}
	events <- port.Event{Timestamp: 1058 * time.Microsecond, Type: port.FallingEdge}

	d := receiveDistance(t, h)
	require.Equal(t, DistanceCM(58*time.Microsecond), d)
	require.InDelta(t, 0.9947, d, 0.0001)

	requireNoDistance(t, h)
}

// TestCorrelateStrayFalling checks that a falling edge while no rising edge
// is pending is discarded.
func TestCorrelateStrayFalling(t *testing.T) {
	t.Parallel()

	h, events := newIdleHandler(t)

	events <- port.Event{Timestamp: 500 * time.Microsecond, Type: port.FallingEdge}
	requireNoDistance(t, h)

	// the stray edge must not have disturbed the state machine
	events <- port.Event{Timestamp: 1000 * time.Microsecond, Type: port.RisingEdge}
	events <- port.Event{Timestamp: 2000 * time.Microsecond, Type: port.FallingEdge}
	require.Equal(t, DistanceCM(1000*time.Microsecond), receiveDistance(t, h))
}

// TestCorrelateDoubleRising checks that a second rising edge replaces the
// pending one instead of emitting a distance, so the eventual falling edge
// pairs with the fresher rising edge.
func TestCorrelateDoubleRising(t *testing.T) {
	t.Parallel()

	h, events := newIdleHandler(t)

	events <- port.Event{Timestamp: 1000 * time.Microsecond, Type: port.RisingEdge}
	events <- port.Event{Timestamp: 5000 * time.Microsecond, Type: port.RisingEdge}
	requireNoDistance(t, h)

	events <- port.Event{Timestamp: 5100 * time.Microsecond, Type: port.FallingEdge}
	require.Equal(t, DistanceCM(100*time.Microsecond), receiveDistance(t, h))
}

// TestDistanceDrop checks that distances beyond the channel capacity are
// dropped, not queued, when the consumer does not drain.
func TestDistanceDrop(t *testing.T) {
	t.Parallel()

	h, events := newIdleHandler(t)

	for i := 0; i <= distanceBuffer; i++ {
		base := time.Duration(i) * time.Millisecond
		events <- port.Event{Timestamp: base, Type: port.RisingEdge}
		events <- port.Event{Timestamp: base + time.Duration(i+1)*time.Microsecond, Type: port.FallingEdge}
	}

	// wait until the correlator has seen all edges before draining, so the
	// last pair is correlated against a full channel
	require.Eventually(t, func() bool { return len(events) == 0 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	// the first distanceBuffer pairs fit, the last one is dropped
	for i := 0; i < distanceBuffer; i++ {
		require.Equal(t, DistanceCM(time.Duration(i+1)*time.Microsecond), receiveDistance(t, h))
	}
	requireNoDistance(t, h)
}

// TestTriggerPulse checks that every cycle writes a high/low pulse to the
// trigger pin and announces the cycle.
func TestTriggerPulse(t *testing.T) {
	t.Parallel()

	pin := &pinRecorder{}
	events := make(chan port.Event)
	h := New(pin, events, 10*time.Millisecond)
	defer func() { _ = h.Close() }()

	time.Sleep(100 * time.Millisecond)

	levels := pin.recorded()
	require.GreaterOrEqual(t, len(levels), 4)
	for i, level := range levels {
		require.Equal(t, i%2 == 0, level, "pulse sequence must alternate high/low")
	}
}

// TestCycleSignalBinary checks that unconsumed cycle signals do not pile up:
// after many periods without a consumer exactly one signal is pending.
func TestCycleSignalBinary(t *testing.T) {
	t.Parallel()

	events := make(chan port.Event)
	h := New(&pinRecorder{}, events, 10*time.Millisecond)
	defer func() { _ = h.Close() }()

	time.Sleep(100 * time.Millisecond)

	require.Len(t, h.Cycle, 1)
}

// TestCloseEndsConsumers checks that Close terminates the loops and closes
// the outbound channels so a consumer's receive ends.
func TestCloseEndsConsumers(t *testing.T) {
	t.Parallel()

	events := make(chan port.Event)
	h := New(&pinRecorder{}, events, time.Hour)

	require.NoError(t, h.Close())

	_, open := <-h.C
	require.False(t, open)
}
