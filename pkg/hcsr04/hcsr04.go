// Package hcsr04 drives an HC-SR04 ultrasonic ranging sensor: it paces the
// measurement cycles on the trigger line and correlates the echo line's edge
// events into distances.
//
// One cycle: a short pulse on TRIG makes the sensor emit an ultrasonic burst
// and raise ECHO until the reflection returns, so the width of the echo pulse
// is the round trip time of the burst.
package hcsr04

import (
	"time"

	"sonard/pkg/port"
)

const (
	// MaxRangeCM is the rated maximum range of the sensor. Echos from
	// farther away are reflections the sensor cannot vouch for.
	MaxRangeCM = 400.0

	// soundSpeed is the speed of sound in cm/µs in air at around 20 °C.
	soundSpeed = 0.0343

	// triggerPulse is the minimum width of the pulse that makes the
	// sensor fire a burst.
	triggerPulse = 10 * time.Microsecond

	// distanceBuffer is the depth of the distance channel.
	distanceBuffer = 10
)

// TriggerPin drives the TRIG input of the sensor.
type TriggerPin interface {
	High()
	Low()
}

// Handler paces the trigger line and converts the echo line's edge stream
// into distances.
type Handler struct {
	trig   TriggerPin
	rx     <-chan port.Event
	period time.Duration

	// C delivers one distance in cm per completed echo. When the
	// consumer has not drained the channel in time, new distances are
	// dropped.
	C chan float64

	// Cycle signals the start of a measurement cycle. It is a binary
	// signal: an unconsumed signal stays pending until consumed, further
	// signals are discarded rather than queued up.
	Cycle chan struct{}

	// rising is the timestamp of the pending rising edge, valid only
	// while armed is set. Owned by the correlate goroutine alone.
	rising time.Duration
	armed  bool

	quit chan struct{}
	done chan struct{}
}

// New starts a handler on the given trigger pin and echo event stream. Every
// period it fires a trigger pulse and signals Cycle; completed echos arrive
// on C.
func New(trig TriggerPin, events <-chan port.Event, period time.Duration) *Handler {
	h := &Handler{
		trig:   trig,
		rx:     events,
		period: period,
		C:      make(chan float64, distanceBuffer),
		Cycle:  make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}, 2),
	}

	go h.trigger()
	go h.correlate()

	return h
}

// Close stops both loops and closes C and Cycle, ending the consumer's wait.
func (h *Handler) Close() error {
	close(h.quit)

	// wait until trigger() and correlate() are terminated
	<-h.done
	<-h.done

	close(h.C)
	close(h.Cycle)

	return nil
}

// trigger fires the excitation pulse once per period and announces the
// cycle. The loop is open: measurement results never feed back into the
// timing.
func (h *Handler) trigger() {
	defer func() { h.done <- struct{}{} }()

	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	for {
		h.pulse()

		select {
		case h.Cycle <- struct{}{}:
		default:
			// the previous signal is still standing, this one is lost
		}

		select {
		case <-h.quit:
			return
		case <-ticker.C:
		}
	}
}

// pulse holds TRIG high for the 10 µs the sensor needs to fire a burst.
// Oversleeping is harmless, the sensor wants a minimum width, not an exact
// one.
func (h *Handler) pulse() {
	h.trig.High()
	time.Sleep(triggerPulse)
	h.trig.Low()
}

// correlate consumes the edge stream and pairs one rising with one falling
// edge per cycle. It blocks on the stream without a timeout: a silent line
// means no event, which only the consumer's deadline notices.
func (h *Handler) correlate() {
	defer func() { h.done <- struct{}{} }()

	for {
		select {
		case <-h.quit:
			return
		case evt, open := <-h.rx:
			if !open {
				return
			}

			h.edge(evt)
		}
	}
}

// edge advances the rising/falling state machine.
//
// Edges carry no cycle tag: should the consumer ever fall a full cycle
// behind, a rising edge of one cycle can pair with the falling edge of the
// next. With the cycle period far above the consume window this does not
// happen in practice.
func (h *Handler) edge(evt port.Event) {
	switch evt.Type {
	case port.RisingEdge:
		// a second rising edge means the falling edge was lost;
		// restart from the fresher one
		h.rising = evt.Timestamp
		h.armed = true
	case port.FallingEdge:
		if !h.armed {
			// the echo never started, stray edge
			return
		}

		h.armed = false

		select {
		case h.C <- DistanceCM(evt.Timestamp - h.rising):
		default:
		}
	}
}

// DistanceCM converts a round trip time into a distance in centimeters. The
// sound travels the distance twice.
func DistanceCM(roundTrip time.Duration) float64 {
	us := float64(roundTrip) / float64(time.Microsecond)
	return us * soundSpeed / 2
}

// RoundTrip is the inverse of DistanceCM: the echo pulse width a reflector at
// the given distance produces.
func RoundTrip(cm float64) time.Duration {
	return time.Duration(cm * 2 / soundSpeed * float64(time.Microsecond))
}
