package raspberry

import (
	"fmt"
	"sync"
	"time"

	"sonard/pkg/port"
)

// Emulator is a GPIO implementation without hardware behind it. It backs the
// daemon on machines without a gpiochip and the tests everywhere: edges are
// injected instead of measured, output levels are recorded instead of driven.
type Emulator struct {
	mu    sync.Mutex
	start time.Time
	lines map[int]*EmuLine
	pins  map[int]*EmuPin
}

// NewEmulator returns an Emulator with its own monotonic clock base.
func NewEmulator() *Emulator {
	return &Emulator{
		start: time.Now(),
		lines: map[int]*EmuLine{},
		pins:  map[int]*EmuPin{},
	}
}

// Now reads the emulator clock, the timestamp base of injected edges.
func (e *Emulator) Now() time.Duration {
	return time.Since(e.start)
}

// EventLine creates an emulated input line.
func (e *Emulator) EventLine(offset int, terminator string) (EventLine, error) {
	switch terminator {
	case "pullup", "pulldown", "none":
	default:
		return nil, ErrInvalidParam
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.lines[offset]; ok {
		return nil, fmt.Errorf("line %v already used", offset)
	}

	l := &EmuLine{emu: e, C: make(chan port.Event, eventBuffer)}
	e.lines[offset] = l

	return l, nil
}

// OutputPin creates an emulated output pin.
func (e *Emulator) OutputPin(offset int) (OutputPin, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.pins[offset]; ok {
		return nil, fmt.Errorf("pin %v already used", offset)
	}

	p := &EmuPin{}
	e.pins[offset] = p

	return p, nil
}

// Line returns the emulated line at offset, nil if none was requested.
func (e *Emulator) Line(offset int) *EmuLine {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lines[offset]
}

// Pin returns the emulated pin at offset, nil if none was requested.
func (e *Emulator) Pin(offset int) *EmuPin {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pins[offset]
}

// Close forgets all lines and pins. Like the hardware chip it does not close
// them - they must be closed independently.
func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lines = map[int]*EmuLine{}
	e.pins = map[int]*EmuPin{}

	return nil
}

// EmuLine is an emulated input line.
type EmuLine struct {
	emu *Emulator
	// C receives the injected edges.
	C chan port.Event
}

// Edge injects an edge stamped with the emulator clock.
func (l *EmuLine) Edge(t port.EventType) {
	l.EdgeAt(t, time.Since(l.emu.start))
}

// EdgeAt injects an edge with an explicit timestamp. Like the hardware event
// handler it never blocks: when C is full the edge is dropped.
func (l *EmuLine) EdgeAt(t port.EventType, ts time.Duration) {
	select {
	case l.C <- port.Event{Timestamp: ts, Type: t}:
	default:
	}
}

// Events delivers the injected edges.
func (l *EmuLine) Events() <-chan port.Event {
	return l.C
}

// Close closes the event channel. No edge must be injected afterwards.
func (l *EmuLine) Close() error {
	close(l.C)
	return nil
}

// EmuPin is an emulated output pin. It records the last written level, and a
// watcher can react to level changes, so a simulated device can answer
// trigger pulses.
type EmuPin struct {
	mu      sync.Mutex
	level   bool
	watcher func(level bool)
}

// High sets the recorded level high.
func (p *EmuPin) High() {
	p.set(true)
}

// Low sets the recorded level low.
func (p *EmuPin) Low() {
	p.set(false)
}

// Level reports the recorded level.
func (p *EmuPin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.level
}

// Watch registers a handler called after every level change, on the
// goroutine writing the pin.
func (p *EmuPin) Watch(handler func(level bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.watcher = handler
}

func (p *EmuPin) Close() error {
	return nil
}

func (p *EmuPin) set(level bool) {
	p.mu.Lock()
	p.level = level
	watcher := p.watcher
	p.mu.Unlock()

	if watcher != nil {
		watcher(level)
	}
}
