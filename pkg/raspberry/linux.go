//go:build linux

package raspberry

import (
	"github.com/warthog618/gpio"
	"github.com/warthog618/gpiod"

	"sonard/pkg/port"
)

// Chip represents the GPIO of the board. Edge events come from the gpiochip
// character device, so their timestamps are stamped in the kernel, close to
// the interrupt. Outputs go through the memory mapped registers instead; a
// syscall per level change would stretch a 10 µs pulse noticeably.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Open opens the GPIO character device and maps the GPIO registers.
func Open(chip string) (GPIO, error) {
	c, err := gpiod.NewChip(chip)
	if err != nil {
		return nil, err
	}

	if err = gpio.Open(); err != nil {
		_ = c.Close()
		return nil, err
	}

	return &Chip{gpiodChip: c}, nil
}

// Close releases the chip and unmaps the GPIO registers.
func (c *Chip) Close() error {
	if err := gpio.Close(); err != nil {
		return err
	}

	return c.gpiodChip.Close()
}

// Line is a single requested event line.
type Line struct {
	gpiodLine *gpiod.Line
	// C receives the edges seen on the line.
	C chan port.Event
}

// EventLine requests control of a single line on the chip and watches it for
// edge changes on both edges.
func (c *Chip) EventLine(offset int, terminator string) (EventLine, error) {
	line := &Line{C: make(chan port.Event, eventBuffer)}

	// handler runs on the event goroutine of the chip and must never
	// block: when C is full the edge is dropped.
	handler := func(evt gpiod.LineEvent) {
		e := port.Event{Timestamp: evt.Timestamp}

		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			e.Type = port.RisingEdge
		case gpiod.LineEventFallingEdge:
			e.Type = port.FallingEdge
		default:
			return
		}

		select {
		case line.C <- e:
		default:
		}
	}

	var err error

	switch terminator {
	case "pullup":
		line.gpiodLine, err = c.gpiodChip.RequestLine(offset, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullUp)
	case "pulldown":
		line.gpiodLine, err = c.gpiodChip.RequestLine(offset, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullDown)
	case "none":
		line.gpiodLine, err = c.gpiodChip.RequestLine(offset, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput)
	default:
		return nil, ErrInvalidParam
	}

	if err != nil {
		return nil, err
	}

	return line, nil
}

// Events delivers the edges seen on the line.
func (l *Line) Events() <-chan port.Event {
	return l.C
}

// Close releases all resources held by the line.
//
// Close waits for a running event handler to return, so it must not be
// called from the context of the handler.
func (l *Line) Close() error {
	if err := l.gpiodLine.Close(); err != nil {
		return err
	}

	close(l.C)

	return nil
}

// Pin is a single output pin driven through the memory mapped registers.
type Pin struct {
	gpioPin *gpio.Pin
}

// OutputPin configures a pin as output, initially low.
func (c *Chip) OutputPin(offset int) (OutputPin, error) {
	p := gpio.NewPin(offset)
	p.Output()
	p.Low()

	return &Pin{gpioPin: p}, nil
}

// High sets the pin high.
func (p *Pin) High() {
	p.gpioPin.High()
}

// Low sets the pin low.
func (p *Pin) Low() {
	p.gpioPin.Low()
}

// Close returns the pin to input mode.
func (p *Pin) Close() error {
	p.gpioPin.Input()
	return nil
}
