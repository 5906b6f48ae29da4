// Package raspberry is the gpio capability of the daemon: timestamped edge
// events on watched input lines and level control of output pins.
package raspberry

import (
	"fmt"

	"sonard/pkg/port"
)

var ErrInvalidParam = fmt.Errorf("invalid parameters")

// eventBuffer is the depth of an event line channel. A full buffer drops the
// newest edge; a lost edge heals on the next measurement cycle.
const eventBuffer = 10

// GPIO grants access to the input and output lines of the board.
type GPIO interface {
	// EventLine requests a single line and watches it for edge changes.
	// terminator selects the line bias: pullup, pulldown or none.
	// There can only be one watcher on a line at a time.
	EventLine(offset int, terminator string) (EventLine, error)
	// OutputPin requests a single line as a low initialized output.
	OutputPin(offset int) (OutputPin, error)
	// Close releases the chip. It does not release requested lines and
	// pins - they must be closed independently.
	Close() error
}

// EventLine is a watched input line.
type EventLine interface {
	// Events delivers the edges seen on the line.
	Events() <-chan port.Event
	// Close releases the line and closes the event channel.
	Close() error
}

// OutputPin is a line driven by the daemon.
type OutputPin interface {
	High()
	Low()
	Close() error
}
