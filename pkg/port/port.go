// Package port holds the edge event model of a physical input line
package port

import "time"

// EventType indicates the type of change to the line level.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates a low to high transition.
	RisingEdge
	// FallingEdge indicates a high to low transition.
	FallingEdge
)

// Event describes a single edge seen on a monitored line.
type Event struct {
	// Timestamp indicates the time the edge was detected.
	// It is a monotonic kernel timestamp; only differences between
	// timestamps of the same line are meaningful.
	Timestamp time.Duration
	// The type of edge this event represents.
	Type EventType
}
