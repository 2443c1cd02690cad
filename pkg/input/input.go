// Package input provides the five-button panel and its debouncing
package input

import (
	"context"
	"time"
)

// Source identifies one of the event sources the main loop waits on
type Source int

const (
	Serial Source = iota
	Up
	Down
	Left
	Right
	Select
)

// Buttons lists the button sources in dispatch order
var Buttons = []Source{Up, Down, Left, Right, Select}

// String returns the source name
func (s Source) String() string {
	switch s {
	case Serial:
		return "serial"
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	case Select:
		return "select"
	default:
		return "unknown"
	}
}

// IsButton reports whether the source is one of the five buttons
func (s Source) IsButton() bool {
	return s >= Up && s <= Select
}

// ParseSource returns the button source with the given name
func ParseSource(name string) (Source, bool) {
	for _, s := range Buttons {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// EdgeLine is an edge-triggered digital input. Reading the level rearms
// the edge notification.
type EdgeLine interface {
	Source() Source
	ReadLevel() (int, error)
}

// Edge reports that a line signalled a transition
type Edge struct {
	Source Source
	At     time.Time
}

// Panel is a set of five button lines with a watcher that reports their
// edges
type Panel interface {
	Lines() map[Source]EdgeLine
	Watch(ctx context.Context, out chan<- Edge)
	Close() error
}
