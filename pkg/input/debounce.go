package input

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultDebounceDelay is how long a button must settle before it counts
const DefaultDebounceDelay = 150 * time.Millisecond

// Debouncer turns raw edges into confirmed button activations.
//
// An edge reads and discards the line level, then arms a settle deadline
// for that source. When the deadline passes the level is read again and
// the activation is released. Further edges inside the window are read
// and dropped. Nothing here sleeps: the caller waits on NextDeadline
// together with its other event sources.
type Debouncer struct {
	delay   time.Duration
	lines   map[Source]EdgeLine
	pending map[Source]time.Time
}

// NewDebouncer creates a debouncer over the given lines
func NewDebouncer(delay time.Duration, lines map[Source]EdgeLine) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{
		delay:   delay,
		lines:   lines,
		pending: make(map[Source]time.Time),
	}
}

// Delay returns the settle delay
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Edge records a transition on src at now. It returns false when the edge
// fell inside an open settle window and was dropped.
func (d *Debouncer) Edge(src Source, now time.Time) bool {
	d.readLevel(src)

	if _, ok := d.pending[src]; ok {
		log.Debug().Stringer("source", src).Msg("bounce dropped")
		return false
	}

	d.pending[src] = now.Add(d.delay)
	return true
}

// Pending reports whether src is inside its settle window
func (d *Debouncer) Pending(src Source) bool {
	_, ok := d.pending[src]
	return ok
}

// NextDeadline returns the earliest settle deadline, if any
func (d *Debouncer) NextDeadline() (time.Time, bool) {
	var next time.Time
	found := false

	for _, deadline := range d.pending {
		if !found || deadline.Before(next) {
			next = deadline
			found = true
		}
	}

	return next, found
}

// Due confirms every source whose deadline has passed at now and returns
// them in dispatch order
func (d *Debouncer) Due(now time.Time) []Source {
	var due []Source

	for src, deadline := range d.pending {
		if !deadline.After(now) {
			due = append(due, src)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })

	for _, src := range due {
		delete(d.pending, src)
		d.readLevel(src)
	}

	return due
}

func (d *Debouncer) readLevel(src Source) {
	line, ok := d.lines[src]
	if !ok {
		return
	}

	if _, err := line.ReadLevel(); err != nil {
		log.Debug().Err(err).Stringer("source", src).Msg("failed to read line level")
	}
}
