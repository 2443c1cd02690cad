// Package scrollback provides the bounded line log shown on the console panel
package scrollback

import (
	"strings"
)

const (
	// Capacity is the number of lines kept before the oldest is evicted
	Capacity = 256

	// ConsoleWidth is the maximum number of characters in one line
	ConsoleWidth = 20
)

// Buffer is a fixed-capacity, insertion-ordered log of console lines.
//
// Lines are addressed by position: Capacity-1 is the newest line and
// Capacity-Count() is the oldest one still stored. Positions below that
// hold empty lines.
type Buffer struct {
	lines [Capacity]string
	head  int // slot the next push writes, which is also the oldest slot once full
	count int
}

// NewBuffer creates an empty scrollback buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Push inserts one line, evicting the oldest once the buffer is full.
// Text longer than ConsoleWidth is truncated.
func (b *Buffer) Push(line string) {
	if len(line) > ConsoleWidth {
		line = line[:ConsoleWidth]
	}

	b.lines[b.head] = line
	b.head = (b.head + 1) % Capacity

	if b.count < Capacity {
		b.count++
	}
}

// Line returns the line at the given position, or "" when out of range
func (b *Buffer) Line(pos int) string {
	if pos < 0 || pos >= Capacity {
		return ""
	}
	return b.lines[(b.head+pos)%Capacity]
}

// Lines returns the stored lines, oldest first
func (b *Buffer) Lines() []string {
	out := make([]string, 0, b.count)
	for pos := Capacity - b.count; pos < Capacity; pos++ {
		out = append(out, b.Line(pos))
	}
	return out
}

// Count returns the number of lines inserted, capped at Capacity
func (b *Buffer) Count() int {
	return b.count
}

// Len returns the number of lines currently stored
func (b *Buffer) Len() int {
	return b.count
}

// Capacity returns the maximum number of stored lines
func (b *Buffer) Capacity() int {
	return Capacity
}

// Newest returns the most recently pushed line
func (b *Buffer) Newest() (string, bool) {
	if b.count == 0 {
		return "", false
	}
	return b.Line(Capacity - 1), true
}

// WriteConsole splits text into chunks of at most ConsoleWidth characters
// and pushes each one. It returns the chunks that were inserted.
//
// A chunk made only of whitespace is not inserted and ends the write: any
// text after it is dropped rather than trimmed.
func WriteConsole(b *Buffer, text string) []string {
	var written []string

	for len(text) > 0 {
		n := len(text)
		if n > ConsoleWidth {
			n = ConsoleWidth
		}
		chunk := text[:n]
		text = text[n:]

		if isBlank(chunk) {
			break
		}

		b.Push(chunk)
		written = append(written, chunk)
	}

	return written
}

func isBlank(s string) bool {
	return strings.TrimLeft(s, " \t\n\v\f\r") == ""
}
