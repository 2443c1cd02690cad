// Package history writes a transcript of the console session
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Direction represents the direction of data flow
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// MarshalText encodes the direction by name
func (d Direction) MarshalText() ([]byte, error) {
	switch d {
	case DirectionInput, DirectionOutput:
		return []byte(d.String()), nil
	default:
		return nil, fmt.Errorf("unknown direction: %d", int(d))
	}
}

// UnmarshalText decodes a direction name
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "input":
		*d = DirectionInput
	case "output":
		*d = DirectionOutput
	default:
		return fmt.Errorf("unknown direction: %s", text)
	}
	return nil
}

// FileFormat represents the transcript line format
type FileFormat int

const (
	FormatPlainText FileFormat = iota
	FormatTimestamped
	FormatJSON
)

// String returns the string representation of FileFormat
func (f FileFormat) String() string {
	switch f {
	case FormatPlainText:
		return "plain_text"
	case FormatTimestamped:
		return "timestamped"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFileFormat returns the format with the given name
func ParseFileFormat(name string) (FileFormat, error) {
	for _, f := range []FileFormat{FormatPlainText, FormatTimestamped, FormatJSON} {
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown transcript format: %s", name)
}

// Entry is one transcript record: a console line from the device or a
// command sent to it
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
}

// Validate checks if the entry is valid
func (e Entry) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp cannot be zero")
	}

	if e.Direction != DirectionInput && e.Direction != DirectionOutput {
		return fmt.Errorf("invalid direction: %v", e.Direction)
	}

	return nil
}

// Transcript appends entries to a writer. It is write-only; nothing reads
// a transcript back into the console.
type Transcript struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	format FileFormat
	now    func() time.Time
	count  int
}

// NewTranscript creates a transcript writing to w
func NewTranscript(w io.Writer, format FileFormat) *Transcript {
	return &Transcript{
		w:      w,
		format: format,
		now:    time.Now,
	}
}

// OpenTranscript appends a transcript to the named file
func OpenTranscript(filename string, format FileFormat) (*Transcript, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}

	t := NewTranscript(file, format)
	t.closer = file
	return t, nil
}

// Write records one line
func (t *Transcript) Write(text string, direction Direction) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := Entry{
		Timestamp: t.now(),
		Direction: direction,
		Text:      text,
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	var err error
	switch t.format {
	case FormatPlainText:
		_, err = io.WriteString(t.w, text+"\n")
	case FormatTimestamped:
		err = writeTimestamped(t.w, entry)
	case FormatJSON:
		err = json.NewEncoder(t.w).Encode(entry)
	default:
		return fmt.Errorf("unsupported format: %v", t.format)
	}
	if err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	t.count++
	return nil
}

// Console records a line shown on the console
func (t *Transcript) Console(line string) error {
	return t.Write(line, DirectionInput)
}

// Sent records a command written to the device
func (t *Transcript) Sent(command string) error {
	return t.Write(command, DirectionOutput)
}

// Count returns the number of entries written
func (t *Transcript) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Close closes the transcript file, if the transcript owns one
func (t *Transcript) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

func writeTimestamped(w io.Writer, entry Entry) error {
	direction := "<<"
	if entry.Direction == DirectionOutput {
		direction = ">>"
	}

	_, err := fmt.Fprintf(w, "[%s] %s %s\n",
		entry.Timestamp.Format("2006-01-02 15:04:05.000"),
		direction,
		strings.ReplaceAll(entry.Text, "\n", "\\n"))
	return err
}
