package serial

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// MaxLineLength is the longest line delivered in one piece; longer runs
// without a newline arrive as several lines
const MaxLineLength = 255

// LineReader reads the device output one line at a time
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader creates a line reader over the device stream
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(idleReader{r}, 4096)}
}

// idleReader retries reads that return no data and no error. A port with
// a read timeout returns (0, nil) on every tick of an idle link.
type idleReader struct {
	r io.Reader
}

func (ir idleReader) Read(p []byte) (int, error) {
	for {
		n, err := ir.r.Read(p)
		if n > 0 || err != nil || len(p) == 0 {
			return n, err
		}
	}
}

// ReadLine returns the next line without its terminator. A final line cut
// short by end-of-stream is returned on its own; the following call
// reports the end.
func (lr *LineReader) ReadLine() (string, error) {
	var sb strings.Builder

	for sb.Len() < MaxLineLength {
		b, err := lr.r.ReadByte()
		if err != nil {
			if sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}

		if b == '\n' {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}

	return sb.String(), nil
}

// LineEvent is one line read from the device. A non-nil Err marks the end
// of the stream; io.EOF for a clean close.
type LineEvent struct {
	Line string
	Err  error
}

// EOF reports whether the event ends the stream
func (e LineEvent) EOF() bool {
	return e.Err != nil
}

// Run reads lines until the stream ends or ctx is done, handing each to
// out. The last event sent carries the error that ended the stream.
func (lr *LineReader) Run(ctx context.Context, out chan<- LineEvent) {
	for {
		line, err := lr.ReadLine()

		ev := LineEvent{Line: line, Err: err}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}

		if err != nil {
			return
		}
	}
}

// FilterResult is what the console does with one device line
type FilterResult struct {
	Text        string
	Show        bool
	ClearToSend bool
}

// FilterLine applies the console output rules to a device line: "start"
// and "ok" acknowledgements are hidden and mark the device ready,
// "echo:" and "//" debug prefixes are dropped, and leading whitespace is
// trimmed.
func FilterLine(line string) FilterResult {
	line = strings.TrimRight(line, "\r\n")

	if strings.HasPrefix(line, "start") || strings.HasPrefix(line, "ok") {
		return FilterResult{ClearToSend: true}
	}

	if rest, ok := strings.CutPrefix(line, "echo:"); ok {
		line = rest
	} else if rest, ok := strings.CutPrefix(line, "//"); ok {
		line = rest
	}

	line = strings.TrimLeft(line, " \t\n\v\f\r")

	return FilterResult{
		Text: line,
		Show: line != "",
	}
}
