// Package ui provides the two panel modes: the scrolling console and the
// on-screen keyboard used to compose commands
package ui

import (
	"quietude/pkg/display"
	"quietude/pkg/input"
	"quietude/pkg/scrollback"
)

// Mode selects which view owns the directional buttons
type Mode int

const (
	ModeConsole Mode = iota
	ModeKeyboard
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeConsole:
		return "console"
	case ModeKeyboard:
		return "keyboard"
	default:
		return "unknown"
	}
}

// VisibleLines is the number of scrollback lines shown at once
const VisibleLines = display.Height / display.LineHeight

// MaxCommandLength bounds the composed text so that text plus the submit
// newline fits in one 255-byte device line
const MaxCommandLength = 254

// Cursor is a cell on the keyboard grid
type Cursor struct {
	Col int
	Row int
}

var (
	// HomeCell is where the cursor starts on entering the keyboard (G)
	HomeCell = Cursor{Col: 0, Row: 1}

	// ShortcutCell is where the cursor jumps after a letter (0), since
	// commands are mostly a letter followed by a number
	ShortcutCell = Cursor{Col: 2, Row: 4}
)

// Context is the console state. It is owned by the main loop and passed
// by reference to the views.
type Context struct {
	Scrollback  *scrollback.Buffer
	ScrollPos   int
	Command     []byte
	Cursor      Cursor
	Mode        Mode
	ClearToSend bool
	EOF         bool

	// Mirror, when set, receives every line inserted into the scrollback
	Mirror func(line string)
}

// NewContext creates the startup state: empty scrollback scrolled to the
// newest page, console mode
func NewContext() *Context {
	return &Context{
		Scrollback: scrollback.NewBuffer(),
		ScrollPos:  scrollback.Capacity - VisibleLines,
		Command:    make([]byte, 0, MaxCommandLength+1),
		Cursor:     HomeCell,
		Mode:       ModeConsole,
	}
}

// Console writes text into the scrollback and mirrors the inserted lines
func (c *Context) Console(text string) {
	for _, line := range scrollback.WriteConsole(c.Scrollback, text) {
		if c.Mirror != nil {
			c.Mirror(line)
		}
	}
}

// EnterKeyboard switches to keyboard mode with an empty command and the
// cursor on its home cell
func (c *Context) EnterKeyboard() {
	c.Mode = ModeKeyboard
	c.Command = c.Command[:0]
	c.Cursor = HomeCell
}

// EnterConsole switches back to the console. The scroll position is kept.
func (c *Context) EnterConsole() {
	c.Mode = ModeConsole
}

// View is one panel mode
type View interface {
	Handle(ctx *Context, src input.Source)
	Render(ctx *Context, s display.Surface)
}
