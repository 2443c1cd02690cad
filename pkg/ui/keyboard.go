package ui

import (
	"io"

	"github.com/rs/zerolog/log"
	"quietude/pkg/display"
	"quietude/pkg/input"
)

// Grid is the keyboard layout, row-major
var Grid = [6]string{
	"ABCDEF^",
	"GHIJKLv",
	"MNOPQR<",
	"STUVWX.",
	"YZ0123_",
	"456789@",
}

const (
	GridCols = 7
	GridRows = len(Grid)

	cellWidth = 12
	gridX     = (display.Width - GridCols*cellWidth) / 2
	gridY     = 12

	commandCols = display.Width / display.CharWidth
)

// KeyboardInput composes a command on the grid and sends it to the device
type KeyboardInput struct {
	peer io.Writer

	// OnSend, when set, is called with each command written to the device
	OnSend func(command string)
}

// NewKeyboardInput creates a keyboard that submits commands to peer
func NewKeyboardInput(peer io.Writer) *KeyboardInput {
	return &KeyboardInput{peer: peer}
}

// Symbol returns the grid symbol under the cursor
func Symbol(c Cursor) byte {
	return Grid[c.Row][c.Col]
}

// Handle applies one button activation in keyboard mode
func (k *KeyboardInput) Handle(ctx *Context, src input.Source) {
	switch src {
	case input.Up:
		ctx.Cursor.Row = (ctx.Cursor.Row + GridRows - 1) % GridRows
	case input.Down:
		ctx.Cursor.Row = (ctx.Cursor.Row + 1) % GridRows
	case input.Left:
		ctx.Cursor.Col = (ctx.Cursor.Col + GridCols - 1) % GridCols
	case input.Right:
		ctx.Cursor.Col = (ctx.Cursor.Col + 1) % GridCols
	case input.Select:
		k.commit(ctx, Symbol(ctx.Cursor))
	}
}

func (k *KeyboardInput) commit(ctx *Context, sym byte) {
	switch {
	case sym >= 'A' && sym <= 'Z':
		if appendByte(ctx, sym) {
			ctx.Cursor = ShortcutCell
		}
	case sym >= '0' && sym <= '9', sym == '.':
		appendByte(ctx, sym)
	case sym == '_':
		appendByte(ctx, ' ')
	case sym == '^', sym == 'v':
		deleteBytes(ctx, 1)
	case sym == '<':
		deleteBytes(ctx, 2)
	case sym == '@':
		k.submit(ctx)
	}
}

func (k *KeyboardInput) submit(ctx *Context) {
	command := string(ctx.Command)

	if _, err := io.WriteString(k.peer, command+"\n"); err != nil {
		log.Error().Err(err).Str("command", command).Msg("failed to send command")
	} else {
		log.Debug().Str("command", command).Msg("command sent")
	}

	if k.OnSend != nil {
		k.OnSend(command)
	}

	ctx.Console(command)
	ctx.Command = ctx.Command[:0]
	ctx.EnterConsole()
}

// appendByte reports whether b fit in the command
func appendByte(ctx *Context, b byte) bool {
	if len(ctx.Command) >= MaxCommandLength {
		return false
	}
	ctx.Command = append(ctx.Command, b)
	return true
}

func deleteBytes(ctx *Context, n int) {
	if n > len(ctx.Command) {
		n = len(ctx.Command)
	}
	ctx.Command = ctx.Command[:len(ctx.Command)-n]
}

// Render draws the command line above the grid with the cursor cell
// inverted
func (k *KeyboardInput) Render(ctx *Context, s display.Surface) {
	s.Clear(display.Off)

	command := ctx.Command
	if len(command) > commandCols {
		command = command[len(command)-commandCols:]
	}
	s.DrawString(0, 0, display.On, string(command))
	s.DrawLine(0, display.LineHeight+1, display.Width-1, display.LineHeight+1, display.On)

	for row := 0; row < GridRows; row++ {
		for col := 0; col < GridCols; col++ {
			x := gridX + col*cellWidth
			y := gridY + row*display.LineHeight
			c := display.On

			if ctx.Cursor.Row == row && ctx.Cursor.Col == col {
				s.DrawRect(x, y, x+cellWidth-1, y+display.LineHeight-1, display.On)
				c = display.Off
			}

			s.DrawChar(x+(cellWidth-display.CharWidth)/2, y, c, Grid[row][col])
		}
	}
}
