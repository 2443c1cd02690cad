package ui

import (
	"github.com/rs/zerolog/log"
	"quietude/pkg/display"
	"quietude/pkg/input"
	"quietude/pkg/scrollback"
)

const (
	scrollbarX = 120
	dividerX   = 121
	labelX     = 123
	label      = "C\nO\nN\nS\nO\nL\nE"
)

// ConsoleView shows the scrollback and scrolls it with up and down
type ConsoleView struct{}

// NewConsoleView creates the console view
func NewConsoleView() *ConsoleView {
	return &ConsoleView{}
}

// Handle applies one button activation in console mode
func (v *ConsoleView) Handle(ctx *Context, src input.Source) {
	switch src {
	case input.Up:
		if ctx.ScrollPos > scrollback.Capacity-ctx.Scrollback.Count() {
			ctx.ScrollPos--
		}
	case input.Down:
		if ctx.ScrollPos < scrollback.Capacity-VisibleLines {
			ctx.ScrollPos++
		}
	case input.Select:
		ctx.EnterKeyboard()
		log.Debug().Msg("keyboard mode")
	default:
		// left and right are not used on the console
	}
}

// Render draws the visible page, the scrollbar and the mode label
func (v *ConsoleView) Render(ctx *Context, s display.Surface) {
	s.Clear(display.Off)

	for i := 0; i < VisibleLines; i++ {
		line := ctx.Scrollback.Line(ctx.ScrollPos + i)
		if line != "" {
			s.DrawString(0, i*display.LineHeight, display.On, line)
		}
	}

	if top, bottom, ok := scrollThumb(ctx.ScrollPos, ctx.Scrollback.Count()); ok {
		s.DrawLine(scrollbarX, top, scrollbarX, bottom, display.On)
	}

	s.DrawLine(dividerX, 0, dividerX, display.Height-1, display.On)
	s.DrawString(labelX, 0, display.On, label)

	if ctx.ClearToSend {
		s.DrawRect(labelX+1, display.Height-4, labelX+3, display.Height-2, display.On)
	}
}

// scrollThumb returns the rows covered by the scrollbar thumb. There is no
// thumb while the scrollback is empty.
func scrollThumb(pos, count int) (top, bottom int, ok bool) {
	if count == 0 {
		return 0, 0, false
	}

	extent := display.Height * VisibleLines / count
	if extent > display.Height {
		extent = display.Height
	}
	if extent < 1 {
		extent = 1
	}

	top = display.Height * (pos - (scrollback.Capacity - count)) / count
	if top < 0 {
		top = 0
	}
	if top+extent > display.Height {
		top = display.Height - extent
	}

	return top, top + extent - 1, true
}
