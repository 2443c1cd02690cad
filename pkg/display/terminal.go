package display

import (
	"github.com/gdamore/tcell/v2"
)

// TerminalPresenter draws the panel into a tcell screen, two pixel rows
// per terminal cell using half-block characters
type TerminalPresenter struct {
	screen tcell.Screen
	style  tcell.Style
}

// NewTerminalPresenter creates a presenter on an initialized screen
func NewTerminalPresenter(screen tcell.Screen) *TerminalPresenter {
	return &TerminalPresenter{
		screen: screen,
		style: tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorBlack),
	}
}

// Screen returns the underlying tcell screen
func (tp *TerminalPresenter) Screen() tcell.Screen {
	return tp.screen
}

// Show implements Presenter
func (tp *TerminalPresenter) Show(fb *Framebuffer) error {
	width, height := tp.screen.Size()

	// center the panel when the terminal is larger
	offX := (width - Width) / 2
	offY := (height - Height/2) / 2
	if offX < 0 {
		offX = 0
	}
	if offY < 0 {
		offY = 0
	}

	for row := 0; row < Height/2; row++ {
		for x := 0; x < Width; x++ {
			ch := halfBlock(fb.Pixel(x, 2*row), fb.Pixel(x, 2*row+1))
			tp.screen.SetContent(offX+x, offY+row, ch, nil, tp.style)
		}
	}

	tp.screen.Show()
	return nil
}

func halfBlock(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	default:
		return ' '
	}
}
