package input

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"
)

// keyLine stands in for a button driven by the terminal keyboard. A key
// event is a completed press, so the level always reads high.
type keyLine struct {
	source Source
}

func (l keyLine) Source() Source { return l.source }

func (l keyLine) ReadLevel() (int, error) { return 1, nil }

// KeyPanel maps terminal keys onto the five buttons so the console can be
// driven without the hardware panel
type KeyPanel struct {
	screen      tcell.Screen
	onInterrupt func()
}

// NewKeyPanel creates a key panel reading events from screen. onInterrupt
// is called for Ctrl+C, which raw mode keeps from becoming a signal.
func NewKeyPanel(screen tcell.Screen, onInterrupt func()) *KeyPanel {
	return &KeyPanel{
		screen:      screen,
		onInterrupt: onInterrupt,
	}
}

// Lines returns one always-high line per button
func (p *KeyPanel) Lines() map[Source]EdgeLine {
	lines := make(map[Source]EdgeLine, len(Buttons))
	for _, src := range Buttons {
		lines[src] = keyLine{source: src}
	}
	return lines
}

// KeySource returns the button a key event stands for
func KeySource(ev *tcell.EventKey) (Source, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return Up, true
	case tcell.KeyDown:
		return Down, true
	case tcell.KeyLeft:
		return Left, true
	case tcell.KeyRight:
		return Right, true
	case tcell.KeyEnter:
		return Select, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			return Select, true
		case 'k':
			return Up, true
		case 'j':
			return Down, true
		case 'h':
			return Left, true
		case 'l':
			return Right, true
		}
	}
	return 0, false
}

// Watch forwards key presses as edges until the screen is finalized or
// ctx is done
func (p *KeyPanel) Watch(ctx context.Context, out chan<- Edge) {
	for {
		ev := p.screen.PollEvent()
		if ev == nil {
			return
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC {
				log.Debug().Msg("interrupt key pressed")
				if p.onInterrupt != nil {
					p.onInterrupt()
				}
				continue
			}

			src, ok := KeySource(ev)
			if !ok {
				continue
			}

			select {
			case out <- Edge{Source: src, At: time.Now()}:
			case <-ctx.Done():
				return
			}
		case *tcell.EventResize:
			p.screen.Sync()
		}
	}
}

// Close does nothing; the screen belongs to the display
func (p *KeyPanel) Close() error {
	return nil
}
