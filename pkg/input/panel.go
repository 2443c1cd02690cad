package input

import (
	"context"
	"sync"
)

// combinedPanel reads levels from its primary panel and merges the edges
// of every panel
type combinedPanel struct {
	primary Panel
	others  []Panel
}

// Combine returns a panel whose lines are primary's and whose watcher
// forwards edges from primary and all others. With GPIO buttons as the
// primary, terminal keys keep working as a second way to press them.
func Combine(primary Panel, others ...Panel) Panel {
	return &combinedPanel{primary: primary, others: others}
}

func (p *combinedPanel) Lines() map[Source]EdgeLine {
	return p.primary.Lines()
}

// Watch runs every watcher and returns once all have stopped
func (p *combinedPanel) Watch(ctx context.Context, out chan<- Edge) {
	var wg sync.WaitGroup
	for _, panel := range append([]Panel{p.primary}, p.others...) {
		wg.Add(1)
		go func(panel Panel) {
			defer wg.Done()
			panel.Watch(ctx, out)
		}(panel)
	}
	wg.Wait()
}

func (p *combinedPanel) Close() error {
	firstErr := p.primary.Close()
	for _, panel := range p.others {
		if err := panel.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
