package input

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedPanel emits a fixed list of edges, then waits for ctx
type scriptedPanel struct {
	lines    map[Source]EdgeLine
	edges    []Source
	closeErr error
	closed   bool
}

func (p *scriptedPanel) Lines() map[Source]EdgeLine { return p.lines }

func (p *scriptedPanel) Watch(ctx context.Context, out chan<- Edge) {
	for _, src := range p.edges {
		select {
		case out <- Edge{Source: src, At: time.Now()}:
		case <-ctx.Done():
			return
		}
	}
	<-ctx.Done()
}

func (p *scriptedPanel) Close() error {
	p.closed = true
	return p.closeErr
}

func TestCombine(t *testing.T) {
	lines, _ := fakeLines()
	primary := &scriptedPanel{lines: lines, edges: []Source{Up}}
	keys := &scriptedPanel{edges: []Source{Select}, closeErr: errors.New("busy")}

	panel := Combine(primary, keys)

	if len(panel.Lines()) != len(lines) {
		t.Errorf("Lines() should come from the primary panel")
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Edge, 4)
	done := make(chan struct{})
	go func() {
		panel.Watch(ctx, out)
		close(done)
	}()

	seen := make(map[Source]bool)
	for i := 0; i < 2; i++ {
		select {
		case edge := <-out:
			seen[edge.Source] = true
		case <-time.After(2 * time.Second):
			t.Fatal("edge not forwarded")
		}
	}
	if !seen[Up] || !seen[Select] {
		t.Errorf("edges seen = %v, want up and select", seen)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}

	if err := panel.Close(); err == nil {
		t.Error("Close() should report the first error")
	}
	if !primary.closed || !keys.closed {
		t.Error("Close() should close every panel")
	}
}
