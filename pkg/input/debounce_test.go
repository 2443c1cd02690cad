package input

import (
	"errors"
	"testing"
	"time"
)

type fakeLine struct {
	source Source
	reads  int
	err    error
}

func (l *fakeLine) Source() Source { return l.source }

func (l *fakeLine) ReadLevel() (int, error) {
	l.reads++
	return 1, l.err
}

func fakeLines() (map[Source]EdgeLine, map[Source]*fakeLine) {
	lines := make(map[Source]EdgeLine)
	fakes := make(map[Source]*fakeLine)
	for _, s := range Buttons {
		f := &fakeLine{source: s}
		lines[s] = f
		fakes[s] = f
	}
	return lines, fakes
}

func TestNewDebouncer_DefaultDelay(t *testing.T) {
	d := NewDebouncer(0, nil)

	if d.Delay() != DefaultDebounceDelay {
		t.Errorf("NewDebouncer(0) Delay = %v, want %v", d.Delay(), DefaultDebounceDelay)
	}

	if _, ok := d.NextDeadline(); ok {
		t.Error("NextDeadline() on idle debouncer should report false")
	}
}

func TestDebouncer_SpuriousEdgeYieldsOneActivation(t *testing.T) {
	lines, fakes := fakeLines()
	d := NewDebouncer(150*time.Millisecond, lines)
	t0 := time.Unix(1000, 0)

	if !d.Edge(Select, t0) {
		t.Fatal("first edge should arm the debouncer")
	}

	if d.Edge(Select, t0.Add(20*time.Millisecond)) {
		t.Error("second edge inside the window should be dropped")
	}

	if due := d.Due(t0.Add(100 * time.Millisecond)); len(due) != 0 {
		t.Errorf("Due() before the deadline = %v, want none", due)
	}

	due := d.Due(t0.Add(150 * time.Millisecond))
	if len(due) != 1 || due[0] != Select {
		t.Fatalf("Due() at the deadline = %v, want [select]", due)
	}

	if due := d.Due(t0.Add(time.Second)); len(due) != 0 {
		t.Errorf("Due() after release = %v, want none", due)
	}

	// one read per edge plus the confirm read
	if fakes[Select].reads != 3 {
		t.Errorf("ReadLevel called %d times, want 3", fakes[Select].reads)
	}
}

func TestDebouncer_DeadlineNotExtended(t *testing.T) {
	lines, _ := fakeLines()
	d := NewDebouncer(150*time.Millisecond, lines)
	t0 := time.Unix(1000, 0)

	d.Edge(Up, t0)
	d.Edge(Up, t0.Add(140*time.Millisecond))

	next, ok := d.NextDeadline()
	if !ok || !next.Equal(t0.Add(150*time.Millisecond)) {
		t.Errorf("NextDeadline() = %v, %v, want %v", next, ok, t0.Add(150*time.Millisecond))
	}
}

func TestDebouncer_DispatchOrder(t *testing.T) {
	lines, _ := fakeLines()
	d := NewDebouncer(150*time.Millisecond, lines)
	t0 := time.Unix(1000, 0)

	d.Edge(Select, t0)
	d.Edge(Left, t0.Add(5*time.Millisecond))
	d.Edge(Up, t0.Add(10*time.Millisecond))

	next, _ := d.NextDeadline()
	if !next.Equal(t0.Add(150 * time.Millisecond)) {
		t.Errorf("NextDeadline() = %v, want earliest edge + delay", next)
	}

	due := d.Due(t0.Add(time.Second))
	want := []Source{Up, Left, Select}
	if len(due) != len(want) {
		t.Fatalf("Due() = %v, want %v", due, want)
	}
	for i := range want {
		if due[i] != want[i] {
			t.Errorf("Due()[%d] = %v, want %v", i, due[i], want[i])
		}
	}
}

func TestDebouncer_PartialDue(t *testing.T) {
	lines, _ := fakeLines()
	d := NewDebouncer(150*time.Millisecond, lines)
	t0 := time.Unix(1000, 0)

	d.Edge(Down, t0)
	d.Edge(Right, t0.Add(100*time.Millisecond))

	due := d.Due(t0.Add(160 * time.Millisecond))
	if len(due) != 1 || due[0] != Down {
		t.Errorf("Due() = %v, want [down]", due)
	}

	if !d.Pending(Right) {
		t.Error("right should still be settling")
	}

	if d.Pending(Down) {
		t.Error("down should have been released")
	}
}

func TestDebouncer_ReadErrorStillDispatches(t *testing.T) {
	lines, fakes := fakeLines()
	fakes[Up].err = errors.New("bad file descriptor")
	d := NewDebouncer(time.Millisecond, lines)
	t0 := time.Unix(1000, 0)

	d.Edge(Up, t0)
	if due := d.Due(t0.Add(time.Millisecond)); len(due) != 1 {
		t.Errorf("Due() = %v, want one activation", due)
	}
}

func TestSource_String(t *testing.T) {
	tests := []struct {
		source Source
		want   string
	}{
		{Serial, "serial"},
		{Up, "up"},
		{Down, "down"},
		{Left, "left"},
		{Right, "right"},
		{Select, "select"},
		{Source(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.source.String(); got != tt.want {
			t.Errorf("Source(%d).String() = %s, want %s", tt.source, got, tt.want)
		}
	}

	if Serial.IsButton() {
		t.Error("serial is not a button")
	}

	for _, b := range Buttons {
		if !b.IsButton() {
			t.Errorf("%v should be a button", b)
		}
		if parsed, ok := ParseSource(b.String()); !ok || parsed != b {
			t.Errorf("ParseSource(%q) = %v, %v", b.String(), parsed, ok)
		}
	}

	if _, ok := ParseSource("serial"); ok {
		t.Error("ParseSource should only accept buttons")
	}
}
