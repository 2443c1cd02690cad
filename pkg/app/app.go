// Package app provides the main loop that ties the device, the buttons
// and the display together
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"quietude/pkg/display"
	"quietude/pkg/history"
	"quietude/pkg/input"
	"quietude/pkg/serial"
	"quietude/pkg/ui"
)

const (
	lineQueueSize = 64
	edgeQueueSize = 16
)

// Application owns the console state and runs the event loop. All state
// is touched only from the goroutine running Run.
type Application struct {
	peer      io.ReadWriter
	panel     input.Panel
	surface   display.Surface
	debouncer *input.Debouncer

	state    *ui.Context
	console  *ui.ConsoleView
	keyboard *ui.KeyboardInput

	transcript *history.Transcript
	session    *Session

	now func() time.Time
	wg  sync.WaitGroup
}

// AppConfig contains the loop's tunables
type AppConfig struct {
	Port       string
	Debounce   time.Duration
	Transcript *history.Transcript
}

// DefaultAppConfig returns default application configuration
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Port:     serial.DefaultPort,
		Debounce: input.DefaultDebounceDelay,
	}
}

// Session records what happened while the console was up
type Session struct {
	ID           string
	Port         string
	StartTime    time.Time
	EndTime      *time.Time
	LinesRecv    int64
	CommandsSent int64
	EndReason    string
	IsActive     bool
	mu           sync.RWMutex
}

// NewSession creates a new session
func NewSession(port string) *Session {
	return &Session{
		ID:        generateSessionID(),
		Port:      port,
		StartTime: time.Now(),
		IsActive:  true,
	}
}

// End marks the session as ended
func (s *Session) End(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.EndReason = reason
	s.IsActive = false
}

// UpdateStats adds to the session counters
func (s *Session) UpdateStats(linesRecv, commandsSent int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LinesRecv += linesRecv
	s.CommandsSent += commandsSent
}

// GetStats returns the session counters
func (s *Session) GetStats() (linesRecv, commandsSent int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.LinesRecv, s.CommandsSent
}

// Duration returns how long the session ran, or has run so far
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// NewApplication creates the loop over a device stream, a button panel and
// a drawing surface. surface may be nil to run without a display.
func NewApplication(peer io.ReadWriter, panel input.Panel, surface display.Surface, config AppConfig) (*Application, error) {
	if peer == nil {
		return nil, fmt.Errorf("serial peer cannot be nil")
	}
	if panel == nil {
		return nil, fmt.Errorf("button panel cannot be nil")
	}

	app := &Application{
		peer:       peer,
		panel:      panel,
		surface:    surface,
		debouncer:  input.NewDebouncer(config.Debounce, panel.Lines()),
		state:      ui.NewContext(),
		console:    ui.NewConsoleView(),
		keyboard:   ui.NewKeyboardInput(peer),
		transcript: config.Transcript,
		session:    NewSession(config.Port),
		now:        time.Now,
	}

	app.state.Mirror = app.mirror
	app.keyboard.OnSend = app.sent

	return app, nil
}

// State returns the console state. It must not be used while Run is
// active.
func (app *Application) State() *ui.Context {
	return app.state
}

// GetSession returns the session record
func (app *Application) GetSession() *Session {
	return app.session
}

// Run processes events until the device stream ends or ctx is done
func (app *Application) Run(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan serial.LineEvent, lineQueueSize)
	edges := make(chan input.Edge, edgeQueueSize)

	// the reader stays blocked in Read until the port is closed, so it is
	// not waited for
	go serial.NewLineReader(app.peer).Run(loopCtx, lines)

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.panel.Watch(loopCtx, edges)
	}()

	log.Info().Str("port", app.session.Port).Dur("debounce", app.debouncer.Delay()).Msg("console started")
	app.render()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	var timerC <-chan time.Time

	for !app.state.EOF {
		select {
		case <-ctx.Done():
			app.session.End("interrupted")
			log.Info().Msg("console stopped")
			return nil
		case ev := <-lines:
			app.handleLine(ev)
		case edge := <-edges:
			app.handleEdge(edge)
		case <-timerC:
		}

		app.service(lines, edges)

		timerC = nil
		if deadline, ok := app.debouncer.NextDeadline(); ok {
			d := deadline.Sub(app.now())
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
			timerC = timer.C
		}
	}

	return nil
}

// Wait blocks until the panel watcher has returned or timeout passes. The
// key panel only returns once its screen is finalized.
func (app *Application) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("button watcher did not stop within %v", timeout)
	}
}

func (app *Application) handleLine(ev serial.LineEvent) {
	if ev.EOF() {
		app.state.EOF = true
		if errors.Is(ev.Err, io.EOF) {
			app.session.End("device closed")
			log.Info().Msg("device stream ended")
		} else {
			app.session.End("read error")
			log.Warn().Err(ev.Err).Msg("device stream failed")
		}
		return
	}

	app.session.UpdateStats(1, 0)

	res := serial.FilterLine(ev.Line)
	if res.ClearToSend {
		if !app.state.ClearToSend {
			log.Debug().Msg("device ready")
		}
		app.state.ClearToSend = true
	}

	if res.Show {
		app.state.Console(res.Text)
	}
}

// service runs one wake-up: queued device lines first, then queued
// edges, then every due button in source order, then one frame
func (app *Application) service(lines <-chan serial.LineEvent, edges <-chan input.Edge) {
	app.drainLines(lines)
	app.drainEdges(edges)

	for _, src := range app.debouncer.Due(app.now()) {
		app.dispatch(src)
	}

	app.render()
}

// drainLines handles every line already queued so a burst reaches the
// scrollback before any button is serviced
func (app *Application) drainLines(lines <-chan serial.LineEvent) {
	for !app.state.EOF {
		select {
		case ev := <-lines:
			app.handleLine(ev)
		default:
			return
		}
	}
}

func (app *Application) handleEdge(edge input.Edge) {
	at := edge.At
	if at.IsZero() {
		at = app.now()
	}
	app.debouncer.Edge(edge.Source, at)
}

func (app *Application) drainEdges(edges <-chan input.Edge) {
	for {
		select {
		case edge := <-edges:
			app.handleEdge(edge)
		default:
			return
		}
	}
}

func (app *Application) activeView() ui.View {
	if app.state.Mode == ui.ModeKeyboard {
		return app.keyboard
	}
	return app.console
}

func (app *Application) dispatch(src input.Source) {
	log.Debug().Stringer("source", src).Stringer("mode", app.state.Mode).Msg("button")
	app.activeView().Handle(app.state, src)
}

func (app *Application) render() {
	if app.surface == nil {
		return
	}

	app.activeView().Render(app.state, app.surface)
	if err := app.surface.Present(); err != nil {
		log.Warn().Err(err).Msg("failed to present frame")
	}
}

// mirror copies each console line to the debug log and the transcript
func (app *Application) mirror(line string) {
	log.Debug().Str("line", line).Msg("console")

	if app.transcript != nil {
		if err := app.transcript.Console(line); err != nil {
			log.Warn().Err(err).Msg("failed to write transcript")
		}
	}
}

func (app *Application) sent(command string) {
	app.session.UpdateStats(0, 1)

	if app.transcript != nil {
		if err := app.transcript.Sent(command); err != nil {
			log.Warn().Err(err).Msg("failed to write transcript")
		}
	}
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
