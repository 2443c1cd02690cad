package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"
	"quietude/pkg/config"
	"quietude/pkg/display"
	"quietude/pkg/history"
	"quietude/pkg/input"
	"quietude/pkg/serial"
)

const watcherStopTimeout = 2 * time.Second

// Runner brings the hardware up, runs the console and tears it down
type Runner struct {
	app    *Application
	config config.PanelConfig
	out    io.Writer

	// overridable for tests
	openPort   func(serial.SerialConfig, serial.RetryConfig) (serial.SerialPort, error)
	openScreen func() (tcell.Screen, error)
	openGPIO   func(root string, pins map[input.Source]int) (input.Panel, error)
}

// NewRunner creates a runner for a validated panel configuration
func NewRunner(cfg config.PanelConfig) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Runner{
		config:     cfg,
		out:        os.Stdout,
		openPort:   openSerialPort,
		openScreen: openTerminalScreen,
		openGPIO:   openGPIOPanel,
	}, nil
}

// Run blocks until the device stream ends, SIGINT/SIGTERM arrives or
// Ctrl+C is pressed on the panel terminal
func (r *Runner) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return r.RunContext(ctx)
}

// RunContext is Run with a caller-supplied context
func (r *Runner) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sc := r.config.SerialConfig()
	retry := serial.DefaultRetryConfig()
	retry.MaxRetries = r.config.Serial.Retries

	port, err := r.openPort(sc, retry)
	if err != nil {
		return err
	}
	defer port.Close()

	transcript, err := r.openTranscript()
	if err != nil {
		return err
	}
	if transcript != nil {
		defer transcript.Close()
	}

	screen, err := r.openScreen()
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	screenDone := false
	finiScreen := func() {
		if !screenDone {
			screen.Fini()
			screenDone = true
		}
	}
	defer finiScreen()

	keys := input.NewKeyPanel(screen, cancel)
	var panel input.Panel = keys
	if r.config.Buttons.Input == config.InputGPIO {
		gpio, err := r.openGPIO(r.config.Buttons.GPIORoot, r.config.Pins())
		if err != nil {
			return fmt.Errorf("failed to open buttons: %w", err)
		}
		panel = input.Combine(gpio, keys)
	}

	fb := display.NewFramebuffer(display.NewTerminalPresenter(screen))

	app, err := NewApplication(port, panel, fb, AppConfig{
		Port:       sc.Port,
		Debounce:   r.config.Debounce(),
		Transcript: transcript,
	})
	if err != nil {
		panel.Close()
		return fmt.Errorf("failed to create application: %w", err)
	}
	r.app = app

	runErr := app.Run(ctx)

	// the key watcher returns only once the screen is gone, and the gpio
	// lines may only be closed after their pollers stop
	cancel()
	finiScreen()
	if err := app.Wait(watcherStopTimeout); err != nil {
		log.Warn().Err(err).Msg("teardown")
	} else if err := panel.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to release buttons")
	}

	r.printSessionSummary()

	return runErr
}

func (r *Runner) openTranscript() (*history.Transcript, error) {
	if r.config.Transcript.Path == "" {
		return nil, nil
	}

	format, err := r.config.TranscriptFormat()
	if err != nil {
		return nil, err
	}

	return history.OpenTranscript(r.config.Transcript.Path, format)
}

// printSessionSummary prints a summary of the session
func (r *Runner) printSessionSummary() {
	if r.app == nil {
		return
	}

	session := r.app.GetSession()
	linesRecv, commandsSent := session.GetStats()

	fmt.Fprintf(r.out, "\n=== Session Summary ===\n")
	fmt.Fprintf(r.out, "Port: %s\n", session.Port)
	fmt.Fprintf(r.out, "Duration: %v\n", session.Duration().Round(time.Second))
	fmt.Fprintf(r.out, "Lines Received: %d\n", linesRecv)
	fmt.Fprintf(r.out, "Commands Sent: %d\n", commandsSent)
	if session.EndReason != "" {
		fmt.Fprintf(r.out, "Ended: %s\n", session.EndReason)
	}
	fmt.Fprintf(r.out, "=====================\n")
}

func openSerialPort(sc serial.SerialConfig, retry serial.RetryConfig) (serial.SerialPort, error) {
	port := serial.NewResilientSerialPort(retry)
	if err := port.OpenWithRetry(sc); err != nil {
		return nil, err
	}
	return port, nil
}

func openTerminalScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	screen.Clear()
	return screen, nil
}

func openGPIOPanel(root string, pins map[input.Source]int) (input.Panel, error) {
	return input.OpenGPIOPanel(root, pins)
}

// RunPanel runs the console with the given configuration
func RunPanel(cfg config.PanelConfig) error {
	runner, err := NewRunner(cfg)
	if err != nil {
		return err
	}

	return runner.Run()
}
