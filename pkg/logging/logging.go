// Package logging configures the process-wide zerolog logger
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLogFile is where the run command logs while the panel owns the
// terminal
const DefaultLogFile = "quietude-debug.log"

// Setup points the global logger at w. verbose enables debug output.
func Setup(w io.Writer, verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetupFile appends log output to the named file. The returned file must
// be closed by the caller.
func SetupFile(filename string, verbose bool) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	Setup(file, verbose)
	return file, nil
}

// SetupConsole writes human-readable logs to stderr, for commands that do
// not take over the terminal
func SetupConsole(verbose bool) {
	Setup(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, verbose)
}
