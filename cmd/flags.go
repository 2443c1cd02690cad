package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"quietude/pkg/config"
	"quietude/pkg/input"
)

// panelFlags are the settings shared by "run" and "config save". Only
// flags set on the command line override a loaded profile.
type panelFlags struct {
	baudRate         int
	dataBits         int
	stopBits         int
	parity           string
	timeoutMs        int
	retries          int
	inputKind        string
	gpioRoot         string
	pins             string
	debounce         time.Duration
	transcript       string
	transcriptFormat string
}

func (f *panelFlags) bind(fs *pflag.FlagSet) {
	def := config.DefaultPanelConfig()

	fs.IntVarP(&f.baudRate, "baud", "b", def.Serial.BaudRate, "baud rate")
	fs.IntVarP(&f.dataBits, "data", "d", def.Serial.DataBits, "data bits (5, 6, 7, or 8)")
	fs.IntVarP(&f.stopBits, "stop", "s", def.Serial.StopBits, "stop bits (1 or 2)")
	fs.StringVar(&f.parity, "parity", def.Serial.Parity, "parity (none, odd, even, mark, space)")
	fs.IntVarP(&f.timeoutMs, "timeout", "t", def.Serial.TimeoutMs, "read timeout in milliseconds, 0 blocks")
	fs.IntVar(&f.retries, "retries", def.Serial.Retries, "times to retry opening a busy or missing port")
	fs.StringVar(&f.inputKind, "input", def.Buttons.Input, "button source (gpio, keys)")
	fs.StringVar(&f.gpioRoot, "gpio-root", def.Buttons.GPIORoot, "sysfs gpio directory")
	fs.StringVar(&f.pins, "pins", formatPins(def.Pins()), "button gpio numbers as name=pin pairs")
	fs.DurationVar(&f.debounce, "debounce", def.Debounce(), "button settle delay, at least 1ms")
	fs.StringVar(&f.transcript, "transcript", "", "append console lines and sent commands to this file")
	fs.StringVar(&f.transcriptFormat, "transcript-format", def.Transcript.Format, "transcript format (plain_text, timestamped, json)")
}

// apply copies every flag set on the command line into cfg
func (f *panelFlags) apply(fs *pflag.FlagSet, cfg *config.PanelConfig) error {
	if fs.Changed("baud") {
		cfg.Serial.BaudRate = f.baudRate
	}
	if fs.Changed("data") {
		cfg.Serial.DataBits = f.dataBits
	}
	if fs.Changed("stop") {
		cfg.Serial.StopBits = f.stopBits
	}
	if fs.Changed("parity") {
		cfg.Serial.Parity = f.parity
	}
	if fs.Changed("timeout") {
		cfg.Serial.TimeoutMs = f.timeoutMs
	}
	if fs.Changed("retries") {
		cfg.Serial.Retries = f.retries
	}
	if fs.Changed("input") {
		cfg.Buttons.Input = f.inputKind
	}
	if fs.Changed("gpio-root") {
		cfg.Buttons.GPIORoot = f.gpioRoot
	}
	if fs.Changed("pins") {
		pins, err := parsePins(f.pins)
		if err != nil {
			return err
		}
		cfg.SetPins(pins)
	}
	if fs.Changed("debounce") {
		cfg.Buttons.DebounceMs = int(f.debounce / time.Millisecond)
	}
	if fs.Changed("transcript") {
		cfg.Transcript.Path = f.transcript
	}
	if fs.Changed("transcript-format") {
		cfg.Transcript.Format = f.transcriptFormat
	}

	return cfg.Validate()
}

// parsePins reads "up=50,down=48" style button assignments
func parsePins(s string) (map[input.Source]int, error) {
	pins := make(map[input.Source]int)

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid pin assignment %q, want name=pin", pair)
		}

		src, ok := input.ParseSource(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return nil, fmt.Errorf("unknown button: %s", name)
		}

		pin, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid pin for %s: %w", name, err)
		}

		pins[src] = pin
	}

	return pins, nil
}

func formatPins(pins map[input.Source]int) string {
	parts := make([]string, 0, len(input.Buttons))
	for _, src := range input.Buttons {
		if pin, ok := pins[src]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", src, pin))
		}
	}
	return strings.Join(parts, ",")
}
