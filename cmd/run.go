package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"quietude/pkg/app"
	"quietude/pkg/config"
	"quietude/pkg/serial"
)

var runFlags panelFlags

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [port|profile]",
	Short: "Start the panel console",
	Long: `Start the panel console on a serial port or a saved profile.

You can specify either:
  - A port name (e.g., /dev/ttyACM0) with optional parameters
  - A saved profile name, optionally overridden by flags
  - Nothing, to use /dev/ttyACM0 with the BeagleBone button wiring

Examples:
  # Default device and buttons
  quietude run

  # Drive the console from the keyboard instead of gpio buttons
  quietude run /dev/ttyUSB0 --input keys

  # Use a saved profile with a transcript
  quietude run workshop --transcript session.log`,
	Args:    cobra.MaximumNArgs(1),
	Aliases: []string{"connect", "open"},
	RunE:    runPanel,
}

func init() {
	runFlags.bind(runCmd.Flags())
}

func runPanel(cmd *cobra.Command, args []string) error {
	cfg, err := resolvePanelConfig(cmd, args, profileManager())
	if err != nil {
		return err
	}

	if verbose {
		printPanelConfig(cmd.OutOrStdout(), cfg)
	}

	if err := app.RunPanel(cfg); err != nil {
		return fmt.Errorf("console failed: %w", err)
	}
	return nil
}

// resolvePanelConfig builds the run configuration from a profile or port
// argument and the flags set on the command line
func resolvePanelConfig(cmd *cobra.Command, args []string, manager *config.FileConfigManager) (config.PanelConfig, error) {
	cfg := config.DefaultPanelConfig()

	if len(args) == 1 {
		target := args[0]
		switch {
		case manager.ConfigExists(target):
			loaded, err := manager.LoadConfig(target)
			if err != nil {
				return cfg, err
			}
			cfg = loaded
		case isSerialPort(target):
			cfg.Serial.Port = target
		default:
			return cfg, fmt.Errorf("'%s' is neither a serial port nor a saved profile", target)
		}
	}

	if err := runFlags.apply(cmd.Flags(), &cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func isSerialPort(name string) bool {
	if strings.HasPrefix(name, "/dev/") || strings.HasPrefix(strings.ToLower(name), "com") {
		return true
	}

	ports, err := serial.ListPorts()
	if err == nil {
		for _, port := range ports {
			if strings.EqualFold(port, name) {
				return true
			}
		}
	}

	return false
}

func printPanelConfig(w io.Writer, cfg config.PanelConfig) {
	fmt.Fprintf(w, "  Port: %s\n", cfg.Serial.Port)
	fmt.Fprintf(w, "  Settings: %d %d-%s-%d\n",
		cfg.Serial.BaudRate,
		cfg.Serial.DataBits,
		strings.ToUpper(cfg.Serial.Parity[:1]),
		cfg.Serial.StopBits)
	fmt.Fprintf(w, "  Buttons: %s", cfg.Buttons.Input)
	if cfg.Buttons.Input == config.InputGPIO {
		fmt.Fprintf(w, " (%s under %s)", formatPins(cfg.Pins()), cfg.Buttons.GPIORoot)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Debounce: %v\n", cfg.Debounce())
	if cfg.Transcript.Path != "" {
		fmt.Fprintf(w, "  Transcript: %s (%s)\n", cfg.Transcript.Path, cfg.Transcript.Format)
	}
}
