package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"quietude/pkg/config"
	"quietude/pkg/logging"
)

var (
	// Root command flags
	verbose   bool
	logFile   string
	configDir string

	logHandle *os.File

	// Root command
	rootCmd = &cobra.Command{
		Use:               "quietude",
		Short:             "Panel console for a serial-attached printer controller",
		Version:           "1.0.0",
		Run:               runRoot,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE:  setupLogging,
		PersistentPostRunE: closeLogging,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", logging.DefaultLogFile, "log file used while the console owns the terminal")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "profile directory (default: user config dir)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
}

// setupLogging logs to a file for commands that take over the terminal
// and to stderr for the rest
func setupLogging(cmd *cobra.Command, args []string) error {
	if cmd == runCmd || cmd == loadCmd {
		f, err := logging.SetupFile(logFile, verbose)
		if err != nil {
			return err
		}
		logHandle = f
		return nil
	}

	logging.SetupConsole(verbose)
	return nil
}

func closeLogging(cmd *cobra.Command, args []string) error {
	if logHandle == nil {
		return nil
	}
	err := logHandle.Close()
	logHandle = nil
	return err
}

// profileManager returns the profile store selected by --config-dir
func profileManager() *config.FileConfigManager {
	dir := configDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultConfigDir(); err != nil {
			dir = ".quietude"
		}
	}
	return config.NewFileConfigManager(dir)
}

func runRoot(cmd *cobra.Command, args []string) {
	cmd.Help()
}
