package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"quietude/pkg/app"
	"quietude/pkg/config"
)

var (
	saveFlags       panelFlags
	savePort        string
	saveDescription string
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage saved panel profiles",
	Long: `Manage saved panel profiles.

A profile holds the serial settings, the button wiring and the transcript
options, so a printer can be brought up with "quietude run <profile>".`,
}

// saveCmd saves a profile
var saveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save a panel profile",
	Long: `Save a panel profile under the given name. Saving over an existing
profile updates only the settings given as flags.

Example:
  quietude config save workshop -p /dev/ttyUSB0 -b 250000 --pins up=60,select=61`,
	Args: cobra.ExactArgs(1),
	RunE: runSaveConfig,
}

// loadCmd runs the console with a profile
var loadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Start the console using a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoadConfig,
}

// listConfigCmd lists all profiles
var listConfigCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved profiles",
	RunE:  runListConfigs,
}

// deleteCmd deletes a profile
var deleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Short:   "Delete a saved profile",
	Aliases: []string{"rm", "remove"},
	Args:    cobra.ExactArgs(1),
	RunE:    runDeleteConfig,
}

// showCmd shows details of a profile
var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show details of a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowConfig,
}

// exportCmd writes a profile to a file
var exportCmd = &cobra.Command{
	Use:   "export <name> <file>",
	Short: "Export a profile to a TOML file",
	Args:  cobra.ExactArgs(2),
	RunE:  runExportConfig,
}

// importCmd reads a profile from a file
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a profile from a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportConfig,
}

func init() {
	configCmd.AddCommand(saveCmd)
	configCmd.AddCommand(loadCmd)
	configCmd.AddCommand(listConfigCmd)
	configCmd.AddCommand(deleteCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(exportCmd)
	configCmd.AddCommand(importCmd)

	saveFlags.bind(saveCmd.Flags())
	saveCmd.Flags().StringVarP(&savePort, "port", "p", "", "serial port")
	saveCmd.Flags().StringVar(&saveDescription, "description", "", "free-form note shown by 'config show'")
}

func runSaveConfig(cmd *cobra.Command, args []string) error {
	name := args[0]
	manager := profileManager()

	cfg := config.DefaultPanelConfig()
	if existing, err := manager.GetConfig(name); err == nil {
		cfg = existing.Config
	}

	if cmd.Flags().Changed("port") {
		cfg.Serial.Port = savePort
	}
	if err := saveFlags.apply(cmd.Flags(), &cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := manager.SaveConfig(name, cfg); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	if cmd.Flags().Changed("description") {
		if err := manager.SetConfigDescription(name, saveDescription); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile '%s' saved.\n", name)
	printPanelConfig(out, cfg)
	return nil
}

func runLoadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := profileManager().LoadConfig(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Starting console on %s at %d baud...\n", cfg.Serial.Port, cfg.Serial.BaudRate)

	if err := app.RunPanel(cfg); err != nil {
		return fmt.Errorf("console failed: %w", err)
	}
	return nil
}

func runListConfigs(cmd *cobra.Command, args []string) error {
	profiles, err := profileManager().ListConfigs()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(profiles) == 0 {
		fmt.Fprintln(out, "No saved profiles found.")
		fmt.Fprintln(out, "\nUse 'quietude config save <name>' to save one.")
		return nil
	}

	fmt.Fprintf(out, "Found %d saved profile(s):\n\n", len(profiles))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPORT\tBAUD\tINPUT\tLAST USED\tCREATED")
	fmt.Fprintln(w, "----\t----\t----\t-----\t---------\t-------")

	for _, p := range profiles {
		lastUsed := "Never"
		if !p.LastUsedAt.IsZero() {
			lastUsed = p.LastUsedAt.Format("2006-01-02 15:04")
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			p.Name,
			p.Config.Serial.Port,
			p.Config.Serial.BaudRate,
			p.Config.Buttons.Input,
			lastUsed,
			p.CreatedAt.Format("2006-01-02 15:04"))
	}

	return w.Flush()
}

func runDeleteConfig(cmd *cobra.Command, args []string) error {
	if err := profileManager().DeleteConfig(args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted.\n", args[0])
	return nil
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	info, err := profileManager().GetConfig(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile: %s\n", info.Name)
	if info.Description != "" {
		fmt.Fprintf(out, "  Description: %s\n", info.Description)
	}
	printPanelConfig(out, info.Config)
	fmt.Fprintf(out, "  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Last Used: %s\n", info.LastUsedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runExportConfig(cmd *cobra.Command, args []string) error {
	if err := profileManager().ExportConfig(args[0], args[1]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' exported to %s.\n", args[0], args[1])
	return nil
}

func runImportConfig(cmd *cobra.Command, args []string) error {
	name, err := profileManager().ImportConfig(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' imported.\n", name)
	return nil
}
