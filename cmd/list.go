package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"quietude/pkg/serial"
)

var (
	listDetails bool
	listFormat  string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports on this machine.

USB ports show their vendor and product IDs with --details, which helps
pick the printer controller out of other USB serial adapters.`,
	Aliases: []string{"ls", "ports"},
	RunE:    runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listDetails, "details", "d", false, "show detailed port information")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, csv, json)")
}

func runList(cmd *cobra.Command, args []string) error {
	portInfos, err := serial.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("failed to list ports: %w", err)
	}

	return printPorts(cmd.OutOrStdout(), portInfos, listFormat, listDetails)
}

func printPorts(w io.Writer, portInfos []serial.PortInfo, format string, details bool) error {
	switch format {
	case "csv":
		printPortsCSV(w, portInfos, details)
	case "json":
		return printPortsJSON(w, portInfos, details)
	case "table":
		printPortsTable(w, portInfos, details)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func printPortsTable(w io.Writer, portInfos []serial.PortInfo, details bool) {
	if len(portInfos) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return
	}

	fmt.Fprintf(w, "Found %d serial port(s):\n", len(portInfos))

	for _, portInfo := range portInfos {
		fmt.Fprintf(w, "  %s", portInfo.Name)

		if details && portInfo.IsUSB {
			fmt.Fprintf(w, " [USB]")
			if portInfo.VID != "" || portInfo.PID != "" {
				fmt.Fprintf(w, " VID:%s PID:%s", portInfo.VID, portInfo.PID)
			}
			if portInfo.Product != "" {
				fmt.Fprintf(w, " - %s", portInfo.Product)
			}
			if portInfo.SerialNumber != "" {
				fmt.Fprintf(w, " (SN: %s)", portInfo.SerialNumber)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nUse 'quietude run <port>' to start the console.")
}

func printPortsCSV(w io.Writer, portInfos []serial.PortInfo, details bool) {
	if !details {
		fmt.Fprintln(w, "port")
		for _, portInfo := range portInfos {
			fmt.Fprintln(w, portInfo.Name)
		}
		return
	}

	fmt.Fprintln(w, "port,is_usb,vid,pid,product,serial_number")
	for _, portInfo := range portInfos {
		fmt.Fprintf(w, "%s,%t,%s,%s,%s,%s\n",
			portInfo.Name,
			portInfo.IsUSB,
			portInfo.VID,
			portInfo.PID,
			portInfo.Product,
			portInfo.SerialNumber)
	}
}

func printPortsJSON(w io.Writer, portInfos []serial.PortInfo, details bool) error {
	if portInfos == nil {
		portInfos = []serial.PortInfo{}
	}

	var v interface{} = portInfos
	if !details {
		names := make([]string, 0, len(portInfos))
		for _, portInfo := range portInfos {
			names = append(names, portInfo.Name)
		}
		v = names
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
