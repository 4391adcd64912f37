package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/buttonhat/internal/peripheral"
)

// CreateUartsCmd creates the uarts command.
func CreateUartsCmd() *cobra.Command {
	var devRoot string

	cmd := &cobra.Command{
		Use:   "uarts",
		Short: "List UART devices",
		Long:  `Lists the tty devices on this machine that can back a UART, the same list the daemon logs at start.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			devices := peripheral.ListUartDevices(devRoot)
			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No UART port available on this device.")
				return
			}
			fmt.Fprintln(out, "List of available devices:")
			for _, d := range devices {
				fmt.Fprintln(out, d)
			}
		},
	}

	cmd.Flags().StringVar(&devRoot, "dev-root", "/dev", "Directory holding tty devices")
	return cmd
}
