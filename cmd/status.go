// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hostlink/pkg/hostlink"
	"github.com/Thermoquad/hostlink/pkg/publish"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read the controller status (MS)",
	Long: `Send a STATUS READ to the configured node and print the decoded status:
operating mode, program memory size, write protection and the FALS, fatal
and message error flags.

Examples:
  hostlink status --port /dev/ttyUSB0
  hostlink status --url ws://bridge.local/serial --node 3 --json

Exit codes:
  0 - Status read
  1 - Exchange failed (timeout, framing, end code)`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	dev, connInfo, err := OpenDevice(ctx)
	if err != nil {
		return err
	}
	defer dev.Close()

	status, err := dev.Status(ctx)

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(publish.NewStatusMessage(dev.Node(), status, err)); encErr != nil {
			return encErr
		}
		return err
	}

	if err != nil {
		return fmt.Errorf("node %s: %w", dev.Node(), err)
	}

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Node: %s\n", dev.Node())
	fmt.Print(hostlink.FormatStatus(status))
	return nil
}
