// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hostlink/pkg/device"
	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

var (
	probeFrom      int
	probeTo        int
	probeTimeout   time.Duration
	probeUseTest   bool
	probeListPorts bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Find controllers answering on the line",
	Long: `Send a STATUS READ (or a TEST with --test) to every node in a range and
report which ones answer. Use it to find the node number of a controller or
to check that line settings match before running other commands.

Examples:
  # List serial ports (with -v, the modem control lines of each)
  hostlink probe --list-ports

  # Scan all node numbers on a serial line
  hostlink probe --port /dev/ttyUSB0

  # Scan nodes 0-9 through a WebSocket bridge using TEST frames
  hostlink probe --url ws://bridge.local/serial --to 9 --test

Exit codes:
  0 - At least one controller answered
  1 - No controller answered
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeFrom, "from", 0, "First node to probe")
	probeCmd.Flags().IntVar(&probeTo, "to", hostlink.MaxNodeID, "Last node to probe")
	probeCmd.Flags().DurationVar(&probeTimeout, "node-timeout", 300*time.Millisecond, "Response timeout per node")
	probeCmd.Flags().BoolVar(&probeUseTest, "test", false, "Probe with TEST frames instead of STATUS READ")
	probeCmd.Flags().BoolVar(&probeListPorts, "list-ports", false, "List serial ports and exit (with -v, show modem lines)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	if probeListPorts {
		ports, err := device.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, p := range ports {
			if !verbose {
				fmt.Println(p)
				continue
			}
			fmt.Printf("%s  %s\n", p, portModemLines(p))
		}
		return nil
	}

	if _, err := hostlink.NewNodeID(probeFrom); err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	if _, err := hostlink.NewNodeID(probeTo); err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	if probeFrom > probeTo {
		return fmt.Errorf("--from %d is after --to %d", probeFrom, probeTo)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	method := "STATUS READ"
	if probeUseTest {
		method = "TEST"
	}

	fmt.Printf("Hostlink - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Nodes: %02d-%02d  Method: %s  Timeout: %s\n\n", probeFrom, probeTo, method, probeTimeout)

	found := 0
	for n := probeFrom; n <= probeTo && ctx.Err() == nil; n++ {
		node := hostlink.NodeIDUnchecked(uint8(n))

		// A late answer from the previous node must not be read as this one's
		conn.ResetInputBuffer()

		dev := device.New(conn,
			device.WithNode(node),
			device.WithTimeout(probeTimeout),
			device.WithLogger(logger),
		)

		if probeUseTest {
			if err := dev.Test(ctx, "PROBE"+node.String()); err != nil {
				logger.Debug("no answer", "node", node.String(), "error", err)
				continue
			}
			fmt.Printf("  node %s: answered TEST\n", node)
			found++
			continue
		}

		status, err := dev.Status(ctx)
		if err != nil {
			// An end code still proves a controller is there
			if device.KindOf(err) != device.KindController {
				logger.Debug("no answer", "node", node.String(), "error", err)
				continue
			}
			fmt.Printf("  node %s: answered with %v\n", node, err)
			found++
			continue
		}
		fmt.Printf("  node %s: %s\n", node, status)
		found++
	}

	fmt.Printf("\n%d controller(s) found\n", found)
	if found == 0 {
		os.Exit(1)
	}
	return nil
}

// portModemLines opens port briefly to read its modem control lines.
func portModemLines(port string) string {
	t, err := device.OpenSerial(device.DefaultSerialConfig(port))
	if err != nil {
		return fmt.Sprintf("(%v)", err)
	}
	defer t.Close()

	bits, err := t.ModemStatus()
	if err != nil {
		return fmt.Sprintf("(modem lines: %v)", err)
	}
	return device.FormatModemStatus(bits)
}
