// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	testCount    int
	testInterval time.Duration
)

var testCmd = &cobra.Command{
	Use:   "test [data]",
	Short: "Send a TEST (TS) frame and check the echo",
	Long: `Send a TEST command carrying data to the configured node. The controller
must echo the block back unchanged. Useful for checking wiring, line settings
and node numbers without touching controller state.

With --count the exchange is repeated and round-trip times are summarized.

Examples:
  hostlink test --port /dev/ttyUSB0
  hostlink test "LOOPBACK 123" --count 20 --interval 200ms

Exit codes:
  0 - Every echo matched
  1 - At least one exchange failed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().IntVarP(&testCount, "count", "c", 1, "Number of exchanges")
	testCmd.Flags().DurationVar(&testInterval, "interval", 500*time.Millisecond, "Pause between exchanges")
}

func runTest(cmd *cobra.Command, args []string) error {
	data := "HOSTLINK TEST"
	if len(args) == 1 {
		data = args[0]
	}
	if testCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	dev, connInfo, err := OpenDevice(ctx)
	if err != nil {
		return err
	}
	defer dev.Close()

	fmt.Printf("Hostlink - Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Node: %s  Data: %q\n\n", dev.Node(), data)

	var (
		passed  int
		total   time.Duration
		fastest time.Duration
		slowest time.Duration
	)

	for i := 1; i <= testCount; i++ {
		start := time.Now()
		err := dev.Test(ctx, data)
		rtt := time.Since(start)

		if ctx.Err() != nil {
			break
		}

		if err != nil {
			fmt.Printf("[%d] \033[1;31mFAIL\033[0m %v\n", i, err)
		} else {
			passed++
			total += rtt
			if fastest == 0 || rtt < fastest {
				fastest = rtt
			}
			if rtt > slowest {
				slowest = rtt
			}
			fmt.Printf("[%d] \033[1;32mOK\033[0m   %s\n", i, rtt.Round(time.Microsecond))
		}

		if i < testCount {
			select {
			case <-ctx.Done():
			case <-time.After(testInterval):
			}
		}
	}

	if testCount > 1 {
		fmt.Printf("\n%d/%d echoes matched", passed, testCount)
		if passed > 0 {
			fmt.Printf(", rtt min/avg/max = %s/%s/%s",
				fastest.Round(time.Microsecond),
				(total / time.Duration(passed)).Round(time.Microsecond),
				slowest.Round(time.Microsecond))
		}
		fmt.Println()
	}

	if passed < testCount {
		return errors.New("test failed")
	}
	return nil
}
