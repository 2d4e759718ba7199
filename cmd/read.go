// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

var readDecimal bool

var readCmd = &cobra.Command{
	Use:   "read <area> <address> [count]",
	Short: "Read words from a memory area",
	Long: fmt.Sprintf(`Read count words (default 1) starting at address from a controller memory
area and print them in hex.

Areas: %s

At most %d words can be read in one exchange.

Examples:
  hostlink read dm 100 10 --port /dev/ttyUSB0
  hostlink read ir 0 --node 2 --decimal`, strings.Join(hostlink.AreaNames, ", "), hostlink.MaxAreaReadWords),
	Args: cobra.RangeArgs(2, 3),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().BoolVar(&readDecimal, "decimal", false, "Also print each word in decimal")
}

func runRead(cmd *cobra.Command, args []string) error {
	area, err := hostlink.ParseArea(args[0])
	if err != nil {
		return err
	}

	address, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid address %q", args[1])
	}

	count := 1
	if len(args) == 3 {
		count, err = strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid count %q", args[2])
		}
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	dev, _, err := OpenDevice(ctx)
	if err != nil {
		return err
	}
	defer dev.Close()

	words, err := dev.ReadArea(ctx, area, address, count)
	if err != nil {
		return fmt.Errorf("%s: %w", area, err)
	}

	fmt.Printf("%s node=%s\n", area, dev.Node())
	for i, word := range words {
		if readDecimal {
			fmt.Printf("  %04d: %04X  %5d\n", address+i, word, word)
		} else {
			fmt.Printf("  %04d: %04X\n", address+i, word)
		}
	}
	return nil
}
