// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

var sendCmd = &cobra.Command{
	Use:   "send <header> [params]",
	Short: "Send a raw command and print the response",
	Long: `Send any Hostlink command given its two letter header code and parameter
block, then print the decoded response frame. The end code is reported but a
non-zero end code is not treated as a failure.

Examples:
  hostlink send MS
  hostlink send RD 01000002 --node 1
  hostlink send TS "HELLO"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	params := ""
	if len(args) == 2 {
		params = args[1]
	}

	p, err := hostlink.NewMessageParams(params)
	if err != nil {
		return err
	}
	command, err := hostlink.NewRawCommand(strings.ToUpper(args[0]), p)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	dev, _, err := OpenDevice(ctx)
	if err != nil {
		return err
	}
	defer dev.Close()

	fmt.Printf("TX %s\n", hostlink.FormatFrame(command.Serialize(dev.Node())))

	msg, err := dev.Send(ctx, command)
	if err != nil {
		return err
	}

	fmt.Printf("RX %s\n", hostlink.FormatFrame(msg.Bytes()))
	fmt.Print(hostlink.FormatMessage(msg, time.Now()))
	if code, ok := msg.EndCode(); ok && msg.Kind() != hostlink.CmdTest {
		fmt.Printf("  End Code: %s\n", code)
	}
	return nil
}
