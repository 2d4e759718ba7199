// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hostlink/pkg/capture"
	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

var (
	replayErrorsOnly bool
	replayStats      bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a capture file written by monitor --record",
	Long: `Read a capture file and decode every frame in it as if it had just arrived
on the line. No connection is opened.

Frames recorded with an error are decoded again so the report reflects the
current decoder.`,
	Args: cobra.ExactArgs(1),
	// A capture file needs no connection or config
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayErrorsOnly, "errors-only", false, "Only show frames that fail to parse")
	replayCmd.Flags().BoolVar(&replayStats, "stats", true, "Print statistics at the end")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Printf("Hostlink - Replay\n")
	fmt.Printf("File: %s\n\n", args[0])

	stats := hostlink.NewStatistics()
	reader := capture.NewReader(f)

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Keep what was decoded from a truncated capture
			fmt.Fprintf(os.Stderr, "Stopped at damaged record: %v\n", err)
			break
		}

		replayRecord(rec, stats)
	}

	if replayStats {
		fmt.Println()
		fmt.Print(stats.String())
	}
	return nil
}

// replayRecord decodes one captured frame and prints it
func replayRecord(rec capture.Record, stats *hostlink.Statistics) {
	if len(rec.Raw) == 0 {
		// Overflows and transport failures carry no frame
		if rec.Error != "" {
			stats.Update(errors.New(rec.Error))
			fmt.Printf("[%s] %s \033[1;31mERROR:\033[0m %s\n",
				rec.Timestamp.Local().Format("15:04:05.000"), rec.Direction, rec.Error)
		}
		return
	}

	msg, err := hostlink.ParseMessage(rec.Raw)
	stats.Update(err)

	if err != nil {
		fmt.Printf("[%s] %s \033[1;31mERROR:\033[0m %v\n",
			rec.Timestamp.Local().Format("15:04:05.000"), rec.Direction, err)
		fmt.Printf("  Frame: %s\n", hostlink.FormatFrame(rec.Raw))
		return
	}

	if replayErrorsOnly {
		return
	}
	fmt.Printf("%s ", rec.Direction)
	fmt.Print(hostlink.FormatMessage(msg, rec.Timestamp.Local()))
}
