// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hostlink/pkg/capture"
	"github.com/Thermoquad/hostlink/pkg/device"
	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

var (
	monitorRecord        string
	monitorStatsInterval int
	monitorDuration      time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Passively decode Hostlink traffic on the line",
	Long: `Continuously decode and display Hostlink frames as they arrive, without
sending anything. Attach to a line shared with another master (or a bridge
that forwards both directions) to watch the conversation.

Each frame is shown with timestamp, command, node and parameters. Frames that
fail to parse are shown as errors with the reason. With --record every frame is
also written to a capture file that "hostlink replay" can read back.

Supports both serial and WebSocket connections.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVar(&monitorRecord, "record", "", "Write every frame to this capture file")
	monitorCmd.Flags().IntVar(&monitorStatsInterval, "stats-interval", 0, "Print statistics every N seconds (0 disables)")
	monitorCmd.Flags().DurationVar(&monitorDuration, "duration", 0, "Stop after this long (0 runs until Ctrl+C)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()
	if monitorDuration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, monitorDuration)
		defer stop()
	}

	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var recorder *capture.Writer
	if monitorRecord != "" {
		f, err := os.Create(monitorRecord)
		if err != nil {
			return fmt.Errorf("create capture file: %w", err)
		}
		recorder = capture.NewWriter(f)
		defer func() {
			fmt.Printf("\n%d frames written to %s\n", recorder.Count(), monitorRecord)
			recorder.Close()
		}()
	}

	fmt.Printf("Hostlink - Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if recorder != nil {
		fmt.Printf("Recording: %s\n", monitorRecord)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := hostlink.NewDecoder()
	stats := hostlink.NewStatistics()
	buf := make([]byte, 128)

	lastStats := time.Now()
	statsEvery := time.Duration(monitorStatsInterval) * time.Second

	for ctx.Err() == nil {
		n, err := conn.Read(buf)
		if err != nil {
			// A WebSocket read error means the connection is gone for good
			if errors.Is(err, device.ErrConnectionClosed) {
				logger.Info("connection closed")
				return nil
			}
			if ctx.Err() != nil {
				break
			}
			logger.Error("read failed", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for i := 0; i < n; i++ {
			msg, err := decoder.DecodeByte(buf[i])
			if msg == nil && err == nil {
				continue
			}

			// An overflow drops the frame without replacing LastFrame
			frame := decoder.LastFrame()
			if errors.Is(err, hostlink.ErrFrameTooLong) {
				frame = nil
			}

			stats.Update(err)
			if recorder != nil {
				if rerr := recorder.Record(capture.NewRecord(capture.DirectionRx, frame, err)); rerr != nil {
					logger.Error("record failed", "error", rerr)
				}
			}

			if err != nil {
				printFrameError(frame, err)
				continue
			}
			fmt.Print(hostlink.FormatMessage(*msg, time.Now()))
		}

		if statsEvery > 0 && time.Since(lastStats) >= statsEvery {
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
			lastStats = time.Now()
		}
	}

	fmt.Println()
	fmt.Print(stats.String())
	return nil
}

// printFrameError prints a rejected frame in highlighted format
func printFrameError(frame []byte, err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mERROR:\033[0m %v\n", timestamp, err)
	if len(frame) > 0 {
		fmt.Printf("  Frame: %s\n", hostlink.FormatFrame(frame))
	}
}
