// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/hostlink/pkg/config"
	"github.com/Thermoquad/hostlink/pkg/publish"
)

var (
	watchInterval      time.Duration
	watchStatsInterval int
	watchTUI           bool
	watchNoPublish     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the controller status and publish it",
	Long: `Read the controller status at a fixed interval and track changes.

Mode changes, alarm flags (FALS, fatal error, message error) and the
controller going offline or coming back are logged as events. Exchange
statistics (frames, FCS and framing errors, end codes, timeouts) are kept
for the whole session.

Every poll is also published to the brokers configured under "publish" in the
config file (MQTT, Valkey, Kafka), or through HOSTLINK_MQTT_BROKER,
HOSTLINK_VALKEY_ADDR and HOSTLINK_KAFKA_BROKERS.

By default a terminal UI is shown. Use --tui=false for line output, which is
also the mode to use when running as a service.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default from config, 1s)")
	watchCmd.Flags().IntVar(&watchStatsInterval, "stats-interval", 60, "Statistics interval in seconds (text mode)")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", true, "Use terminal UI (false for text mode)")
	watchCmd.Flags().BoolVar(&watchNoPublish, "no-publish", false, "Do not publish to configured brokers")
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval := cfg.Interval
	if watchInterval > 0 {
		interval = watchInterval
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	dev, connInfo, err := OpenDevice(ctx)
	if err != nil {
		return err
	}
	defer dev.Close()

	var publisher *publish.Fanout
	if !watchNoPublish {
		publisher, err = openPublishers(ctx, cfg.Publish)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	if watchTUI {
		m := initialWatchModel(ctx, dev, publisher, connInfo, interval)
		p := tea.NewProgram(m, tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	}

	return runWatchText(ctx, dev, publisher, connInfo, interval)
}

// openPublishers dials every configured broker. A broker that cannot be
// reached fails the command; nothing configured yields an empty Fanout.
func openPublishers(ctx context.Context, pc config.PublishConfig) (*publish.Fanout, error) {
	fanout := publish.NewFanout(logger)

	if pc.MQTT != nil && pc.MQTT.Broker != "" {
		sink, err := publish.DialMQTT(*pc.MQTT)
		if err != nil {
			fanout.Close()
			return nil, err
		}
		fanout.Add(sink)
	}

	if pc.Valkey != nil && pc.Valkey.Address != "" {
		sink, err := publish.DialValkey(ctx, *pc.Valkey)
		if err != nil {
			fanout.Close()
			return nil, err
		}
		fanout.Add(sink)
	}

	if pc.Kafka != nil && len(pc.Kafka.Brokers) > 0 {
		sink, err := publish.DialKafka(ctx, *pc.Kafka)
		if err != nil {
			fanout.Close()
			return nil, err
		}
		fanout.Add(sink)
	}

	return fanout, nil
}

// runWatchText polls and prints one line per poll
func runWatchText(ctx context.Context, dev watchDevice, publisher *publish.Fanout, connInfo string, interval time.Duration) error {
	fmt.Printf("Hostlink - Watch\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Node: %s  Interval: %s\n", dev.Node(), interval)
	if publisher != nil && publisher.Len() > 0 {
		fmt.Printf("Publishing to %d broker(s)\n", publisher.Len())
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	m := initialWatchModel(ctx, dev, publisher, connInfo, interval)

	pollTicker := time.NewTicker(interval)
	defer pollTicker.Stop()

	statsTicker := time.NewTicker(time.Duration(max(watchStatsInterval, 1)) * time.Second)
	defer statsTicker.Stop()

	poll := func() {
		res := m.pollCmd()().(pollResultMsg)
		if ctx.Err() != nil {
			return
		}
		logged := m.logCount
		m.applyPoll(res)
		added := min(m.logCount-logged, len(m.eventLog))
		for _, e := range m.eventLog[len(m.eventLog)-added:] {
			printEvent(e)
		}
		if res.err == nil {
			fmt.Printf("[%s] %s\n", res.at.Format("15:04:05.000"), res.status)
		}
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			stats := dev.Stats()
			fmt.Print(stats.String())
			return nil

		case <-pollTicker.C:
			poll()

		case <-statsTicker.C:
			fmt.Println()
			stats := dev.Stats()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}

// printEvent prints an event log entry in highlighted format
func printEvent(e eventLogEntry) {
	timestamp := e.timestamp.Format("15:04:05.000")
	if e.isError {
		fmt.Printf("[%s] \033[1;31m%s\033[0m\n", timestamp, e.message)
		return
	}
	fmt.Printf("[%s] \033[1;33m%s\033[0m\n", timestamp, e.message)
}
