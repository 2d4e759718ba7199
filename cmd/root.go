// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hostlink/pkg/config"
)

var (
	// Serial connection flags
	portName     string
	baudRate     int
	dataBits     int
	parityName   string
	stopBitsName string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Exchange flags
	nodeID  int
	timeout time.Duration

	configPath string
	envPath    string
	verbose    bool

	// cfg is the merged configuration: file, then environment, then flags
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hostlink",
	Short: "Hostlink PLC protocol tool",
	Long: `Hostlink - A CLI tool for talking to PLCs over the Hostlink protocol.

Sends status, test, area read and raw commands to a controller, passively
decodes line traffic, and publishes controller status to MQTT, Valkey or Kafka.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600 --data-bits 7 --parity even --stop-bits 2]
  WebSocket: --url ws://host/path [--username user]

Settings are read from ~/.hostlink/config.yaml (or --config), then an optional
.env file and HOSTLINK_* environment variables. Flags given on the command line
win over both.

For WebSocket authentication, the password is read from the HOSTLINK_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")
	rootCmd.PersistentFlags().IntVar(&dataBits, "data-bits", 7, "Data bits, 5-8 (serial only)")
	rootCmd.PersistentFlags().StringVar(&parityName, "parity", "even", "Parity: none, odd, even, mark, space (serial only)")
	rootCmd.PersistentFlags().StringVar(&stopBitsName, "stop-bits", "2", "Stop bits: 1, 1.5, 2 (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().IntVarP(&nodeID, "node", "n", 0, "Controller node number (0-99)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 3*time.Second, "Response timeout")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", ".env", "Environment file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every frame sent and received")
}

// loadSettings builds cfg and logger before any command runs.
func loadSettings(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	loaded, err := config.Load(configPath, envPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	applyFlags(cmd, loaded)
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	cfg = loaded
	return nil
}

// applyFlags copies every flag the user set explicitly over c.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	changed := cmd.Flags().Changed

	if changed("port") {
		c.Serial.Port = portName
	}
	if changed("baud") {
		c.Serial.Baud = baudRate
	}
	if changed("data-bits") {
		c.Serial.DataBits = dataBits
	}
	if changed("parity") {
		c.Serial.Parity = parityName
	}
	if changed("stop-bits") {
		c.Serial.StopBits = stopBitsName
	}
	if changed("url") {
		c.WebSocket.URL = wsURL
	}
	if changed("username") {
		c.WebSocket.Username = wsUsername
	}
	if changed("no-ssl-verify") {
		c.WebSocket.NoSSLVerify = wsNoSSLVerify
	}
	if changed("node") {
		c.Node = nodeID
	}
	if changed("timeout") {
		c.Timeout = timeout
	}
}

// signalContext returns a context canceled on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
