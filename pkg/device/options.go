// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"time"

	"github.com/Thermoquad/hostlink/pkg/capture"
	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

// DefaultTimeout is how long an exchange waits for a complete response.
const DefaultTimeout = 3 * time.Second

// DefaultPollInterval is the pause between reads that returned no data.
const DefaultPollInterval = 10 * time.Millisecond

// Logger is the logging interface used by PlcDevice. *slog.Logger satisfies
// it.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Recorder receives every frame a PlcDevice sends or receives.
type Recorder interface {
	Record(capture.Record) error
}

// Config holds the device configuration.
type Config struct {
	// Node is the controller address requests are sent to
	Node hostlink.NodeID

	// Timeout bounds the read of one response
	Timeout time.Duration

	// PollInterval is the pause after a read that returned no data
	PollInterval time.Duration

	// Logger is used for logging exchanges (optional)
	Logger Logger

	// Recorder captures raw frames (optional)
	Recorder Recorder
}

func defaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// Option is a functional option for configuring a PlcDevice.
type Option func(*Config)

// WithNode sets the controller node id. The default is node 00.
func WithNode(node hostlink.NodeID) Option {
	return func(c *Config) {
		c.Node = node
	}
}

// WithTimeout sets the response timeout.
//
// Example:
//
//	dev := device.New(port, device.WithTimeout(5*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithPollInterval sets the pause after an empty read.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.PollInterval = interval
		}
	}
}

// WithLogger sets a logger for exchanges.
//
// Example:
//
//	dev := device.New(port, device.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithRecorder captures every frame sent and received.
func WithRecorder(r Recorder) Option {
	return func(c *Config) {
		c.Recorder = r
	}
}
