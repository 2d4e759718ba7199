// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Hostlink serial defaults: 9600 baud, 7 data bits, even parity, 2 stop bits.
const (
	DefaultBaudRate        = 9600
	DefaultDataBits        = 7
	DefaultSerialReadDelay = 100 * time.Millisecond
)

// SerialConfig describes how to open a serial port.
type SerialConfig struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits

	// ReadTimeout bounds a single Read call. A Read that times out returns
	// (0, nil).
	ReadTimeout time.Duration
}

// DefaultSerialConfig returns the usual Hostlink line settings for port.
func DefaultSerialConfig(port string) SerialConfig {
	return SerialConfig{
		Port:        port,
		BaudRate:    DefaultBaudRate,
		DataBits:    DefaultDataBits,
		Parity:      serial.EvenParity,
		StopBits:    serial.TwoStopBits,
		ReadTimeout: DefaultSerialReadDelay,
	}
}

func (c SerialConfig) mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   c.Parity,
		StopBits: c.StopBits,
	}
}

// SerialTransport is a Transport over a local serial port.
type SerialTransport struct {
	port   serial.Port
	config SerialConfig
}

// OpenSerial opens and configures a serial port. A zero BaudRate, DataBits
// or ReadTimeout takes the Hostlink default.
func OpenSerial(cfg SerialConfig) (*SerialTransport, error) {
	def := DefaultSerialConfig(cfg.Port)
	if cfg.BaudRate == 0 {
		cfg.BaudRate = def.BaudRate
	}
	if cfg.DataBits == 0 {
		cfg.DataBits = def.DataBits
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}

	port, err := serial.Open(cfg.Port, cfg.mode())
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Port, err)
	}

	return &SerialTransport{port: port, config: cfg}, nil
}

func (s *SerialTransport) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialTransport) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// ResetInputBuffer discards received bytes not yet read.
func (s *SerialTransport) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

// ModemStatus returns the modem control lines.
func (s *SerialTransport) ModemStatus() (*serial.ModemStatusBits, error) {
	return s.port.GetModemStatusBits()
}

// FormatModemStatus renders the modem control lines, e.g. "CTS+ DSR+ RI- DCD-".
func FormatModemStatus(b *serial.ModemStatusBits) string {
	line := func(name string, on bool) string {
		if on {
			return name + "+"
		}
		return name + "-"
	}
	return strings.Join([]string{
		line("CTS", b.CTS),
		line("DSR", b.DSR),
		line("RI", b.RI),
		line("DCD", b.DCD),
	}, " ")
}

// String describes the port and its line settings, e.g.
// "/dev/ttyUSB0 @ 9600 7E2".
func (s *SerialTransport) String() string {
	return s.config.String()
}

// String describes the port and its line settings.
func (c SerialConfig) String() string {
	return fmt.Sprintf("%s @ %d %d%s%s", c.Port, c.BaudRate, c.DataBits,
		parityLetter(c.Parity), stopBitsName(c.StopBits))
}

func (s *SerialTransport) Close() error {
	return s.port.Close()
}

// ListPorts returns the serial ports found on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// ParseParity parses a parity name: none, odd, even, mark or space (or the
// first letter of one).
func ParseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "n", "none":
		return serial.NoParity, nil
	case "o", "odd":
		return serial.OddParity, nil
	case "e", "even":
		return serial.EvenParity, nil
	case "m", "mark":
		return serial.MarkParity, nil
	case "s", "space":
		return serial.SpaceParity, nil
	}
	return serial.NoParity, fmt.Errorf("unknown parity %q", s)
}

// ParseStopBits parses a stop bit count: 1, 1.5 or 2.
func ParseStopBits(s string) (serial.StopBits, error) {
	switch s {
	case "1":
		return serial.OneStopBit, nil
	case "1.5":
		return serial.OnePointFiveStopBits, nil
	case "2":
		return serial.TwoStopBits, nil
	}
	return serial.OneStopBit, fmt.Errorf("unknown stop bits %q", s)
}

func parityLetter(p serial.Parity) string {
	switch p {
	case serial.OddParity:
		return "O"
	case serial.EvenParity:
		return "E"
	case serial.MarkParity:
		return "M"
	case serial.SpaceParity:
		return "S"
	default:
		return "N"
	}
}

func stopBitsName(s serial.StopBits) string {
	switch s {
	case serial.OnePointFiveStopBits:
		return "1.5"
	case serial.TwoStopBits:
		return "2"
	default:
		return "1"
	}
}
