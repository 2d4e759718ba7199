// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/hostlink/pkg/device"
)

// Connection is a transport the CLI can also close.
type Connection interface {
	device.Transport
	Close() error
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("HOSTLINK_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// serialConfig converts the CLI serial settings to a device.SerialConfig.
func serialConfig() (device.SerialConfig, error) {
	sc := device.DefaultSerialConfig(cfg.Serial.Port)
	sc.BaudRate = cfg.Serial.Baud
	sc.DataBits = cfg.Serial.DataBits

	parity, err := device.ParseParity(cfg.Serial.Parity)
	if err != nil {
		return sc, err
	}
	sc.Parity = parity

	stopBits, err := device.ParseStopBits(cfg.Serial.StopBits)
	if err != nil {
		return sc, err
	}
	sc.StopBits = stopBits
	return sc, nil
}

// OpenConnection opens either a serial or WebSocket connection based on the
// merged settings. The returned string describes the connection for display.
func OpenConnection(ctx context.Context) (Connection, string, error) {
	if cfg.WebSocket.URL != "" {
		password := ""
		if cfg.WebSocket.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := device.DialWebSocket(ctx, device.WebSocketConfig{
			URL:           cfg.WebSocket.URL,
			Username:      cfg.WebSocket.Username,
			Password:      password,
			SkipSSLVerify: cfg.WebSocket.NoSSLVerify,
		})
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", cfg.WebSocket.URL), nil
	}

	if cfg.Serial.Port != "" {
		sc, err := serialConfig()
		if err != nil {
			return nil, "", err
		}

		conn, err := device.OpenSerial(sc)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s", sc), nil
	}

	return nil, "", errors.New("either --port or --url must be specified")
}

// OpenDevice opens a connection and wraps it in a PlcDevice for the
// configured node. Closing the device closes the connection.
func OpenDevice(ctx context.Context, opts ...device.Option) (*device.PlcDevice, string, error) {
	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		return nil, "", err
	}

	base := []device.Option{
		device.WithNode(cfg.NodeID()),
		device.WithTimeout(cfg.Timeout),
		device.WithLogger(logger),
	}
	return device.New(conn, append(base, opts...)...), connInfo, nil
}
