// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// DefaultWebSocketReadDelay bounds a single Read on a WebSocketTransport.
const DefaultWebSocketReadDelay = 100 * time.Millisecond

// WebSocketConfig describes a serial bridge reachable over WebSocket.
type WebSocketConfig struct {
	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool

	// ReadTimeout bounds a single Read call. A Read that times out returns
	// (0, nil).
	ReadTimeout time.Duration
}

// WebSocketTransport carries Hostlink bytes over a WebSocket connection to a
// serial bridge. Both binary and text messages are accepted as line data.
type WebSocketTransport struct {
	conn        *websocket.Conn
	readTimeout time.Duration

	messages chan []byte
	done     chan struct{}

	mu      sync.Mutex
	buf     []byte
	readErr error

	closeOnce sync.Once
}

// NewWebSocketTransport wraps an established connection and starts reading
// from it.
func NewWebSocketTransport(conn *websocket.Conn, readTimeout time.Duration) *WebSocketTransport {
	if readTimeout <= 0 {
		readTimeout = DefaultWebSocketReadDelay
	}
	w := &WebSocketTransport{
		conn:        conn,
		readTimeout: readTimeout,
		messages:    make(chan []byte, 64),
		done:        make(chan struct{}),
	}
	go w.pump()
	return w
}

// pump moves incoming messages onto w.messages until the connection fails.
func (w *WebSocketTransport) pump() {
	defer close(w.messages)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.readErr = err
			w.mu.Unlock()
			return
		}
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}
		select {
		case w.messages <- data:
		case <-w.done:
			return
		}
	}
}

// Read returns buffered line data, waiting up to the read timeout for more.
func (w *WebSocketTransport) Read(p []byte) (int, error) {
	w.mu.Lock()
	if len(w.buf) > 0 {
		n := copy(p, w.buf)
		w.buf = w.buf[n:]
		w.mu.Unlock()
		return n, nil
	}
	w.mu.Unlock()

	timer := time.NewTimer(w.readTimeout)
	defer timer.Stop()

	select {
	case data, ok := <-w.messages:
		if !ok {
			return 0, w.closedError()
		}
		n := copy(p, data)
		if n < len(data) {
			w.mu.Lock()
			w.buf = append(w.buf, data[n:]...)
			w.mu.Unlock()
		}
		return n, nil
	case <-timer.C:
		return 0, nil
	case <-w.done:
		return 0, ErrConnectionClosed
	}
}

func (w *WebSocketTransport) closedError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.readErr != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, w.readErr)
	}
	return ErrConnectionClosed
}

func (w *WebSocketTransport) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// ResetInputBuffer drops buffered data and any messages already received.
func (w *WebSocketTransport) ResetInputBuffer() error {
	w.mu.Lock()
	w.buf = nil
	w.mu.Unlock()

	for {
		select {
		case _, ok := <-w.messages:
			if !ok {
				return w.closedError()
			}
		default:
			return nil
		}
	}
}

func (w *WebSocketTransport) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}

// DialWebSocket opens a WebSocket connection with HTTP Basic auth
func DialWebSocket(ctx context.Context, cfg WebSocketConfig) (*WebSocketTransport, error) {
	// Parse and validate URL
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: cfg.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if cfg.Username != "" && cfg.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return NewWebSocketTransport(conn, cfg.ReadTimeout), nil
}
