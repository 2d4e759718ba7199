// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package publish forwards controller status snapshots to message brokers
// (MQTT, Valkey and Kafka).
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

// StatusMessage is the JSON document published for each status poll.
type StatusMessage struct {
	Node           string    `json:"node"`
	Online         bool      `json:"online"`
	Mode           string    `json:"mode,omitempty"`
	MemorySize     int       `json:"memory_size,omitempty"`
	WriteProtected bool      `json:"write_protected"`
	FALSGenerated  bool      `json:"fals_generated"`
	FatalError     bool      `json:"fatal_error"`
	MessageError   bool      `json:"message_error"`
	Message        string    `json:"message,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewStatusMessage builds the message for one poll of node. A non-nil err
// marks the controller offline and the status is ignored.
func NewStatusMessage(node hostlink.NodeID, status hostlink.Status, err error) StatusMessage {
	msg := StatusMessage{
		Node:      node.String(),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		msg.Error = err.Error()
		return msg
	}

	msg.Online = true
	msg.Mode = status.Mode.String()
	msg.MemorySize = status.Memory.Size
	msg.WriteProtected = status.Memory.WriteProtected
	msg.FALSGenerated = status.Memory.FALSGenerated
	msg.FatalError = status.Memory.FatalError
	msg.MessageError = status.Memory.MessageError
	msg.Message = status.Message
	return msg
}

// Sink is a destination for status messages.
type Sink interface {
	// Name identifies the sink in logs, e.g. "mqtt tcp://broker:1883".
	Name() string
	Publish(ctx context.Context, msg StatusMessage) error
	Close() error
}

// Logger is the logging interface used by Fanout. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Fanout publishes every message to a set of sinks.
type Fanout struct {
	mu     sync.Mutex
	sinks  []Sink
	logger Logger

	published uint64
	failed    uint64
}

// NewFanout creates a Fanout over sinks. logger may be nil.
func NewFanout(logger Logger, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, logger: logger}
}

// Add appends a sink.
func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Len returns the number of sinks.
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sinks)
}

// Publish sends msg to every sink. A failing sink does not stop the others;
// all failures are joined into the returned error.
func (f *Fanout) Publish(ctx context.Context, msg StatusMessage) error {
	f.mu.Lock()
	sinks := append([]Sink(nil), f.sinks...)
	f.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Publish(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			if f.logger != nil {
				f.logger.Error("publish failed", "sink", s.Name(), "error", err)
			}
			continue
		}
		if f.logger != nil {
			f.logger.Debug("published", "sink", s.Name(), "node", msg.Node)
		}
	}

	f.mu.Lock()
	if len(errs) > 0 {
		f.failed++
	} else {
		f.published++
	}
	f.mu.Unlock()

	return errors.Join(errs...)
}

// Counts returns how many Publish calls succeeded on every sink and how many
// had at least one failure.
func (f *Fanout) Counts() (published, failed uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published, f.failed
}

// Close closes every sink.
func (f *Fanout) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	f.sinks = nil
	return errors.Join(errs...)
}

// joinKey joins non-empty key segments with sep.
func joinKey(sep string, segments ...string) string {
	key := ""
	for _, s := range segments {
		if s == "" {
			continue
		}
		if key != "" {
			key += sep
		}
		key += s
	}
	return key
}
