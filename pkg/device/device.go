// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package device sequences Hostlink request/response exchanges with a
// controller over a Transport.
//
// # Basic Usage
//
//	port, err := device.OpenSerial(device.SerialConfig{Port: "/dev/ttyUSB0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dev := device.New(port, device.WithNode(0))
//	defer dev.Close()
//
//	status, err := dev.Status(ctx)
//
// Exchanges are strictly half duplex: a PlcDevice runs one at a time and
// every exchange performs exactly one write followed by a read that ends at
// the frame terminator or the timeout. Failed exchanges are never retried.
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/hostlink/pkg/capture"
	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

// PlcDevice owns a Transport and runs exchanges with one controller node.
type PlcDevice struct {
	mu        sync.Mutex
	transport Transport
	config    Config
	decoder   *hostlink.Decoder
	buf       []byte
	rx        []byte

	// dirty is set when an exchange failed and the input buffer may hold
	// bytes that belong to it
	dirty  bool
	closed bool

	statsMu sync.Mutex
	stats   *hostlink.Statistics
}

// New creates a PlcDevice that takes ownership of t.
func New(t Transport, opts ...Option) *PlcDevice {
	if t == nil {
		panic("device: transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &PlcDevice{
		transport: t,
		config:    cfg,
		decoder:   hostlink.NewDecoder(),
		buf:       make([]byte, hostlink.MaxFrameSize),
		rx:        make([]byte, 0, hostlink.MaxFrameSize),
		stats:     hostlink.NewStatistics(),
	}
}

// Node returns the controller node id requests are addressed to.
func (d *PlcDevice) Node() hostlink.NodeID {
	return d.config.Node
}

// Timeout returns the response timeout.
func (d *PlcDevice) Timeout() time.Duration {
	return d.config.Timeout
}

// Send runs one exchange: cmd is written once and the response frame is read
// and parsed. The response must come from the device's node and carry the
// request's header code.
func (d *PlcDevice) Send(ctx context.Context, cmd hostlink.Command) (hostlink.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	msg, err := d.exchange(ctx, "send", cmd)
	d.account(err)
	return msg, err
}

// Status reads and decodes the controller status.
func (d *PlcDevice) Status(ctx context.Context) (hostlink.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.status(ctx)
	d.account(err)
	return s, err
}

func (d *PlcDevice) status(ctx context.Context) (hostlink.Status, error) {
	const op = "status"

	msg, err := d.exchange(ctx, op, hostlink.StatusRead())
	if err != nil {
		return hostlink.Status{}, err
	}

	s, err := hostlink.DecodeStatusResponse(msg)
	if err != nil {
		return hostlink.Status{}, decodeError(op, err)
	}
	return s, nil
}

// Test sends data with the TEST command and checks that the controller
// echoes it unchanged.
func (d *PlcDevice) Test(ctx context.Context, data string) error {
	cmd, err := hostlink.NewTestCommand(data)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err = d.test(ctx, cmd)
	d.account(err)
	return err
}

func (d *PlcDevice) test(ctx context.Context, cmd hostlink.Command) error {
	const op = "test"

	msg, err := d.exchange(ctx, op, cmd)
	if err != nil {
		return err
	}
	if !bytes.Equal(msg.Params(), cmd.Params()) {
		return &Error{
			Op:   op,
			Kind: KindResponse,
			Err:  fmt.Errorf("%w: sent %q, got %q", ErrEchoMismatch, cmd.Params(), msg.Params()),
		}
	}
	return nil
}

// ReadArea reads count words starting at address from the memory area of an
// area read command kind (for example hostlink.CmdDMAreaRead).
func (d *PlcDevice) ReadArea(ctx context.Context, area hostlink.CommandKind, address, count int) ([]uint16, error) {
	if count > hostlink.MaxAreaReadWords {
		return nil, fmt.Errorf("device: %d words do not fit in one response (max %d)",
			count, hostlink.MaxAreaReadWords)
	}
	cmd, err := hostlink.NewAreaRead(area, address, count)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	words, err := d.readArea(ctx, cmd, count)
	d.account(err)
	return words, err
}

func (d *PlcDevice) readArea(ctx context.Context, cmd hostlink.Command, count int) ([]uint16, error) {
	const op = "read area"

	msg, err := d.exchange(ctx, op, cmd)
	if err != nil {
		return nil, err
	}

	words, err := hostlink.DecodeAreaWords(msg)
	if err != nil {
		return nil, decodeError(op, err)
	}
	if len(words) != count {
		return nil, &Error{
			Op:   op,
			Kind: KindResponse,
			Err:  fmt.Errorf("%w: requested %d, got %d", ErrWordCount, count, len(words)),
		}
	}
	return words, nil
}

// Stats returns a snapshot of the exchange statistics.
func (d *PlcDevice) Stats() hostlink.Statistics {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	d.stats.CalculateRates()
	return *d.stats
}

// ResetStats clears the exchange statistics.
func (d *PlcDevice) ResetStats() {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.stats.Reset()
}

// Close releases the transport. Exchanges after Close fail with ErrClosed.
func (d *PlcDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if c, ok := d.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// exchange writes cmd once and reads back one response frame.
// Callers must hold d.mu.
func (d *PlcDevice) exchange(ctx context.Context, op string, cmd hostlink.Command) (hostlink.Message, error) {
	if d.closed {
		return hostlink.Message{}, &Error{Op: op, Kind: KindTransport, Err: ErrClosed}
	}
	if err := ctx.Err(); err != nil {
		return hostlink.Message{}, &Error{Op: op, Kind: KindCanceled, Err: err}
	}

	if d.dirty {
		d.logDebug("clearing input buffer", "op", op)
		if err := d.transport.ResetInputBuffer(); err != nil {
			return hostlink.Message{}, &Error{Op: op, Kind: KindTransport, Err: fmt.Errorf("reset input buffer: %w", err)}
		}
		d.dirty = false
	}

	frame := hostlink.Serialize(cmd, d.config.Node)
	d.logDebug("tx", "op", op, "frame", hostlink.FormatFrame(frame))
	d.record(capture.DirectionTx, frame, nil)

	if _, err := d.transport.Write(frame); err != nil {
		d.dirty = true
		return hostlink.Message{}, &Error{Op: op, Kind: KindTransport, Err: fmt.Errorf("write: %w", err)}
	}

	msg, err := d.readResponse(ctx, op)
	if err != nil {
		d.dirty = true
		d.decoder.Reset()
		d.logError("exchange failed", "op", op, "node", d.config.Node.String(), "error", err)
		return hostlink.Message{}, err
	}

	if msg.Node() != d.config.Node {
		d.dirty = true
		return hostlink.Message{}, &Error{
			Op:   op,
			Kind: KindResponse,
			Err:  fmt.Errorf("%w: expected %s, got %s", ErrNodeMismatch, d.config.Node, msg.Node()),
		}
	}
	if msg.Header() != cmd.Header() {
		d.dirty = true
		return hostlink.Message{}, &Error{
			Op:   op,
			Kind: KindResponse,
			Err:  fmt.Errorf("%w: sent %s, got %s", ErrHeaderMismatch, cmd.Header(), msg.Header()),
		}
	}

	return msg, nil
}

// readResponse reads until the decoder completes a frame, the timeout
// elapses or ctx ends.
func (d *PlcDevice) readResponse(ctx context.Context, op string) (hostlink.Message, error) {
	d.decoder.Reset()
	d.rx = d.rx[:0]
	deadline := time.Now().Add(d.config.Timeout)

	for {
		n, err := d.transport.Read(d.buf)
		if n > 0 {
			d.rx = append(d.rx, d.buf[:n]...)

			msg, used, derr := d.decoder.Decode(d.buf[:n])
			if derr != nil {
				d.record(capture.DirectionRx, d.rx, derr)
				return hostlink.Message{}, &Error{Op: op, Kind: KindProtocol, Err: derr}
			}
			if msg != nil {
				if used < n {
					// Anything after the terminator is not part of this response
					d.dirty = true
				}
				d.record(capture.DirectionRx, d.decoder.LastFrame(), nil)
				d.logDebug("rx", "op", op, "frame", hostlink.FormatFrame(d.decoder.LastFrame()))
				return *msg, nil
			}
		}

		if err != nil {
			if len(d.rx) > 0 {
				d.record(capture.DirectionRx, d.rx, err)
			}
			return hostlink.Message{}, &Error{Op: op, Kind: KindTransport, Err: fmt.Errorf("read: %w", err)}
		}

		if !time.Now().Before(deadline) {
			if len(d.rx) > 0 {
				d.record(capture.DirectionRx, d.rx, ErrTimeout)
			}
			return hostlink.Message{}, &Error{
				Op:   op,
				Kind: KindTimeout,
				Err:  fmt.Errorf("%w after %s (%d bytes received)", ErrTimeout, d.config.Timeout, len(d.rx)),
			}
		}

		if n > 0 {
			if err := ctx.Err(); err != nil {
				return hostlink.Message{}, &Error{Op: op, Kind: KindCanceled, Err: err}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return hostlink.Message{}, &Error{Op: op, Kind: KindCanceled, Err: ctx.Err()}
		case <-time.After(d.config.PollInterval):
		}
	}
}

// decodeError classifies a response decoding failure.
func decodeError(op string, err error) error {
	var endErr *hostlink.EndCodeError
	var statusErr *hostlink.StatusParseError
	switch {
	case errors.As(err, &endErr):
		return &Error{Op: op, Kind: KindController, Err: err}
	case errors.As(err, &statusErr):
		return &Error{Op: op, Kind: KindStatus, Err: err}
	default:
		return &Error{Op: op, Kind: KindProtocol, Err: err}
	}
}

// account updates the statistics with the outcome of one exchange.
func (d *PlcDevice) account(err error) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	if err == nil {
		d.stats.Update(nil)
		return
	}

	var de *Error
	if !errors.As(err, &de) {
		d.stats.Update(err)
		return
	}
	switch de.Kind {
	case KindTimeout:
		d.stats.RecordTimeout()
	case KindTransport:
		d.stats.RecordTransportError()
	case KindCanceled:
	default:
		d.stats.Update(de.Err)
	}
}

func (d *PlcDevice) record(dir capture.Direction, raw []byte, err error) {
	if d.config.Recorder == nil {
		return
	}
	if rerr := d.config.Recorder.Record(capture.NewRecord(dir, raw, err)); rerr != nil {
		d.logError("capture failed", "error", rerr)
	}
}

// logDebug logs a debug message if a logger is configured.
func (d *PlcDevice) logDebug(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (d *PlcDevice) logError(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Error(msg, keysAndValues...)
	}
}
