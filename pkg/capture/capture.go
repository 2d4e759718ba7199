// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records Hostlink traffic to a CBOR stream and reads it back.
//
// A capture file is a plain sequence of CBOR-encoded Record values with no
// header, so a truncated file is still readable up to the last full record.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction tells whether a frame was sent to or received from a controller.
type Direction uint8

// Directions
const (
	DirectionTx Direction = iota + 1
	DirectionRx
)

// String returns "TX" or "RX".
func (d Direction) String() string {
	switch d {
	case DirectionTx:
		return "TX"
	case DirectionRx:
		return "RX"
	default:
		return fmt.Sprintf("DIR(%d)", uint8(d))
	}
}

// Record is one captured frame.
type Record struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`
	Raw       []byte    `cbor:"3,keyasint"`

	// Error is the decode or transport error seen with the frame, if any
	Error string `cbor:"4,keyasint,omitempty"`
}

// NewRecord builds a record stamped with the current time.
func NewRecord(dir Direction, raw []byte, err error) Record {
	r := Record{
		Timestamp: time.Now().UTC(),
		Direction: dir,
		Raw:       append([]byte(nil), raw...),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Writer appends records to an underlying stream. It is safe for concurrent
// use.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	enc *cbor.Encoder
	n   int
}

// NewWriter creates a writer that encodes records onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, enc: cbor.NewEncoder(w)}
}

// Record writes r.
func (w *Writer) Record(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("capture: encode record: %w", err)
	}
	w.n++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close closes the underlying stream if it is an io.Closer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reader reads records from a capture stream.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF when the stream ends cleanly.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("capture: decode record: %w", err)
	}
	return rec, nil
}

// ReadAll reads every record until the end of the stream.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
