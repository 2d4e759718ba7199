// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import "fmt"

// Decoder splits a byte stream into Hostlink frames.
//
// A frame runs from '@' through the "*\r" terminator. Bytes seen outside a
// frame are kept; if they end in a terminator they are handed to
// ParseMessage so the caller gets a precise diagnosis instead of silence.
type Decoder struct {
	state     int
	rawBuffer []byte
	lastFrame []byte
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		rawBuffer: make([]byte, 0, MaxFrameSize),
	}
}

// Reset discards any partial frame and returns to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the bytes accumulated since the last completed frame
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// LastFrame returns the most recent terminated frame, whether it parsed or
// not. The slice is overwritten by the next frame.
func (d *Decoder) LastFrame() []byte {
	return d.lastFrame
}

// Pending reports whether a frame has started but not yet terminated.
func (d *Decoder) Pending() bool {
	return d.state != stateIdle
}

// Decode feeds each byte of data through DecodeByte and returns the first
// completed message or error. The number of bytes consumed is returned so the
// caller can resume with the rest.
func (d *Decoder) Decode(data []byte) (*Message, int, error) {
	for i, b := range data {
		msg, err := d.DecodeByte(b)
		if msg != nil || err != nil {
			return msg, i + 1, err
		}
	}
	return nil, len(data), nil
}

// DecodeByte processes a single byte.
// Returns a completed message, or nil while the frame is incomplete.
// Returns an error if a terminated frame fails to parse or a frame exceeds
// MaxFrameSize.
func (d *Decoder) DecodeByte(b byte) (*Message, error) {
	if b == StartByte && d.state == stateIdle {
		// Drop anything that was not part of a frame
		d.rawBuffer = append(d.rawBuffer[:0], b)
		d.state = stateFrame
		return nil, nil
	}

	if len(d.rawBuffer) >= MaxFrameSize {
		n := len(d.rawBuffer) + 1
		d.Reset()
		return nil, newProtocolError(KindFrameTooLong, "%d bytes without terminator (max %d)", n, MaxFrameSize)
	}
	d.rawBuffer = append(d.rawBuffer, b)

	switch d.state {
	case stateIdle:
		n := len(d.rawBuffer)
		if b == CRByte && n >= TerminatorSize && d.rawBuffer[n-TerminatorSize] == TermByte {
			return d.complete()
		}
		return nil, nil

	case stateFrame:
		if b == TermByte {
			d.state = stateTerm
		}
		return nil, nil

	case stateTerm:
		switch b {
		case CRByte:
			return d.complete()
		case TermByte:
			return nil, nil
		}
		d.state = stateFrame
		return nil, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("hostlink: invalid decoder state %d", d.state)
	}
}

func (d *Decoder) complete() (*Message, error) {
	d.lastFrame = append(d.lastFrame[:0], d.rawBuffer...)
	d.Reset()

	msg, err := ParseMessage(d.lastFrame)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
