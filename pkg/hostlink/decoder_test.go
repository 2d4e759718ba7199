// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import (
	"errors"
	"strings"
	"testing"
)

// decodeAll feeds data through d and collects messages and errors in order
func decodeAll(d *Decoder, data []byte) ([]*Message, []error) {
	var msgs []*Message
	var errs []error
	for _, b := range data {
		msg, err := d.DecodeByte(b)
		if msg != nil {
			msgs = append(msgs, msg)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return msgs, errs
}

func TestDecoder_SimpleFrame(t *testing.T) {
	d := NewDecoder()
	msgs, errs := decodeAll(d, []byte("@00MS0002205E*\r"))

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Kind() != CmdStatusRead || msgs[0].Params().String() != "000220" {
		t.Errorf("unexpected message: %s %q", msgs[0].Header(), msgs[0].Params())
	}
	if string(d.LastFrame()) != "@00MS0002205E*\r" {
		t.Errorf("unexpected last frame %q", d.LastFrame())
	}
	if d.Pending() {
		t.Error("decoder should be idle after a complete frame")
	}
}

func TestDecoder_MultipleFramesWithNoise(t *testing.T) {
	d := NewDecoder()
	stream := "\x00\xff@00TSHELLO05*\r@00MS5E*\r"
	msgs, errs := decodeAll(d, []byte(stream))

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Kind() != CmdTest || msgs[1].Kind() != CmdStatusRead {
		t.Errorf("unexpected kinds: %v, %v", msgs[0].Kind(), msgs[1].Kind())
	}
}

func TestDecoder_AsteriskBeforeTerminator(t *testing.T) {
	// '*' not followed by CR keeps the frame open
	d := NewDecoder()
	_, errs := decodeAll(d, []byte("@00TSA*B47*\r"))

	if len(errs) != 1 || !errors.Is(errs[0], ErrInvalidCharacters) {
		t.Errorf("expected a single ErrInvalidCharacters, got %v", errs)
	}
}

func TestDecoder_TerminatedNoise(t *testing.T) {
	d := NewDecoder()
	msgs, errs := decodeAll(d, []byte("00MS5E*\r"))

	if len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrMissingAtSymbol) {
		t.Errorf("expected ErrMissingAtSymbol, got %v", errs)
	}
}

func TestDecoder_ChecksumMismatch(t *testing.T) {
	d := NewDecoder()
	_, errs := decodeAll(d, []byte("@00MS5F*\r@00MS5E*\r"))

	if len(errs) != 1 || !errors.Is(errs[0], ErrChecksumMismatch) {
		t.Errorf("expected one ErrChecksumMismatch, got %v", errs)
	}
	if string(d.LastFrame()) != "@00MS5E*\r" {
		t.Errorf("decoder should recover for the next frame, last frame %q", d.LastFrame())
	}
}

func TestDecoder_FrameTooLong(t *testing.T) {
	d := NewDecoder()
	long := "@00TS" + strings.Repeat("A", MaxFrameSize)
	_, errs := decodeAll(d, []byte(long))

	if len(errs) == 0 || !errors.Is(errs[0], ErrFrameTooLong) {
		t.Fatalf("expected ErrFrameTooLong, got %v", errs)
	}
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	decodeAll(d, []byte("@00MS"))
	if !d.Pending() {
		t.Fatal("decoder should hold a partial frame")
	}
	if string(d.GetRawBytes()) != "@00MS" {
		t.Errorf("unexpected raw bytes %q", d.GetRawBytes())
	}

	d.Reset()
	if d.Pending() || len(d.GetRawBytes()) != 0 {
		t.Error("Reset should discard the partial frame")
	}
}

func TestDecoder_Decode(t *testing.T) {
	d := NewDecoder()
	data := []byte("@00MS5E*\r@00TS47*\r")

	msg, n, err := d.Decode(data)
	if err != nil || msg == nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n != 9 {
		t.Errorf("expected 9 bytes consumed, got %d", n)
	}

	msg, n, err = d.Decode(data[n:])
	if err != nil || msg == nil || msg.Kind() != CmdTest {
		t.Fatalf("second Decode failed: %v %v", msg, err)
	}
	if n != 9 {
		t.Errorf("expected 9 bytes consumed, got %d", n)
	}
}
