// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import (
	"errors"
	"testing"
)

func TestParseStatus_8000BytesNoAlarms(t *testing.T) {
	s, err := ParseStatus(0x00, 0x28)
	if err != nil {
		t.Fatalf("ParseStatus failed: %v", err)
	}

	expected := Status{
		Mode:   ModeProgram,
		Memory: StatusMemory{Size: 8000},
	}
	if s != expected {
		t.Errorf("expected %+v, got %+v", expected, s)
	}
	if s.Memory.WriteProtected || s.Memory.MessageError || s.Memory.FatalError || s.Memory.FALSGenerated {
		t.Errorf("no flags should be set: %+v", s.Memory)
	}
}

func TestParseStatus_Modes(t *testing.T) {
	tests := []struct {
		mode     byte
		expected Mode
	}{
		{0x00, ModeProgram},
		{0x02, ModeRun},
		{0x03, ModeMonitor},
		{0x82, ModeRun},
		{0x13, ModeMonitor},
	}

	for _, tt := range tests {
		s, err := ParseStatus(tt.mode, 0x00)
		if err != nil {
			t.Errorf("ParseStatus(0x%02X) failed: %v", tt.mode, err)
			continue
		}
		if s.Mode != tt.expected {
			t.Errorf("mode 0x%02X: expected %s, got %s", tt.mode, tt.expected, s.Mode)
		}
	}
}

func TestParseStatus_UnmappedMode(t *testing.T) {
	for _, mode := range []byte{0x01, 0x81} {
		_, err := ParseStatus(mode, 0x20)
		if !errors.Is(err, ErrModeBitsNotMapped) {
			t.Errorf("mode 0x%02X: expected ErrModeBitsNotMapped, got %v", mode, err)
		}
	}
}

func TestParseStatus_MemorySizes(t *testing.T) {
	tests := []struct {
		memory byte
		size   int
	}{
		{0x00, 0},
		{0x10, 4000},
		{0x20, 8000},
		{0x40, 7200},
	}

	for _, tt := range tests {
		s, err := ParseStatus(0x02, tt.memory)
		if err != nil {
			t.Errorf("ParseStatus(memory 0x%02X) failed: %v", tt.memory, err)
			continue
		}
		if s.Memory.Size != tt.size {
			t.Errorf("memory 0x%02X: expected size %d, got %d", tt.memory, tt.size, s.Memory.Size)
		}
		if s.Memory.SizeKnown() != (tt.size > 0) {
			t.Errorf("memory 0x%02X: SizeKnown() = %v", tt.memory, s.Memory.SizeKnown())
		}
	}
}

func TestParseStatus_UnmappedMemorySize(t *testing.T) {
	for _, memory := range []byte{0x30, 0x50, 0x60, 0x70} {
		_, err := ParseStatus(0x02, memory)
		if !errors.Is(err, ErrMemorySizeNotMapped) {
			t.Errorf("memory 0x%02X: expected ErrMemorySizeNotMapped, got %v", memory, err)
		}
	}
}

func TestParseStatus_FlagsIndependent(t *testing.T) {
	// Every combination of the four low bits must come back unchanged
	for bits := byte(0); bits < 0x10; bits++ {
		s, err := ParseStatus(0x00, 0x20|bits)
		if err != nil {
			t.Fatalf("ParseStatus(memory 0x%02X) failed: %v", 0x20|bits, err)
		}
		m := s.Memory
		if m.WriteProtected != (bits&0x08 == 0) ||
			m.FALSGenerated != (bits&0x04 != 0) ||
			m.FatalError != (bits&0x02 != 0) ||
			m.MessageError != (bits&0x01 != 0) {
			t.Errorf("memory 0x%02X decoded as %+v", 0x20|bits, m)
		}
		if m.Size != 8000 {
			t.Errorf("memory 0x%02X: flags changed size to %d", 0x20|bits, m.Size)
		}
	}
}

func TestParseStatus_WriteProtectBitClear(t *testing.T) {
	tests := []struct {
		memory    byte
		protected bool
	}{
		{0x20, true},
		{0x28, false},
		{0x40, true},
		{0x48, false},
		{0x00, true},
		{0x0F, false},
	}

	for _, tt := range tests {
		s, err := ParseStatus(0x02, tt.memory)
		if err != nil {
			t.Fatalf("ParseStatus(memory 0x%02X) failed: %v", tt.memory, err)
		}
		if s.Memory.WriteProtected != tt.protected {
			t.Errorf("memory 0x%02X: WriteProtected = %v, want %v", tt.memory, s.Memory.WriteProtected, tt.protected)
		}
	}
}

func mustParse(t *testing.T, frame string) Message {
	t.Helper()
	msg, err := ParseMessage([]byte(frame))
	if err != nil {
		t.Fatalf("ParseMessage(%q) failed: %v", frame, err)
	}
	return msg
}

func TestDecodeStatusResponse(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		expected Status
	}{
		{
			name:     "run 8000 bytes",
			frame:    "@00MS00022856*\r",
			expected: Status{Mode: ModeRun, Memory: StatusMemory{Size: 8000}},
		},
		{
			name:     "run 7200 bytes write protected",
			frame:    "@00MS00024058*\r",
			expected: Status{Mode: ModeRun, Memory: StatusMemory{Size: 7200, WriteProtected: true}},
		},
		{
			name:  "monitor with alarms and message",
			frame: "@00MS00032FTANK LOW4D*\r",
			expected: Status{
				Mode: ModeMonitor,
				Memory: StatusMemory{
					Size:          8000,
					FALSGenerated: true,
					FatalError:    true,
					MessageError:  true,
				},
				Message: "TANK LOW",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeStatusResponse(mustParse(t, tt.frame))
			if err != nil {
				t.Fatalf("DecodeStatusResponse failed: %v", err)
			}
			if s != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, s)
			}
		})
	}
}

func TestDecodeStatusResponse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		expected error
	}{
		{"no params", "@00MS5E*\r", ErrMissingModeBytes},
		{"half mode", "@00MS0006E*\r", ErrMissingModeBytes},
		{"no memory byte", "@00MS00025C*\r", ErrMissingMemoryStatusBytes},
		{"unmapped mode", "@00MS0001205D*\r", ErrModeBitsNotMapped},
		{"unmapped memory size", "@00MS0002705B*\r", ErrMemorySizeNotMapped},
		{"mode not hex", "@00MS00XX205C*\r", ErrModeBitsNotMapped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStatusResponse(mustParse(t, tt.frame))
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestDecodeStatusResponse_EndCode(t *testing.T) {
	_, err := DecodeStatusResponse(mustParse(t, "@00MS135C*\r"))

	var ece *EndCodeError
	if !errors.As(err, &ece) {
		t.Fatalf("expected *EndCodeError, got %T (%v)", err, err)
	}
	if ece.Code != EndFCSError || ece.Header != "MS" {
		t.Errorf("unexpected end code error: %+v", ece)
	}
}
