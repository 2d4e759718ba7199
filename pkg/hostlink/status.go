// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import (
	"fmt"
	"strings"
)

// Mode is the controller operating mode reported by STATUS READ.
type Mode uint8

// Operating modes
const (
	ModeProgram Mode = iota
	ModeRun
	ModeMonitor
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeProgram:
		return "PROGRAM"
	case ModeRun:
		return "RUN"
	case ModeMonitor:
		return "MONITOR"
	default:
		return fmt.Sprintf("MODE(%d)", uint8(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Mode byte bits
const (
	modeMask    = 0x03
	modeProgram = 0x00
	modeRun     = 0x02
	modeMonitor = 0x03
)

// Memory status byte bits
const (
	memSizeMask       = 0x70
	memSizeNone       = 0x00
	memSize4000       = 0x10
	memSize8000       = 0x20
	memSize7200       = 0x40
	memWriteEnabled   = 0x08 // clear when program memory is write protected
	memFALS           = 0x04
	memFatalError     = 0x02
	memMessageError   = 0x01
)

// StatusMemory describes program memory and the alarm flags.
type StatusMemory struct {
	// Size is the program memory size in bytes, or 0 when the controller
	// does not report one.
	Size int `json:"size,omitempty"`

	WriteProtected bool `json:"write_protected"`
	MessageError   bool `json:"message_error"`
	FatalError     bool `json:"fatal_error"`
	FALSGenerated  bool `json:"fals_generated"`
}

// SizeKnown reports whether the controller reported a memory size.
func (m StatusMemory) SizeKnown() bool {
	return m.Size > 0
}

// Status is the decoded controller state.
type Status struct {
	Mode   Mode         `json:"mode"`
	Memory StatusMemory `json:"memory"`

	// Message is the optional MSG instruction text that follows the status
	// bytes, trimmed of trailing blanks.
	Message string `json:"message,omitempty"`
}

// ParseStatus decodes the raw mode and memory status bytes. Only the low two
// bits of the mode byte are read; the alarm flags all come from the memory
// status byte.
func ParseStatus(mode, memory byte) (Status, error) {
	var s Status

	switch mode & modeMask {
	case modeProgram:
		s.Mode = ModeProgram
	case modeRun:
		s.Mode = ModeRun
	case modeMonitor:
		s.Mode = ModeMonitor
	default:
		return Status{}, &StatusParseError{
			Kind:   StatusModeBitsNotMapped,
			Detail: fmt.Sprintf("mode byte 0x%02X", mode),
		}
	}

	switch memory & memSizeMask {
	case memSizeNone:
		s.Memory.Size = 0
	case memSize4000:
		s.Memory.Size = 4000
	case memSize8000:
		s.Memory.Size = 8000
	case memSize7200:
		s.Memory.Size = 7200
	default:
		return Status{}, &StatusParseError{
			Kind:   StatusMemorySizeNotMapped,
			Detail: fmt.Sprintf("memory status byte 0x%02X", memory),
		}
	}

	s.Memory.WriteProtected = memory&memWriteEnabled == 0
	s.Memory.FALSGenerated = memory&memFALS != 0
	s.Memory.FatalError = memory&memFatalError != 0
	s.Memory.MessageError = memory&memMessageError != 0

	return s, nil
}

// Status response layout: end code, mode byte and memory status byte, each as
// two hex digits, then the optional message text.
const (
	statusModeOffset    = EndCodeSize
	statusMemoryOffset  = statusModeOffset + 2
	statusMessageOffset = statusMemoryOffset + 2

	// MaxStatusMessageSize is the longest message text a controller returns.
	MaxStatusMessageSize = 16
)

// DecodeStatusResponse decodes the parameter block of a STATUS READ response.
// A non-zero end code is returned as an *EndCodeError.
func DecodeStatusResponse(m Message) (Status, error) {
	params := m.Params()

	// Error responses carry only the end code
	if err := CheckEndCode(m); err != nil {
		return Status{}, err
	}
	if len(params) < statusModeOffset+2 {
		return Status{}, ErrMissingModeBytes
	}
	if len(params) < statusMemoryOffset+2 {
		return Status{}, ErrMissingMemoryStatusBytes
	}

	mode, ok := parseHexByte(params[statusModeOffset:])
	if !ok {
		return Status{}, &StatusParseError{
			Kind:   StatusModeBitsNotMapped,
			Detail: fmt.Sprintf("mode field %q is not hex", params[statusModeOffset:statusMemoryOffset]),
		}
	}
	memory, ok := parseHexByte(params[statusMemoryOffset:])
	if !ok {
		return Status{}, &StatusParseError{
			Kind:   StatusMemorySizeNotMapped,
			Detail: fmt.Sprintf("memory field %q is not hex", params[statusMemoryOffset:statusMessageOffset]),
		}
	}

	s, err := ParseStatus(mode, memory)
	if err != nil {
		return Status{}, err
	}

	if text := params[statusMessageOffset:]; len(text) > 0 {
		if len(text) > MaxStatusMessageSize {
			text = text[:MaxStatusMessageSize]
		}
		s.Message = strings.TrimRight(string(text), " ")
	}

	return s, nil
}

// String returns a one line summary of the status.
func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode=%s", s.Mode)
	if s.Memory.SizeKnown() {
		fmt.Fprintf(&b, " memory=%d", s.Memory.Size)
	} else {
		b.WriteString(" memory=none")
	}
	if s.Memory.WriteProtected {
		b.WriteString(" write-protected")
	}
	if s.Memory.FALSGenerated {
		b.WriteString(" FALS")
	}
	if s.Memory.FatalError {
		b.WriteString(" fatal-error")
	}
	if s.Memory.MessageError {
		b.WriteString(" message-error")
	}
	return b.String()
}
