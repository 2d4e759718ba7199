// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import "fmt"

// ProtocolErrorKind identifies a framing or parsing failure.
type ProtocolErrorKind int

// Protocol error kinds
const (
	KindMissingAtSymbol ProtocolErrorKind = iota + 1
	KindInvalidOrMissingNodeID
	KindMissingHeaderCode
	KindUnknownCommandType
	KindInvalidCharacters
	KindMissingFcs
	KindMissingTerminator
	KindChecksumMismatch
	KindInvalidNodeID
	KindFrameTooLong
)

// String returns a short description of the kind.
func (k ProtocolErrorKind) String() string {
	switch k {
	case KindMissingAtSymbol:
		return "expected '@' as first character"
	case KindInvalidOrMissingNodeID:
		return "invalid or missing node id"
	case KindMissingHeaderCode:
		return "missing header code"
	case KindUnknownCommandType:
		return "unknown command type"
	case KindInvalidCharacters:
		return "parameter block has invalid characters"
	case KindMissingFcs:
		return "missing FCS"
	case KindMissingTerminator:
		return "expected terminator at end of frame"
	case KindChecksumMismatch:
		return "FCS mismatch"
	case KindInvalidNodeID:
		return "invalid node id"
	case KindFrameTooLong:
		return "frame too long"
	default:
		return fmt.Sprintf("protocol error %d", int(k))
	}
}

// ProtocolError describes why a frame or a frame component was rejected.
// Compare against the Err* sentinels with errors.Is; only Kind is matched.
type ProtocolError struct {
	Kind   ProtocolErrorKind
	Detail string

	// Value is the rejected node id (KindInvalidNodeID)
	Value int

	// Header is the rejected header code (KindUnknownCommandType)
	Header string

	// Expected is the FCS computed over the frame, Actual the FCS it carried
	// (KindChecksumMismatch)
	Expected uint8
	Actual   uint8
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	switch e.Kind {
	case KindChecksumMismatch:
		return fmt.Sprintf("hostlink: %s: computed 0x%02X, frame carries 0x%02X", e.Kind, e.Expected, e.Actual)
	case KindInvalidNodeID:
		return fmt.Sprintf("hostlink: node id must be 0..99, got %d", e.Value)
	case KindUnknownCommandType:
		return fmt.Sprintf("hostlink: %s %q", e.Kind, e.Header)
	}
	if e.Detail != "" {
		return fmt.Sprintf("hostlink: %s: %s", e.Kind, e.Detail)
	}
	return "hostlink: " + e.Kind.String()
}

// Is reports whether target is a *ProtocolError of the same kind.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Kind == e.Kind
}

func newProtocolError(kind ProtocolErrorKind, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Sentinel protocol errors for use with errors.Is
var (
	ErrMissingAtSymbol        = &ProtocolError{Kind: KindMissingAtSymbol}
	ErrInvalidOrMissingNodeID = &ProtocolError{Kind: KindInvalidOrMissingNodeID}
	ErrMissingHeaderCode      = &ProtocolError{Kind: KindMissingHeaderCode}
	ErrUnknownCommandType     = &ProtocolError{Kind: KindUnknownCommandType}
	ErrInvalidCharacters      = &ProtocolError{Kind: KindInvalidCharacters}
	ErrMissingFcs             = &ProtocolError{Kind: KindMissingFcs}
	ErrMissingTerminator      = &ProtocolError{Kind: KindMissingTerminator}
	ErrChecksumMismatch       = &ProtocolError{Kind: KindChecksumMismatch}
	ErrInvalidNodeID          = &ProtocolError{Kind: KindInvalidNodeID}
	ErrFrameTooLong           = &ProtocolError{Kind: KindFrameTooLong}
)

// StatusErrorKind identifies a status response decoding failure.
type StatusErrorKind int

// Status error kinds
const (
	StatusMissingModeBytes StatusErrorKind = iota + 1
	StatusMissingMemoryStatusBytes
	StatusModeBitsNotMapped
	StatusMemorySizeNotMapped
)

// String returns a short description of the kind.
func (k StatusErrorKind) String() string {
	switch k {
	case StatusMissingModeBytes:
		return "missing mode bytes"
	case StatusMissingMemoryStatusBytes:
		return "missing memory status bytes"
	case StatusModeBitsNotMapped:
		return "mode bits not mapped"
	case StatusMemorySizeNotMapped:
		return "memory size bits not mapped"
	default:
		return fmt.Sprintf("status error %d", int(k))
	}
}

// StatusParseError describes why a status response could not be decoded.
type StatusParseError struct {
	Kind   StatusErrorKind
	Detail string
}

// Error implements the error interface
func (e *StatusParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("hostlink: status: %s: %s", e.Kind, e.Detail)
	}
	return "hostlink: status: " + e.Kind.String()
}

// Is reports whether target is a *StatusParseError of the same kind.
func (e *StatusParseError) Is(target error) bool {
	t, ok := target.(*StatusParseError)
	return ok && t.Kind == e.Kind
}

// Sentinel status errors for use with errors.Is
var (
	ErrMissingModeBytes         = &StatusParseError{Kind: StatusMissingModeBytes}
	ErrMissingMemoryStatusBytes = &StatusParseError{Kind: StatusMissingMemoryStatusBytes}
	ErrModeBitsNotMapped        = &StatusParseError{Kind: StatusModeBitsNotMapped}
	ErrMemorySizeNotMapped      = &StatusParseError{Kind: StatusMemorySizeNotMapped}
)
