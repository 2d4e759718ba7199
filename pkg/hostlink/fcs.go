// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

const hexDigits = "0123456789ABCDEF"

// FcsBytes holds the two ASCII hex digits of a frame check sequence.
type FcsBytes [FcsSize]byte

// ComputeFCS computes the frame check sequence for the given span.
// The span must run from the '@' start byte through the last parameter byte;
// any other bytes are folded into the result as well.
func ComputeFCS(data []byte) uint8 {
	var fcs uint8
	for _, b := range data {
		fcs ^= b
	}
	return fcs
}

// RenderFCS converts a checksum value into two uppercase hex digits.
func RenderFCS(fcs uint8) FcsBytes {
	return FcsBytes{hexDigits[fcs>>4], hexDigits[fcs&0x0F]}
}

// ParseFCS converts two uppercase hex digits into a checksum value.
func ParseFCS(b []byte) (uint8, error) {
	if len(b) != FcsSize {
		return 0, newProtocolError(KindMissingFcs, "expected %d FCS digits, got %d", FcsSize, len(b))
	}
	hi, ok := hexValue(b[0])
	if !ok {
		return 0, newProtocolError(KindMissingFcs, "invalid FCS digit %q", b[0])
	}
	lo, ok := hexValue(b[1])
	if !ok {
		return 0, newProtocolError(KindMissingFcs, "invalid FCS digit %q", b[1])
	}
	return hi<<4 | lo, nil
}

// Value returns the numeric checksum held by f.
// The result is meaningless if f was not produced by RenderFCS or a parser.
func (f FcsBytes) Value() uint8 {
	hi, _ := hexValue(f[0])
	lo, _ := hexValue(f[1])
	return hi<<4 | lo
}

// String returns the two hex digits.
func (f FcsBytes) String() string {
	return string(f[:])
}

// hexValue decodes a single uppercase hex digit.
func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// parseHexByte decodes two uppercase hex digits into a byte.
func parseHexByte(b []byte) (uint8, bool) {
	if len(b) < 2 {
		return 0, false
	}
	hi, ok := hexValue(b[0])
	if !ok {
		return 0, false
	}
	lo, ok := hexValue(b[1])
	if !ok {
		return 0, false
	}
	return hi<<4 | lo, true
}
