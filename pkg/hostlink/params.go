// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

// MessageParams is the ASCII parameter block of a frame.
type MessageParams []byte

// NewMessageParams validates s against the parameter alphabet and returns a
// copy of it as a parameter block.
func NewMessageParams(s string) (MessageParams, error) {
	if i := invalidParamIndex([]byte(s)); i >= 0 {
		return nil, newProtocolError(KindInvalidCharacters, "byte 0x%02X at offset %d", s[i], i)
	}
	return MessageParams(s), nil
}

// String returns the parameter block as text.
func (p MessageParams) String() string {
	return string(p)
}

// Clone returns an independent copy of p.
func (p MessageParams) Clone() MessageParams {
	if p == nil {
		return nil
	}
	return append(MessageParams(nil), p...)
}

// ValidParamByte reports whether b may appear in a parameter block:
// printable ASCII except the '*' terminator byte.
func ValidParamByte(b byte) bool {
	return b >= 0x20 && b <= 0x7E && b != TermByte
}

// invalidParamIndex returns the offset of the first byte outside the
// parameter alphabet, or -1.
func invalidParamIndex(b []byte) int {
	for i, c := range b {
		if !ValidParamByte(c) {
			return i
		}
	}
	return -1
}
