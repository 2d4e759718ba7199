// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import (
	"fmt"
	"strings"
	"time"
)

// FormatMessage formats a message into a human-readable string
func FormatMessage(m Message, ts time.Time) string {
	timestamp := ts.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s (%s) node=%s len=%d fcs=%s\n",
		timestamp, m.Kind(), m.Header(), m.Node(), len(m.Params()), m.FCS())

	if len(m.Params()) > 0 {
		result += FormatParams(m)
	}

	return result
}

// FormatParams formats the parameter block of m. End codes and area read
// words are decoded when the block looks like a response.
func FormatParams(m Message) string {
	params := m.Params()
	result := fmt.Sprintf("  Params: %q\n", params.String())

	switch {
	case m.Kind() == CmdStatusRead:
		if s, err := DecodeStatusResponse(m); err == nil {
			result += FormatStatus(s)
		}
	case m.Kind().IsAreaRead():
		// Requests carry 8 decimal digits, responses an end code and words
		if words, err := DecodeAreaWords(m); err == nil && len(params) != 8 {
			result += "  Words: " + FormatWords(words) + "\n"
		}
	}

	return result
}

// FormatStatus formats a decoded status block
func FormatStatus(s Status) string {
	var b strings.Builder

	fmt.Fprintf(&b, "  Mode: %s\n", s.Mode)
	if s.Memory.SizeKnown() {
		fmt.Fprintf(&b, "  Program Memory: %d bytes", s.Memory.Size)
	} else {
		b.WriteString("  Program Memory: not reported")
	}
	if s.Memory.WriteProtected {
		b.WriteString(" (write protected)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  FALS: %s, Fatal Error: %s, Message Error: %s\n",
		yesNo(s.Memory.FALSGenerated), yesNo(s.Memory.FatalError), yesNo(s.Memory.MessageError))
	if s.Message != "" {
		fmt.Fprintf(&b, "  Message: %q\n", s.Message)
	}

	return b.String()
}

// FormatWords renders words as space separated 4 digit hex values
func FormatWords(words []uint16) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("%04X", w)
	}
	return strings.Join(parts, " ")
}

// FormatFrame renders raw frame bytes with the terminator made visible
func FormatFrame(frame []byte) string {
	s := strings.ReplaceAll(string(frame), "\r", `\r`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
