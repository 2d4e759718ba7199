// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import (
	"errors"
	"strings"
	"testing"
)

func TestCommandTable_Complete(t *testing.T) {
	if len(commandTable) != 32 {
		t.Errorf("expected 32 header codes, got %d", len(commandTable))
	}

	for kind, info := range commandTable {
		if len(info.code) != HeaderCodeSize {
			t.Errorf("%s: header code %q is not %d characters", info.name, info.code, HeaderCodeSize)
		}
		got, ok := LookupHeaderCode(info.code)
		if !ok || got != kind {
			t.Errorf("LookupHeaderCode(%q) = %v, %v", info.code, got, ok)
		}
	}
}

func TestCommandKind_String(t *testing.T) {
	tests := []struct {
		kind     CommandKind
		expected string
	}{
		{CmdStatusRead, "STATUS READ"},
		{CmdTest, "TEST"},
		{CmdIRSRAreaRead, "IR/SR AREA READ"},
		{CmdCompoundCommand, "COMPOUND COMMAND"},
		{CmdUnknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestNewMessageParams(t *testing.T) {
	if _, err := NewMessageParams("ABC 123 ~"); err != nil {
		t.Errorf("printable ASCII should be accepted: %v", err)
	}

	for _, bad := range []string{"A*B", "\r", "\x00", "tab\there", "\x7f", "é"} {
		_, err := NewMessageParams(bad)
		if !errors.Is(err, ErrInvalidCharacters) {
			t.Errorf("NewMessageParams(%q): expected ErrInvalidCharacters, got %v", bad, err)
		}
	}
}

func TestNewTestCommand(t *testing.T) {
	cmd, err := NewTestCommand("HELLO")
	if err != nil {
		t.Fatalf("NewTestCommand failed: %v", err)
	}
	if cmd.Kind() != CmdTest || cmd.Header() != "TS" || cmd.Params().String() != "HELLO" {
		t.Errorf("unexpected command: %s %q", cmd, cmd.Params())
	}

	if _, err := NewTestCommand(strings.Repeat("A", MaxTestDataSize)); err != nil {
		t.Errorf("%d bytes should be accepted: %v", MaxTestDataSize, err)
	}
	if _, err := NewTestCommand(strings.Repeat("A", MaxTestDataSize+1)); err == nil {
		t.Errorf("%d bytes should be rejected", MaxTestDataSize+1)
	}
	if _, err := NewTestCommand("no*star"); !errors.Is(err, ErrInvalidCharacters) {
		t.Errorf("expected ErrInvalidCharacters, got %v", err)
	}
}

func TestNewCommand_CopiesParams(t *testing.T) {
	params := MessageParams("0001")
	cmd, err := NewCommand(CmdDMAreaRead, params)
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}
	params[0] = '9'

	if cmd.Params().String() != "0001" {
		t.Errorf("command params changed with caller buffer: %q", cmd.Params())
	}
}

func TestNewCommand_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewCommand(CmdUnknown) should panic")
		}
	}()
	_, _ = NewCommand(CmdUnknown, nil)
}

func TestNewCommand_RejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params string
	}{
		{"embedded terminator", "A*\r\x01"},
		{"asterisk", "00*1"},
		{"carriage return", "0001\r"},
		{"control byte", "\x01"},
		{"high byte", "\xB0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewCommand(CmdTest, MessageParams(tt.params))
			if !errors.Is(err, ErrInvalidCharacters) {
				t.Fatalf("expected ErrInvalidCharacters, got %v (command %v)", err, cmd)
			}
		})
	}

	// Whatever NewCommand accepts must parse back from the wire
	cmd, err := NewCommand(CmdTest, MessageParams("A B~"))
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}
	if _, err := ParseMessage(Serialize(cmd, 0)); err != nil {
		t.Errorf("serialized command does not parse: %v", err)
	}
}

func TestNewRawCommand(t *testing.T) {
	cmd, err := NewRawCommand("MS", nil)
	if err != nil {
		t.Fatalf("NewRawCommand failed: %v", err)
	}
	if cmd.Kind() != CmdStatusRead {
		t.Errorf("known code should resolve, got %v", cmd.Kind())
	}

	if _, err := NewRawCommand("M", nil); !errors.Is(err, ErrMissingHeaderCode) {
		t.Errorf("short header: expected ErrMissingHeaderCode, got %v", err)
	}
	if _, err := NewRawCommand("M*", nil); !errors.Is(err, ErrInvalidCharacters) {
		t.Errorf("header with '*': expected ErrInvalidCharacters, got %v", err)
	}
	if _, err := NewRawCommand("XX", MessageParams("\r")); !errors.Is(err, ErrInvalidCharacters) {
		t.Errorf("params with CR: expected ErrInvalidCharacters, got %v", err)
	}
}

func TestNewAreaRead(t *testing.T) {
	cmd, err := NewAreaRead(CmdDMAreaRead, 100, 12)
	if err != nil {
		t.Fatalf("NewAreaRead failed: %v", err)
	}
	if cmd.Header() != "RD" || cmd.Params().String() != "01000012" {
		t.Errorf("unexpected area read: %s %q", cmd.Header(), cmd.Params())
	}

	tests := []struct {
		name    string
		kind    CommandKind
		address int
		count   int
	}{
		{"not an area read", CmdStatusRead, 0, 1},
		{"negative address", CmdDMAreaRead, -1, 1},
		{"address too large", CmdDMAreaRead, 10000, 1},
		{"zero count", CmdDMAreaRead, 0, 0},
		{"count too large", CmdDMAreaRead, 0, 10000},
	}
	for _, tt := range tests {
		if _, err := NewAreaRead(tt.kind, tt.address, tt.count); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		name    string
		want    CommandKind
		wantErr bool
	}{
		{"dm", CmdDMAreaRead, false},
		{"DM", CmdDMAreaRead, false},
		{"ir", CmdIRSRAreaRead, false},
		{"sr", CmdIRSRAreaRead, false},
		{"hr", CmdHRAreaRead, false},
		{"ar", CmdARAreaRead, false},
		{"xx", CmdUnknown, true},
		{"", CmdUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArea(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArea(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseArea(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	for _, name := range AreaNames {
		kind, err := ParseArea(name)
		if err != nil || !kind.IsAreaRead() {
			t.Errorf("area %q does not map to an area read", name)
		}
	}
}
