// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import (
	"fmt"
	"strings"
)

// CommandKind identifies a Hostlink command by its header code.
type CommandKind int

// Command kinds. CmdUnknown is used by commands built from a raw header code
// that is not in the table below.
const (
	CmdUnknown CommandKind = iota
	CmdIRSRAreaRead
	CmdLRAreaRead
	CmdHRAreaRead
	CmdPVRead
	CmdTCStatusRead
	CmdDMAreaRead
	CmdARAreaRead
	CmdIRSRAreaWrite
	CmdLRAreaWrite
	CmdHRAreaWrite
	CmdPVWrite
	CmdTCStatusWrite
	CmdDMAreaWrite
	CmdARAreaWrite
	CmdSVRead1
	CmdSVRead2
	CmdSVRead3
	CmdSVChange1
	CmdSVChange2
	CmdSVChange3
	CmdStatusRead
	CmdStatusWrite
	CmdErrorRead
	CmdForcedSet
	CmdForcedReset
	CmdMultipleForcedSetReset
	CmdForcedSetResetCancel
	CmdPCModelRead
	CmdTest
	CmdProgramRead
	CmdProgramWrite
	CmdCompoundCommand
)

type commandInfo struct {
	code string
	name string
}

var commandTable = map[CommandKind]commandInfo{
	CmdIRSRAreaRead:           {"RR", "IR/SR AREA READ"},
	CmdLRAreaRead:             {"RL", "LR AREA READ"},
	CmdHRAreaRead:             {"RH", "HR AREA READ"},
	CmdPVRead:                 {"RC", "PV READ"},
	CmdTCStatusRead:           {"RG", "TC STATUS READ"},
	CmdDMAreaRead:             {"RD", "DM AREA READ"},
	CmdARAreaRead:             {"RJ", "AR AREA READ"},
	CmdIRSRAreaWrite:          {"WR", "IR/SR AREA WRITE"},
	CmdLRAreaWrite:            {"WL", "LR AREA WRITE"},
	CmdHRAreaWrite:            {"WH", "HR AREA WRITE"},
	CmdPVWrite:                {"WC", "PV WRITE"},
	CmdTCStatusWrite:          {"WG", "TC STATUS WRITE"},
	CmdDMAreaWrite:            {"WD", "DM AREA WRITE"},
	CmdARAreaWrite:            {"WJ", "AR AREA WRITE"},
	CmdSVRead1:                {"R#", "SV READ 1"},
	CmdSVRead2:                {"R$", "SV READ 2"},
	CmdSVRead3:                {"R%", "SV READ 3"},
	CmdSVChange1:              {"W#", "SV CHANGE 1"},
	CmdSVChange2:              {"W$", "SV CHANGE 2"},
	CmdSVChange3:              {"W%", "SV CHANGE 3"},
	CmdStatusRead:             {"MS", "STATUS READ"},
	CmdStatusWrite:            {"SC", "STATUS WRITE"},
	CmdErrorRead:              {"MF", "ERROR READ"},
	CmdForcedSet:              {"KS", "FORCED SET"},
	CmdForcedReset:            {"KR", "FORCED RESET"},
	CmdMultipleForcedSetReset: {"FK", "MULTIPLE FORCED SET/RESET"},
	CmdForcedSetResetCancel:   {"KC", "FORCED SET/RESET CANCEL"},
	CmdPCModelRead:            {"MM", "PC MODEL READ"},
	CmdTest:                   {"TS", "TEST"},
	CmdProgramRead:            {"RP", "PROGRAM READ"},
	CmdProgramWrite:           {"WP", "PROGRAM WRITE"},
	CmdCompoundCommand:        {"QQ", "COMPOUND COMMAND"},
}

var kindByCode = func() map[string]CommandKind {
	m := make(map[string]CommandKind, len(commandTable))
	for kind, info := range commandTable {
		m[info.code] = kind
	}
	return m
}()

// LookupHeaderCode returns the command kind for a two character header code.
func LookupHeaderCode(code string) (CommandKind, bool) {
	kind, ok := kindByCode[code]
	return kind, ok
}

// Code returns the header code of k, or "" for CmdUnknown.
func (k CommandKind) Code() string {
	return commandTable[k].code
}

// String returns the human-readable command name.
func (k CommandKind) String() string {
	if info, ok := commandTable[k]; ok {
		return info.name
	}
	return "UNKNOWN"
}

// IsAreaRead reports whether k reads words from a memory area.
func (k CommandKind) IsAreaRead() bool {
	switch k {
	case CmdIRSRAreaRead, CmdLRAreaRead, CmdHRAreaRead, CmdPVRead,
		CmdTCStatusRead, CmdDMAreaRead, CmdARAreaRead:
		return true
	}
	return false
}

// Command is a request to be sent to a controller: a header code and its
// parameter block. The zero value is not a valid command.
type Command struct {
	kind   CommandKind
	header string
	params MessageParams
}

// StatusRead returns the STATUS READ (MS) command.
func StatusRead() Command {
	return Command{kind: CmdStatusRead, header: CmdStatusRead.Code()}
}

// NewTestCommand returns a TEST (TS) command that asks the controller to
// echo data back unchanged.
func NewTestCommand(data string) (Command, error) {
	if len(data) > MaxTestDataSize {
		return Command{}, newProtocolError(KindInvalidCharacters,
			"test block is %d bytes (max %d)", len(data), MaxTestDataSize)
	}
	params, err := NewMessageParams(data)
	if err != nil {
		return Command{}, err
	}
	return Command{kind: CmdTest, header: CmdTest.Code(), params: params}, nil
}

// NewCommand returns a command of a known kind with the given parameters.
// Parameters outside the parameter alphabet are rejected. Passing CmdUnknown
// panics; use NewRawCommand for unlisted header codes.
func NewCommand(kind CommandKind, params MessageParams) (Command, error) {
	code := kind.Code()
	if code == "" {
		panic(fmt.Sprintf("hostlink: no header code for command kind %d", int(kind)))
	}
	if i := invalidParamIndex(params); i >= 0 {
		return Command{}, newProtocolError(KindInvalidCharacters,
			"byte 0x%02X at offset %d", params[i], i)
	}
	return Command{kind: kind, header: code, params: params.Clone()}, nil
}

// NewRawCommand returns a command for an arbitrary two character header code.
// Known codes resolve to their kind; others are kept as CmdUnknown.
func NewRawCommand(header string, params MessageParams) (Command, error) {
	if len(header) != HeaderCodeSize {
		return Command{}, newProtocolError(KindMissingHeaderCode,
			"header code must be %d characters, got %q", HeaderCodeSize, header)
	}
	if i := invalidParamIndex([]byte(header)); i >= 0 {
		return Command{}, newProtocolError(KindInvalidCharacters,
			"header code byte 0x%02X at offset %d", header[i], i)
	}
	if i := invalidParamIndex(params); i >= 0 {
		return Command{}, newProtocolError(KindInvalidCharacters,
			"byte 0x%02X at offset %d", params[i], i)
	}
	kind, _ := LookupHeaderCode(header)
	return Command{kind: kind, header: header, params: params.Clone()}, nil
}

// NewAreaRead returns an area read command (RR, RL, RH, RC, RG, RD or RJ)
// for count words starting at address.
func NewAreaRead(kind CommandKind, address, count int) (Command, error) {
	if !kind.IsAreaRead() {
		return Command{}, fmt.Errorf("hostlink: %s is not an area read", kind)
	}
	if address < 0 || address > 9999 {
		return Command{}, fmt.Errorf("hostlink: address %d out of range 0..9999", address)
	}
	if count < 1 || count > 9999 {
		return Command{}, fmt.Errorf("hostlink: word count %d out of range 1..9999", count)
	}
	params := MessageParams(fmt.Sprintf("%04d%04d", address, count))
	return Command{kind: kind, header: kind.Code(), params: params}, nil
}

// Kind returns the command kind (CmdUnknown for unlisted raw header codes).
func (c Command) Kind() CommandKind {
	return c.kind
}

// Header returns the two character header code.
func (c Command) Header() string {
	return c.header
}

// Params returns the parameter block.
func (c Command) Params() MessageParams {
	return c.params
}

// String returns the command name and header code.
func (c Command) String() string {
	return fmt.Sprintf("%s (%s)", c.kind, c.header)
}

var areaByName = map[string]CommandKind{
	"ir": CmdIRSRAreaRead,
	"sr": CmdIRSRAreaRead,
	"lr": CmdLRAreaRead,
	"hr": CmdHRAreaRead,
	"pv": CmdPVRead,
	"tc": CmdTCStatusRead,
	"dm": CmdDMAreaRead,
	"ar": CmdARAreaRead,
}

// AreaNames lists the memory area names accepted by ParseArea.
var AreaNames = []string{"ir", "lr", "hr", "pv", "tc", "dm", "ar"}

// ParseArea maps a memory area name (ir, lr, hr, pv, tc, dm, ar) to its
// area read command kind. Matching is case-insensitive.
func ParseArea(name string) (CommandKind, error) {
	kind, ok := areaByName[strings.ToLower(name)]
	if !ok {
		return CmdUnknown, fmt.Errorf("hostlink: unknown memory area %q (want one of %s)",
			name, strings.Join(AreaNames, ", "))
	}
	return kind, nil
}
