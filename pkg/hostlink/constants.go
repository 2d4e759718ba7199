// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hostlink implements the Hostlink serial protocol used by Omron
// C-series programmable controllers.
//
// Hostlink is an ASCII command/response protocol. Every frame starts with '@',
// carries a two digit node number, a two character header code and a block of
// ASCII parameters, and ends with a two digit hexadecimal frame check sequence
// followed by the "*\r" terminator.
//
// This package provides frame serialization and parsing, FCS calculation,
// decoding of status responses and a streaming frame decoder. It performs no
// I/O; see the device package for request/response exchanges.
package hostlink

// Protocol framing bytes
const (
	StartByte = '@'
	TermByte  = '*'
	CRByte    = '\r'
)

// Terminator ends every frame.
var Terminator = []byte{TermByte, CRByte}

// Frame size limits
const (
	NodeIDSize     = 2
	HeaderCodeSize = 2
	FcsSize        = 2
	TerminatorSize = 2

	// MaxFrameSize is the longest single frame a controller sends or accepts.
	MaxFrameSize = 131

	// MinFrameSize is '@' + node + header + FCS + terminator.
	MinFrameSize = 1 + NodeIDSize + HeaderCodeSize + FcsSize + TerminatorSize

	// MaxTestDataSize is the longest block accepted by the TEST command.
	MaxTestDataSize = 122

	// MaxAreaReadWords is the most words an area read response carries in a
	// single frame.
	MaxAreaReadWords = (MaxFrameSize - MinFrameSize - EndCodeSize) / AreaWordSize
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateFrame
	stateTerm
)
