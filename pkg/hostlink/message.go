// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import "bytes"

// Message is a complete, checksum-validated Hostlink frame.
type Message struct {
	node   NodeID
	kind   CommandKind
	header string
	params MessageParams
	fcs    FcsBytes
}

// NewMessage builds the message that Serialize(cmd, node) puts on the wire.
func NewMessage(node NodeID, cmd Command) Message {
	m := Message{
		node:   node,
		kind:   cmd.kind,
		header: cmd.header,
		params: cmd.params.Clone(),
	}
	m.fcs = RenderFCS(ComputeFCS(m.appendBody(nil)))
	return m
}

// Serialize renders cmd addressed to node as a wire frame:
//
//	'@' [NODE(2)] [HEADER(2)] [PARAMS...] [FCS(2)] '*' '\r'
func Serialize(cmd Command, node NodeID) []byte {
	return NewMessage(node, cmd).Bytes()
}

// Serialize renders c addressed to node as a wire frame.
func (c Command) Serialize(node NodeID) []byte {
	return Serialize(c, node)
}

// ParseMessage parses and validates a single frame.
//
// Checks run in frame order and the first failure is returned: start byte,
// node id, header code, parameter characters, FCS digits, terminator and
// finally the FCS value itself.
func ParseMessage(frame []byte) (Message, error) {
	if len(frame) == 0 || frame[0] != StartByte {
		return Message{}, ErrMissingAtSymbol
	}

	if len(frame) < 1+NodeIDSize || !isDigit(frame[1]) || !isDigit(frame[2]) {
		return Message{}, ErrInvalidOrMissingNodeID
	}
	// Two decimal digits cannot exceed 99
	node := NodeIDUnchecked((frame[1]-'0')*10 + (frame[2] - '0'))

	headerEnd := 1 + NodeIDSize + HeaderCodeSize
	if len(frame) < headerEnd {
		return Message{}, ErrMissingHeaderCode
	}
	header := string(frame[1+NodeIDSize : headerEnd])
	kind, ok := LookupHeaderCode(header)
	if !ok {
		return Message{}, &ProtocolError{Kind: KindUnknownCommandType, Header: header}
	}

	body, terminated := splitTerminator(frame[headerEnd:])

	paramsEnd := len(body) - FcsSize
	if paramsEnd < 0 {
		paramsEnd = 0
	}
	params := body[:paramsEnd]
	if i := invalidParamIndex(params); i >= 0 {
		return Message{}, newProtocolError(KindInvalidCharacters,
			"byte 0x%02X at offset %d", params[i], headerEnd+i)
	}

	if len(body) < FcsSize {
		return Message{}, newProtocolError(KindMissingFcs, "frame ends after %d bytes", len(frame))
	}
	actual, err := ParseFCS(body[paramsEnd:])
	if err != nil {
		return Message{}, err
	}

	if !terminated {
		return Message{}, ErrMissingTerminator
	}

	expected := ComputeFCS(frame[:headerEnd+paramsEnd])
	if expected != actual {
		return Message{}, &ProtocolError{Kind: KindChecksumMismatch, Expected: expected, Actual: actual}
	}

	return Message{
		node:   node,
		kind:   kind,
		header: header,
		params: MessageParams(params).Clone(),
		fcs:    RenderFCS(actual),
	}, nil
}

// Node returns the node id carried by the frame.
func (m Message) Node() NodeID {
	return m.node
}

// Kind returns the command kind of the header code.
func (m Message) Kind() CommandKind {
	return m.kind
}

// Header returns the two character header code.
func (m Message) Header() string {
	return m.header
}

// Params returns the parameter block.
func (m Message) Params() MessageParams {
	return m.params
}

// FCS returns the frame check sequence.
func (m Message) FCS() FcsBytes {
	return m.fcs
}

// Bytes renders the message as a wire frame.
func (m Message) Bytes() []byte {
	b := make([]byte, 0, MinFrameSize+len(m.params))
	b = m.appendBody(b)
	b = append(b, m.fcs[:]...)
	return append(b, Terminator...)
}

// Equal reports whether m and other carry the same node, header, parameters
// and FCS.
func (m Message) Equal(other Message) bool {
	return m.node == other.node &&
		m.header == other.header &&
		bytes.Equal(m.params, other.params) &&
		m.fcs == other.fcs
}

// appendBody appends the FCS-covered span: '@', node, header and params.
func (m Message) appendBody(b []byte) []byte {
	b = append(b, StartByte)
	b = m.node.appendTo(b)
	b = append(b, m.header...)
	return append(b, m.params...)
}

// splitTerminator separates the FCS-bearing body from the terminator. A frame
// without a complete trailing terminator is cut at its first terminator byte,
// so a damaged terminator is never read as FCS digits.
func splitTerminator(rest []byte) ([]byte, bool) {
	if bytes.HasSuffix(rest, Terminator) {
		return rest[:len(rest)-TerminatorSize], true
	}
	if i := bytes.IndexAny(rest, string(Terminator)); i >= 0 {
		return rest[:i], false
	}
	return rest, false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
