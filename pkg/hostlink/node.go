// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

// MaxNodeID is the highest node number on a Hostlink bus.
const MaxNodeID = 99

// NodeID is the bus address of a controller, 0 through 99.
type NodeID uint8

// NewNodeID returns the node id for value, or ErrInvalidNodeID when value is
// outside 0..99.
func NewNodeID(value int) (NodeID, error) {
	if value < 0 || value > MaxNodeID {
		return 0, &ProtocolError{
			Kind:   KindInvalidNodeID,
			Detail: "node id must be 0..99",
			Value:  value,
		}
	}
	return NodeID(value), nil
}

// NodeIDUnchecked converts value without range checking.
// Callers must guarantee value <= 99.
func NodeIDUnchecked(value uint8) NodeID {
	return NodeID(value)
}

// String renders the node id as two decimal digits.
func (n NodeID) String() string {
	return string(n.appendTo(nil))
}

func (n NodeID) appendTo(b []byte) []byte {
	return append(b, '0'+byte(n/10), '0'+byte(n%10))
}
