// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import "io"

// Transport is the byte channel a PlcDevice drives.
//
// Read follows serial read-timeout semantics: it may return (0, nil) when no
// data arrived within the transport's own read timeout. ResetInputBuffer
// discards anything received but not yet read.
type Transport interface {
	io.Reader
	io.Writer
	ResetInputBuffer() error
}
