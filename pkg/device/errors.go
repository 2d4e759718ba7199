// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed exchange.
type ErrorKind int

// Error kinds
const (
	// KindTransport is a failed read, write or buffer reset
	KindTransport ErrorKind = iota + 1

	// KindTimeout means no complete frame arrived in time
	KindTimeout

	// KindCanceled means the caller's context ended the exchange
	KindCanceled

	// KindProtocol is a frame that failed to parse
	KindProtocol

	// KindStatus is a status response that failed to decode
	KindStatus

	// KindResponse is a well-formed frame that does not answer the request
	KindResponse

	// KindController is a response carrying a non-zero end code
	KindController
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindProtocol:
		return "protocol"
	case KindStatus:
		return "status"
	case KindResponse:
		return "response"
	case KindController:
		return "controller"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every PlcDevice exchange. The originating error is
// kept and reachable with errors.Is / errors.As.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("device: %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the originating error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Sentinel errors
var (
	ErrTimeout        = errors.New("no response before timeout")
	ErrClosed         = errors.New("device closed")
	ErrNodeMismatch   = errors.New("response from another node")
	ErrHeaderMismatch = errors.New("response header does not match request")
	ErrEchoMismatch   = errors.New("test block not echoed unchanged")
	ErrWordCount      = errors.New("unexpected number of words")
)

// KindOf returns the kind of err if it is a *Error, or 0.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// IsTimeout reports whether err is a device timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
