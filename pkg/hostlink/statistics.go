// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame and exchange outcomes
type Statistics struct {
	StartTime      time.Time `json:"start_time"`
	LastUpdateTime time.Time `json:"last_update_time"`

	// Counters
	TotalFrames     uint64 `json:"total_frames"`
	ValidFrames     uint64 `json:"valid_frames"`
	ChecksumErrors  uint64 `json:"checksum_errors"`
	FramingErrors   uint64 `json:"framing_errors"`
	EndCodeErrors   uint64 `json:"end_code_errors"`
	StatusErrors    uint64 `json:"status_errors"`
	Timeouts        uint64 `json:"timeouts"`
	TransportErrors uint64 `json:"transport_errors"`

	// Rates (calculated)
	FrameRate float64 `json:"frame_rate"` // frames/sec
	ErrorRate float64 `json:"error_rate"` // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records the outcome of decoding one frame
func (s *Statistics) Update(err error) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	var protoErr *ProtocolError
	var statusErr *StatusParseError
	var endErr *EndCodeError
	switch {
	case err == nil:
		s.ValidFrames++
	case errors.Is(err, ErrChecksumMismatch):
		s.ChecksumErrors++
	case errors.As(err, &protoErr):
		s.FramingErrors++
	case errors.As(err, &endErr):
		s.EndCodeErrors++
	case errors.As(err, &statusErr):
		s.StatusErrors++
	default:
		s.FramingErrors++
	}
}

// RecordTimeout records an exchange that received no complete frame
func (s *Statistics) RecordTimeout() {
	s.Timeouts++
	s.LastUpdateTime = time.Now()
}

// RecordTransportError records a failed read or write
func (s *Statistics) RecordTransportError() {
	s.TransportErrors++
	s.LastUpdateTime = time.Now()
}

// Errors returns the total number of failures of any kind
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.FramingErrors + s.EndCodeErrors + s.StatusErrors +
		s.Timeouts + s.TransportErrors
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, percent(s.ValidFrames))

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("FCS Errors:      %8d (%.1f%%)\n", s.ChecksumErrors, percent(s.ChecksumErrors))
	}
	if s.FramingErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d (%.1f%%)\n", s.FramingErrors, percent(s.FramingErrors))
	}
	if s.EndCodeErrors > 0 {
		result += fmt.Sprintf("End Code Errors: %8d (%.1f%%)\n", s.EndCodeErrors, percent(s.EndCodeErrors))
	}
	if s.StatusErrors > 0 {
		result += fmt.Sprintf("Status Errors:   %8d (%.1f%%)\n", s.StatusErrors, percent(s.StatusErrors))
	}
	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)
	}
	if s.TransportErrors > 0 {
		result += fmt.Sprintf("Transport Errors:%8d\n", s.TransportErrors)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
