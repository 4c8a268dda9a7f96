// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates.
// It is not safe for concurrent use; owners guard it themselves.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Frame counters
	TotalFrames      uint64
	ValidFrames      uint64
	ErrorFrames      uint64
	DecodeErrors     uint64
	UnknownCommands  uint64
	TruncatedPackets uint64
	DiscardedBytes   uint64
	AnomalousValues  uint64

	// Correlation counters
	Responses           uint64
	LateResponses       uint64
	UnexpectedResponses uint64
	Timeouts            uint64
	ReportsDelivered    uint64
	ReportsDropped      uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a decode outcome and its validation errors
func (s *Statistics) Update(result Result, decodeErr error, validationErrors []ValidationError) {
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		switch {
		case errors.Is(decodeErr, ErrUnexpectedByte):
			// resync noise, not a frame
			s.DiscardedBytes++
			return
		case errors.Is(decodeErr, ErrDeviceError):
			s.ErrorFrames++
		case errors.Is(decodeErr, ErrUnknownCommand):
			s.UnknownCommands++
		case errors.Is(decodeErr, ErrTruncatedPacket):
			s.TruncatedPackets++
		default:
			s.DecodeErrors++
		}
		s.TotalFrames++
		return
	}

	if result == nil {
		return
	}

	s.TotalFrames++
	if len(validationErrors) > 0 {
		s.AnomalousValues += uint64(len(validationErrors))
	} else {
		s.ValidFrames++
	}
}

// RecordResponse counts a response matched to a pending request
func (s *Statistics) RecordResponse() {
	s.Responses++
}

// RecordLateResponse counts a response whose request is no longer pending
func (s *Statistics) RecordLateResponse() {
	s.LateResponses++
}

// RecordUnexpectedResponse counts a response whose command did not match the request
func (s *Statistics) RecordUnexpectedResponse() {
	s.UnexpectedResponses++
}

// RecordTimeout counts a request that expired without a response
func (s *Statistics) RecordTimeout() {
	s.Timeouts++
}

// RecordReport counts an unsolicited polling report
func (s *Statistics) RecordReport(delivered bool) {
	if delivered {
		s.ReportsDelivered++
	} else {
		s.ReportsDropped++
	}
}

// Errors returns the total number of error events
func (s *Statistics) Errors() uint64 {
	return s.ErrorFrames + s.DecodeErrors + s.UnknownCommands + s.TruncatedPackets +
		s.UnexpectedResponses + s.Timeouts
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

	var validPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.ErrorFrames > 0 {
		result += fmt.Sprintf("Device Errors:   %8d\n", s.ErrorFrames)
	}
	if s.DecodeErrors+s.UnknownCommands+s.TruncatedPackets > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d\n", s.DecodeErrors+s.UnknownCommands+s.TruncatedPackets)
		if s.UnknownCommands > 0 {
			result += fmt.Sprintf("  Unknown Cmd:      %5d\n", s.UnknownCommands)
		}
		if s.TruncatedPackets > 0 {
			result += fmt.Sprintf("  Truncated:        %5d\n", s.TruncatedPackets)
		}
	}
	if s.DiscardedBytes > 0 {
		result += fmt.Sprintf("Discarded Bytes: %8d\n", s.DiscardedBytes)
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d\n", s.AnomalousValues)
	}
	if s.Responses+s.Timeouts+s.LateResponses+s.UnexpectedResponses > 0 {
		result += fmt.Sprintf("Responses:       %8d\n", s.Responses)
		if s.Timeouts > 0 {
			result += fmt.Sprintf("  Timeouts:         %5d\n", s.Timeouts)
		}
		if s.LateResponses > 0 {
			result += fmt.Sprintf("  Late:             %5d\n", s.LateResponses)
		}
		if s.UnexpectedResponses > 0 {
			result += fmt.Sprintf("  Unexpected:       %5d\n", s.UnexpectedResponses)
		}
	}
	if s.ReportsDelivered+s.ReportsDropped > 0 {
		result += fmt.Sprintf("Reports:         %8d (dropped %d)\n", s.ReportsDelivered, s.ReportsDropped)
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
