// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()

	s.Update(&VersionResult{}, nil, nil)
	s.Update(&SMEResult{}, nil, []ValidationError{{Type: AnomalyNegativeSME}, {Type: AnomalyNegativeSME}})
	s.Update(nil, fmt.Errorf("%w: 0x00 while idle", ErrUnexpectedByte), nil)
	s.Update(nil, &DeviceError{Payload: []byte{1}}, nil)
	s.Update(nil, fmt.Errorf("%w: 0x99", ErrUnknownCommand), nil)
	s.Update(nil, fmt.Errorf("%w: short", ErrTruncatedPacket), nil)
	s.Update(nil, fmt.Errorf("%w: too long", ErrFrameOverflow), nil)
	s.Update(nil, nil, nil)

	tests := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"TotalFrames", s.TotalFrames, 6},
		{"ValidFrames", s.ValidFrames, 1},
		{"AnomalousValues", s.AnomalousValues, 2},
		{"DiscardedBytes", s.DiscardedBytes, 1},
		{"ErrorFrames", s.ErrorFrames, 1},
		{"UnknownCommands", s.UnknownCommands, 1},
		{"TruncatedPackets", s.TruncatedPackets, 1},
		{"DecodeErrors", s.DecodeErrors, 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestStatistics_Correlation(t *testing.T) {
	s := NewStatistics()
	s.RecordResponse()
	s.RecordResponse()
	s.RecordLateResponse()
	s.RecordUnexpectedResponse()
	s.RecordTimeout()
	s.RecordReport(true)
	s.RecordReport(false)
	s.RecordReport(false)

	if s.Responses != 2 || s.LateResponses != 1 || s.UnexpectedResponses != 1 || s.Timeouts != 1 {
		t.Errorf("correlation counters = %d/%d/%d/%d", s.Responses, s.LateResponses, s.UnexpectedResponses, s.Timeouts)
	}
	if s.ReportsDelivered != 1 || s.ReportsDropped != 2 {
		t.Errorf("reports delivered=%d dropped=%d, want 1/2", s.ReportsDelivered, s.ReportsDropped)
	}
	// late responses are not errors
	if s.Errors() != 2 {
		t.Errorf("Errors() = %d, want 2", s.Errors())
	}
}

func TestStatistics_CalculateRates(t *testing.T) {
	s := NewStatistics()
	s.StartTime = time.Now().Add(-10 * time.Second)
	s.TotalFrames = 100
	s.Timeouts = 10

	s.CalculateRates()

	if s.FrameRate < 9 || s.FrameRate > 10.1 {
		t.Errorf("FrameRate = %.2f, want ~10", s.FrameRate)
	}
	if s.ErrorRate < 0.9 || s.ErrorRate > 1.01 {
		t.Errorf("ErrorRate = %.2f, want ~1", s.ErrorRate)
	}
}

func TestStatistics_String(t *testing.T) {
	s := NewStatistics()
	s.TotalFrames = 4
	s.ValidFrames = 2
	s.UnknownCommands = 1
	s.Responses = 3
	s.Timeouts = 1
	s.ReportsDelivered = 5

	out := s.String()
	for _, want := range []string{"Total Frames:", "Valid Frames:", "50.0%", "Unknown Cmd:", "Responses:", "Timeouts:", "Reports:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
	for _, absent := range []string{"Device Errors:", "Late:", "Discarded Bytes:"} {
		if strings.Contains(out, absent) {
			t.Errorf("String() should omit %q when zero:\n%s", absent, out)
		}
	}
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.TotalFrames = 10
	s.Responses = 3
	before := s.StartTime

	time.Sleep(time.Millisecond)
	s.Reset()

	if s.TotalFrames != 0 || s.Responses != 0 {
		t.Error("counters not cleared")
	}
	if !s.StartTime.After(before) {
		t.Error("StartTime not refreshed")
	}
}
