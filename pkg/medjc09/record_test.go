// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import (
	"encoding/json"
	"testing"
	"time"
)

// ============================================================
// Record Tests
// ============================================================

func sampleReport() *PollingReportResult {
	return &PollingReportResult{
		Header:    Header{RequestID: 0x0102},
		Voltage:   1.234,
		ME:        [4]int16{1, -2, 300, -32768},
		SME:       [4]int16{0, 10, 20, 32767},
		Timestamp: 987654,
	}
}

func TestReportRecord_CBOR(t *testing.T) {
	at := time.Date(2025, 3, 14, 15, 9, 26, 535000000, time.UTC)
	rec := NewReportRecord(sampleReport(), at)

	data, err := MarshalRecordCBOR(rec)
	if err != nil {
		t.Fatalf("MarshalRecordCBOR failed: %v", err)
	}

	got, err := UnmarshalRecordCBOR(data)
	if err != nil {
		t.Fatalf("UnmarshalRecordCBOR failed: %v", err)
	}
	if !got.ReceivedAt.Equal(at) {
		t.Errorf("ReceivedAt = %v, want %v", got.ReceivedAt, at)
	}
	got.ReceivedAt = at
	if got != rec {
		t.Errorf("record = %+v, want %+v", got, rec)
	}

	report := got.Report()
	if report.ID() != 0x0102 || report.Timestamp != 987654 || report.ME[3] != -32768 {
		t.Errorf("Report() = %+v", report)
	}
}

func TestUnmarshalRecordCBOR_Errors(t *testing.T) {
	if _, err := UnmarshalRecordCBOR(nil); err == nil {
		t.Error("expected error for empty input")
	}
	// text string where a map is expected
	if _, err := UnmarshalRecordCBOR([]byte{0x61, 'x'}); err == nil {
		t.Error("expected error for non-map input")
	}
}

func TestReportRecord_JSON(t *testing.T) {
	rec := NewReportRecord(sampleReport(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	for _, key := range []string{"received_at", "request_id", "voltage", "me", "sme", "timestamp"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("JSON missing %q: %s", key, data)
		}
	}
}
