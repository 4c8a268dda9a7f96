// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ReportRecord is a polling report as stored or published by sinks.
// CBOR uses small integer keys to keep recordings compact.
type ReportRecord struct {
	ReceivedAt time.Time           `json:"received_at" cbor:"0,keyasint"`
	RequestID  uint16              `json:"request_id" cbor:"1,keyasint"`
	Voltage    float64             `json:"voltage" cbor:"2,keyasint"`
	ME         [ChannelCount]int16 `json:"me" cbor:"3,keyasint"`
	SME        [ChannelCount]int16 `json:"sme" cbor:"4,keyasint"`
	Timestamp  uint32              `json:"timestamp" cbor:"5,keyasint"`
}

var recordEncMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("medjc09: cbor enc mode: %v", err))
	}
	return em
}

// CBOREncMode returns the encoding mode used for report records, for
// callers that stream records with cbor.EncMode.NewEncoder.
func CBOREncMode() cbor.EncMode {
	return recordEncMode
}

// NewReportRecord captures a decoded polling report
func NewReportRecord(r *PollingReportResult, receivedAt time.Time) ReportRecord {
	return ReportRecord{
		ReceivedAt: receivedAt,
		RequestID:  r.ID(),
		Voltage:    r.Voltage,
		ME:         r.ME,
		SME:        r.SME,
		Timestamp:  r.Timestamp,
	}
}

// Report converts the record back to a polling report result
func (rec ReportRecord) Report() *PollingReportResult {
	return &PollingReportResult{
		Header:    Header{RequestID: rec.RequestID},
		Voltage:   rec.Voltage,
		ME:        rec.ME,
		SME:       rec.SME,
		Timestamp: rec.Timestamp,
	}
}

// MarshalRecordCBOR encodes a record to CBOR
func MarshalRecordCBOR(rec ReportRecord) ([]byte, error) {
	data, err := recordEncMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report record: %w", err)
	}
	return data, nil
}

// UnmarshalRecordCBOR decodes a record from CBOR
func UnmarshalRecordCBOR(data []byte) (ReportRecord, error) {
	var rec ReportRecord
	if len(data) == 0 {
		return rec, fmt.Errorf("empty CBOR record")
	}
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode report record: %w", err)
	}
	return rec, nil
}
