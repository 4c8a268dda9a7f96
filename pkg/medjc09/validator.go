// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import "fmt"

// AnomalyType represents different types of result anomalies
type AnomalyType int

const (
	AnomalyVoltageRange AnomalyType = iota
	AnomalyNegativeSME
	AnomalyZeroRate
	AnomalyTimestampRegression
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyVoltageRange:
		return "voltage_range"
	case AnomalyNegativeSME:
		return "negative_sme"
	case AnomalyZeroRate:
		return "zero_rate"
	case AnomalyTimestampRegression:
		return "timestamp_regression"
	default:
		return "unknown"
	}
}

// ValidationError represents a decoded value that is well-formed but implausible
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateResult checks a decoded result for anomalous values.
// Returns a slice of validation errors (empty if the result looks sane).
func ValidateResult(r Result) []ValidationError {
	errors := []ValidationError{}

	switch v := r.(type) {
	case *BaseVoltageResult:
		errors = append(errors, validateVoltage("base voltage", v.Voltage)...)
	case *SMEResult:
		errors = append(errors, validateSME(v.SME)...)
	case *PollingRateResult:
		if v.Rate == 0 {
			errors = append(errors, ValidationError{
				Type:    AnomalyZeroRate,
				Message: "Polling rate is 0 ms",
				Details: map[string]interface{}{"rate": v.Rate},
			})
		}
	case *PollingReportResult:
		errors = append(errors, validateVoltage("report voltage", v.Voltage)...)
		errors = append(errors, validateSME(v.SME)...)
	}

	return errors
}

func validateVoltage(label string, voltage float64) []ValidationError {
	if voltage >= 0 && voltage <= ReferenceVoltage {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyVoltageRange,
		Message: fmt.Sprintf("%s out of range (%.3f V, valid: 0 to %.1f V)", label, voltage, ReferenceVoltage),
		Details: map[string]interface{}{"value": voltage, "min": 0.0, "max": ReferenceVoltage},
	}}
}

// SME channels are unipolar; negative codes indicate a wiring or ADC fault.
func validateSME(sme [ChannelCount]int16) []ValidationError {
	var errors []ValidationError
	for i, v := range sme {
		if v < 0 {
			errors = append(errors, ValidationError{
				Type:    AnomalyNegativeSME,
				Message: fmt.Sprintf("SME channel %d negative (%d)", i, v),
				Details: map[string]interface{}{"channel": i, "value": v},
			})
		}
	}
	return errors
}

// ReportTracker validates a stream of polling reports, flagging device
// timestamps that go backwards.
type ReportTracker struct {
	last uint32
	seen bool
}

// Check validates a report against the previous one and records it
func (t *ReportTracker) Check(r *PollingReportResult) []ValidationError {
	errors := ValidateResult(r)
	if t.seen && r.Timestamp < t.last {
		errors = append(errors, ValidationError{
			Type:    AnomalyTimestampRegression,
			Message: fmt.Sprintf("Report timestamp went backwards (%d < %d)", r.Timestamp, t.last),
			Details: map[string]interface{}{"timestamp": r.Timestamp, "previous": t.last},
		})
	}
	t.last = r.Timestamp
	t.seen = true
	return errors
}
