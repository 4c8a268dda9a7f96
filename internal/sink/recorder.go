// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

// Recorder writes reports as a CBOR sequence, one item per record.
type Recorder struct {
	mu    sync.Mutex
	w     io.WriteCloser
	enc   *cbor.Encoder
	count int
}

// NewRecorder records to w. The recorder closes w on Close.
func NewRecorder(w io.WriteCloser) *Recorder {
	return &Recorder{w: w, enc: medjc09.CBOREncMode().NewEncoder(w)}
}

// CreateRecorder creates (or truncates) a recording file.
func CreateRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording %s: %w", path, err)
	}
	return NewRecorder(f), nil
}

// Write appends one record.
func (r *Recorder) Write(_ context.Context, rec medjc09.ReportRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to record report: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of records written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Recorder) Close() error {
	return r.w.Close()
}

// Replayer reads records back from a CBOR sequence.
type Replayer struct {
	dec *cbor.Decoder
}

func NewReplayer(rd io.Reader) *Replayer {
	return &Replayer{dec: cbor.NewDecoder(rd)}
}

// Next returns the next record, or io.EOF at the end of the recording.
func (r *Replayer) Next() (medjc09.ReportRecord, error) {
	var rec medjc09.ReportRecord
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.EOF
		}
		return rec, fmt.Errorf("failed to read record: %w", err)
	}
	return rec, nil
}

// ReadAll reads every record in rd.
func ReadAll(rd io.Reader) ([]medjc09.ReportRecord, error) {
	r := NewReplayer(rd)
	var out []medjc09.ReportRecord
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
