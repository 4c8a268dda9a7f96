// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

type memorySink struct {
	mu      sync.Mutex
	records []medjc09.ReportRecord
	fail    bool
	closed  bool
	block   chan struct{}
}

func (m *memorySink) Write(_ context.Context, rec medjc09.ReportRecord) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("sink unavailable")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func record(ts uint32) medjc09.ReportRecord {
	return medjc09.ReportRecord{
		ReceivedAt: time.Date(2025, 3, 1, 12, 0, 0, int(ts)*1000, time.UTC),
		RequestID:  uint16(ts),
		Voltage:    1.65,
		ME:         [4]int16{1000, 1001, 0, -5},
		SME:        [4]int16{2000, 2001, 0, 0},
		Timestamp:  ts,
	}
}

// ============================================================
// Queue Tests
// ============================================================

func TestQueueDeliversToAllSinks(t *testing.T) {
	a, b := &memorySink{}, &memorySink{}
	q := NewQueue(8, zerolog.Nop(), a, b)

	for i := uint32(1); i <= 3; i++ {
		if !q.Offer(record(i)) {
			t.Fatalf("Offer(%d) dropped", i)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for name, s := range map[string]*memorySink{"a": a, "b": b} {
		if len(s.records) != 3 {
			t.Errorf("sink %s got %d records, want 3", name, len(s.records))
		}
		if !s.closed {
			t.Errorf("sink %s not closed", name)
		}
	}
	if q.Written() != 3 {
		t.Errorf("Written() = %d, want 3", q.Written())
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	blocked := &memorySink{block: make(chan struct{})}
	q := NewQueue(1, zerolog.Nop(), blocked)

	// first record is taken by the worker and blocks it, second fills the
	// buffer, the rest must be dropped
	accepted := 0
	for i := uint32(0); i < 10; i++ {
		if q.Offer(record(i)) {
			accepted++
		}
	}
	if accepted > 2 {
		t.Errorf("accepted %d records with a buffer of 1", accepted)
	}
	if q.Dropped() == 0 {
		t.Error("expected dropped records")
	}

	close(blocked.block)
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if q.Offer(record(99)) {
		t.Error("Offer after Close should drop")
	}
}

func TestQueueCountsFailures(t *testing.T) {
	s := &memorySink{fail: true}
	q := NewQueue(4, zerolog.Nop(), s)
	q.Offer(record(1))
	q.Offer(record(2))
	q.Close()

	if q.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", q.Failed())
	}
}

func TestQueueCloseIdempotent(t *testing.T) {
	q := NewQueue(1, zerolog.Nop())
	if err := q.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

// ============================================================
// Recorder Tests
// ============================================================

func TestRecorderReplay(t *testing.T) {
	buf := &bufferCloser{}
	r := NewRecorder(buf)

	want := []medjc09.ReportRecord{record(100), record(200), record(300)}
	for _, rec := range want {
		if err := r.Write(context.Background(), rec); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if r.Count() != len(want) {
		t.Errorf("Count() = %d, want %d", r.Count(), len(want))
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !buf.closed {
		t.Error("underlying writer not closed")
	}

	got, err := ReadAll(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("ReadAll returned %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].ReceivedAt.Equal(want[i].ReceivedAt) {
			t.Errorf("record %d ReceivedAt = %v, want %v", i, got[i].ReceivedAt, want[i].ReceivedAt)
		}
		if got[i].Timestamp != want[i].Timestamp || got[i].ME != want[i].ME || got[i].SME != want[i].SME {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReplayerEOF(t *testing.T) {
	r := NewReplayer(bytes.NewReader(nil))
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() on empty input = %v, want io.EOF", err)
	}
}

func TestReplayerCorrupt(t *testing.T) {
	// a map header promising entries that never arrive
	_, err := ReadAll(bytes.NewReader([]byte{0xA6, 0x00}))
	if err == nil {
		t.Error("expected error for truncated recording")
	}
}

func TestCreateRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.cbor")
	r, err := CreateRecorder(path)
	if err != nil {
		t.Fatalf("CreateRecorder failed: %v", err)
	}
	if err := r.Write(context.Background(), record(1)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	r.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	defer f.Close()

	recs, err := ReadAll(f)
	if err != nil || len(recs) != 1 {
		t.Fatalf("ReadAll = %d records, err %v; want 1 record", len(recs), err)
	}
}

// ============================================================
// Redis Tests (need a server)
// ============================================================

func TestRedisPublisher(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := DefaultRedisOptions(addr)
	opts.ListKey = "medjc09:test:backlog"
	opts.MaxLen = 2

	p, err := NewPublisher(ctx, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	defer p.Close()
	defer p.client.Del(ctx, opts.ListKey)

	for i := uint32(1); i <= 3; i++ {
		if err := p.Write(ctx, record(i)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	n, err := p.client.LLen(ctx, opts.ListKey).Result()
	if err != nil {
		t.Fatalf("LLen failed: %v", err)
	}
	if n != 2 {
		t.Errorf("backlog length = %d, want 2", n)
	}
}

func TestRedisPublisherUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewPublisher(ctx, DefaultRedisOptions("127.0.0.1:1"), zerolog.Nop())
	if err == nil {
		t.Error("expected error connecting to a closed port")
	}
}
