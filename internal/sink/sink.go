// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sink forwards polling reports to storage and messaging backends.
package sink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

// Sink consumes report records.
type Sink interface {
	Write(ctx context.Context, rec medjc09.ReportRecord) error
	Close() error
}

// Queue decouples the hub reader goroutine from slow sinks. Offer never
// blocks; records are dropped when the buffer is full.
type Queue struct {
	ch    chan medjc09.ReportRecord
	sinks []Sink
	log   zerolog.Logger

	mu     sync.Mutex
	closed bool

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	wg sync.WaitGroup
}

// NewQueue starts a worker that writes every offered record to each sink.
func NewQueue(size int, log zerolog.Logger, sinks ...Sink) *Queue {
	if size <= 0 {
		size = 64
	}
	q := &Queue{
		ch:    make(chan medjc09.ReportRecord, size),
		sinks: sinks,
		log:   log,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()
	ctx := context.Background()
	for rec := range q.ch {
		for _, s := range q.sinks {
			if err := s.Write(ctx, rec); err != nil {
				q.failed.Add(1)
				q.log.Warn().Err(err).Uint32("timestamp", rec.Timestamp).Msg("sink write failed")
				continue
			}
		}
		q.written.Add(1)
	}
}

// Offer queues a record. Returns false if it was dropped.
func (q *Queue) Offer(rec medjc09.ReportRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.dropped.Add(1)
		return false
	}
	select {
	case q.ch <- rec:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Written returns how many records were processed by the worker.
func (q *Queue) Written() uint64 { return q.written.Load() }

// Dropped returns how many records were refused by Offer.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Failed returns how many sink writes returned an error.
func (q *Queue) Failed() uint64 { return q.failed.Load() }

// Close drains the buffer, then closes every sink.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	q.wg.Wait()

	var errs []error
	for _, s := range q.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
