// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"fmt"
	"sync"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

// outcome is the single resolution of a pending request.
type outcome struct {
	result medjc09.Result
	err    error
}

// pendingRequest tracks one request awaiting its response.
type pendingRequest struct {
	id   uint16
	cmd  medjc09.Command
	seq  uint64       // registration order, for oldest-first matching
	done chan outcome // buffered(1); written exactly once by whoever removes the entry
}

// correlator maps request ids to pending requests. Every mutation of the
// map happens under mu, and a request is resolved only by the caller that
// removed it, so a request resolves at most once.
type correlator struct {
	mu       sync.Mutex
	nextID   uint16
	seq      uint64
	pending  map[uint16]*pendingRequest
	closed   bool
	closeErr error
}

func newCorrelator() *correlator {
	return &correlator{
		pending: make(map[uint16]*pendingRequest),
	}
}

// register allocates a free id and records the expectation.
func (c *correlator) register(cmd medjc09.Command) (*pendingRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if len(c.pending) > medjc09.MaxRequestID {
		return nil, ErrNoFreeID
	}

	id := c.nextID
	for {
		if _, busy := c.pending[id]; !busy {
			break
		}
		id++
	}
	c.nextID = id + 1

	c.seq++
	p := &pendingRequest{
		id:   id,
		cmd:  cmd,
		seq:  c.seq,
		done: make(chan outcome, 1),
	}
	c.pending[id] = p
	return p, nil
}

// resolve routes a decoded result to the request with the same id.
// Returns false if no request with that id is pending.
func (c *correlator) resolve(r medjc09.Result) (matched bool, unexpected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[r.ID()]
	if !ok {
		return false, false
	}
	delete(c.pending, p.id)

	if r.Command() != p.cmd {
		p.done <- outcome{err: fmt.Errorf("%w: expected %s, got %s (id 0x%04X)",
			ErrUnexpectedResponse, p.cmd, r.Command(), p.id)}
		return true, true
	}
	p.done <- outcome{result: r}
	return true, false
}

// failOldest resolves the oldest pending request with err.
// Returns false if nothing is pending.
func (c *correlator) failOldest(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var oldest *pendingRequest
	for _, p := range c.pending {
		if oldest == nil || p.seq < oldest.seq {
			oldest = p
		}
	}
	if oldest == nil {
		return false
	}
	delete(c.pending, oldest.id)
	oldest.done <- outcome{err: err}
	return true
}

// remove drops p if it is still pending. Returns false if p was already
// resolved, in which case its outcome is waiting in p.done.
func (c *correlator) remove(p *pendingRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.pending[p.id]; !ok || cur != p {
		return false
	}
	delete(c.pending, p.id)
	return true
}

// closeAll fails every pending request with err and refuses new ones.
func (c *correlator) closeAll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		c.closeErr = err
	}
	for id, p := range c.pending {
		delete(c.pending, id)
		p.done <- outcome{err: err}
	}
}

// len returns the number of requests in flight.
func (c *correlator) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
