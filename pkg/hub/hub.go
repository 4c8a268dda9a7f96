// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hub runs the MedJC09 request/response engine over a byte stream.
//
// A Hub owns its transport and a single reader goroutine. Requests from any
// number of goroutines are tagged with a 16-bit request id, written one at a
// time, and resolved when the reader sees the matching response. Polling
// reports pushed by the device without a pending request are handed to the
// registered PollingHandler.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

// Hub is a connected MedJC09 client.
type Hub struct {
	conn io.ReadWriteCloser
	cfg  Config
	log  zerolog.Logger

	corr *correlator
	disp dispatcher

	writeMu sync.Mutex

	statsMu sync.Mutex
	stats   *medjc09.Statistics
	tracker medjc09.ReportTracker // reader goroutine only

	closeOnce sync.Once
	closing   atomic.Bool
	done      chan struct{}

	errMu sync.Mutex
	err   error
}

// New starts a Hub on an open transport. The Hub takes ownership of conn.
func New(conn io.ReadWriteCloser, cfg Config) *Hub {
	cfg = cfg.withDefaults()
	h := &Hub{
		conn:  conn,
		cfg:   cfg,
		log:   cfg.Logger.With().Str("component", "hub").Logger(),
		corr:  newCorrelator(),
		stats: medjc09.NewStatistics(),
		done:  make(chan struct{}),
	}
	go h.readLoop()
	return h
}

// Send writes one command and waits for its response.
//
// The wait ends at the earlier of ctx's deadline and Config.RequestTimeout.
// Errors are ErrTimeout, ErrClosed, ErrTransport, ErrUnexpectedResponse,
// a *medjc09.DeviceError, or ctx.Err() when ctx is cancelled.
func (h *Hub) Send(ctx context.Context, cmd medjc09.Command, params []byte) (medjc09.Result, error) {
	want, ok := cmd.ParamLen()
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02X", medjc09.ErrUnknownCommand, uint8(cmd))
	}
	if len(params) != want {
		return nil, fmt.Errorf("%w: %s takes %d parameter bytes, got %d",
			medjc09.ErrInvalidArgument, cmd, want, len(params))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(h.cfg.RequestTimeout)
	ctxBound := false
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
		ctxBound = true
	}

	p, err := h.corr.register(cmd)
	if err != nil {
		return nil, err
	}

	packet, err := medjc09.Serialize(cmd, int(p.id), params)
	if err != nil {
		h.corr.remove(p)
		return nil, err
	}

	if err := h.write(packet); err != nil {
		if h.corr.remove(p) {
			return nil, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		// resolved concurrently, most likely by Close
		return p.wait()
	}

	h.log.Trace().Str("cmd", cmd.String()).Uint16("id", p.id).Msg("request sent")

	// when ctx expires first, ctx.Done alone ends the wait
	var expired <-chan time.Time
	if !ctxBound {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case o := <-p.done:
		return o.result, o.err

	case <-expired:
		if h.corr.remove(p) {
			h.timedOut(p)
			return nil, fmt.Errorf("%w: %s (id 0x%04X)", ErrTimeout, cmd, p.id)
		}
		return p.wait()

	case <-ctx.Done():
		if h.corr.remove(p) {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				h.timedOut(p)
				return nil, fmt.Errorf("%w: %s (id 0x%04X): %w", ErrTimeout, cmd, p.id, ctx.Err())
			}
			return nil, ctx.Err()
		}
		return p.wait()
	}
}

func (p *pendingRequest) wait() (medjc09.Result, error) {
	o := <-p.done
	return o.result, o.err
}

func (h *Hub) timedOut(p *pendingRequest) {
	h.statsMu.Lock()
	h.stats.RecordTimeout()
	h.statsMu.Unlock()
	h.log.Debug().Str("cmd", p.cmd.String()).Uint16("id", p.id).Msg("request timed out")
}

// write sends the whole packet; writers never interleave.
func (h *Hub) write(packet []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	for len(packet) > 0 {
		n, err := h.conn.Write(packet)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		packet = packet[n:]
	}
	return nil
}

func (h *Hub) readLoop() {
	defer close(h.done)

	decoder := medjc09.NewDecoder()
	buf := make([]byte, h.cfg.ReadBufferSize)

	for {
		n, err := h.conn.Read(buf)
		for _, b := range buf[:n] {
			h.feed(decoder, b)
		}
		if err == nil {
			// n == 0 is a serial read timeout
			continue
		}
		if h.closing.Load() {
			return
		}

		cause := fmt.Errorf("%w: %w", ErrTransport, err)
		h.log.Error().Err(err).Msg("transport read failed, closing hub")
		h.shutdown(cause)
		return
	}
}

func (h *Hub) feed(decoder *medjc09.Decoder, b byte) {
	packet, err := decoder.DecodeByte(b)
	if err != nil {
		h.updateStats(nil, err, nil)
		if errors.Is(err, medjc09.ErrUnexpectedByte) {
			h.log.Debug().Str("byte", fmt.Sprintf("0x%02X", b)).Msg("discarding byte while idle")
		} else {
			h.log.Warn().Err(err).Msg("frame dropped")
		}
		return
	}
	if packet != nil {
		h.route(packet)
	}
}

func (h *Hub) route(packet *medjc09.Packet) {
	result, err := packet.Decode()
	if err != nil {
		h.updateStats(nil, err, nil)

		var devErr *medjc09.DeviceError
		if !errors.As(err, &devErr) {
			h.log.Warn().Err(err).Msg("decode failed")
			return
		}
		if devErr.Truncated {
			h.log.Warn().Int("kept", len(devErr.Payload)).Msg("error frame exceeded payload limit, tail dropped")
		}
		if h.corr.failOldest(devErr) {
			h.log.Debug().Hex("payload", devErr.Payload).Msg("device error matched to oldest request")
			return
		}
		if !h.disp.dispatchDeviceError(devErr) {
			h.log.Warn().Hex("payload", devErr.Payload).Msg("unsolicited device error")
		}
		return
	}

	var anomalies []medjc09.ValidationError
	report, isReport := result.(*medjc09.PollingReportResult)
	if isReport {
		anomalies = h.tracker.Check(report)
	} else {
		anomalies = medjc09.ValidateResult(result)
	}
	h.updateStats(result, nil, anomalies)
	for _, a := range anomalies {
		h.log.Debug().Stringer("anomaly", a.Type).Str("cmd", result.Command().String()).Msg(a.Message)
	}

	matched, unexpected := h.corr.resolve(result)
	switch {
	case matched && unexpected:
		h.statsMu.Lock()
		h.stats.RecordUnexpectedResponse()
		h.statsMu.Unlock()
		h.log.Warn().Str("cmd", result.Command().String()).Uint16("id", result.ID()).Msg("unexpected response")

	case matched:
		h.statsMu.Lock()
		h.stats.RecordResponse()
		h.statsMu.Unlock()

	case isReport:
		delivered := h.disp.dispatchReport(report)
		h.statsMu.Lock()
		h.stats.RecordReport(delivered)
		h.statsMu.Unlock()

	default:
		h.statsMu.Lock()
		h.stats.RecordLateResponse()
		h.statsMu.Unlock()
		h.log.Debug().Str("cmd", result.Command().String()).Uint16("id", result.ID()).Msg("dropping late response")
	}
}

func (h *Hub) updateStats(result medjc09.Result, err error, anomalies []medjc09.ValidationError) {
	h.statsMu.Lock()
	h.stats.Update(result, err, anomalies)
	h.statsMu.Unlock()
}

// RegisterPollingHandler sets the handler for unsolicited polling reports.
// A nil handler unregisters; reports are then dropped.
func (h *Hub) RegisterPollingHandler(fn PollingHandler) {
	h.disp.setPolling(fn)
}

// RegisterDeviceErrorHandler sets the handler for error frames that arrive
// while no request is pending.
func (h *Hub) RegisterDeviceErrorHandler(fn DeviceErrorHandler) {
	h.disp.setDeviceError(fn)
}

// Stats returns a snapshot of the engine statistics with rates computed.
func (h *Hub) Stats() medjc09.Statistics {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	snapshot := *h.stats
	snapshot.CalculateRates()
	return snapshot
}

// ResetStats clears the engine statistics.
func (h *Hub) ResetStats() {
	h.statsMu.Lock()
	h.stats.Reset()
	h.statsMu.Unlock()
}

// InFlight returns the number of requests awaiting a response.
func (h *Hub) InFlight() int {
	return h.corr.len()
}

// Done is closed once the reader goroutine has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Err returns nil while the hub is running, ErrClosed after Close, or the
// ErrTransport-wrapped cause if the reader failed.
func (h *Hub) Err() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

// Close stops the reader, fails pending requests with ErrClosed and closes
// the transport. It is safe to call more than once. Close must not be
// called from a handler.
func (h *Hub) Close() error {
	err := h.shutdown(ErrClosed)

	select {
	case <-h.done:
	case <-time.After(h.cfg.CloseTimeout):
		if err == nil {
			err = fmt.Errorf("hub: reader did not stop within %s", h.cfg.CloseTimeout)
		}
	}
	return err
}

// shutdown runs once, from Close or from a fatal read error.
func (h *Hub) shutdown(cause error) error {
	var err error
	h.closeOnce.Do(func() {
		h.closing.Store(true)

		h.errMu.Lock()
		h.err = cause
		h.errMu.Unlock()

		h.corr.closeAll(cause)
		if cerr := h.conn.Close(); cerr != nil && !errors.Is(cause, ErrTransport) {
			err = fmt.Errorf("failed to close transport: %w", cerr)
		}
	})
	return err
}
