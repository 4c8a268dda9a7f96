// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"sync"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

// PollingHandler receives unsolicited polling reports. It runs on the
// reader goroutine and must not block.
type PollingHandler func(report *medjc09.PollingReportResult)

// DeviceErrorHandler receives error frames that arrive while no request
// is pending. Same contract as PollingHandler.
type DeviceErrorHandler func(err *medjc09.DeviceError)

type dispatcher struct {
	mu       sync.RWMutex
	polling  PollingHandler
	deviceFn DeviceErrorHandler
}

func (d *dispatcher) setPolling(fn PollingHandler) {
	d.mu.Lock()
	d.polling = fn
	d.mu.Unlock()
}

func (d *dispatcher) setDeviceError(fn DeviceErrorHandler) {
	d.mu.Lock()
	d.deviceFn = fn
	d.mu.Unlock()
}

// dispatchReport hands a report to the polling handler. Returns false when
// no handler is registered and the report was dropped.
func (d *dispatcher) dispatchReport(r *medjc09.PollingReportResult) bool {
	d.mu.RLock()
	fn := d.polling
	d.mu.RUnlock()

	if fn == nil {
		return false
	}
	fn(r)
	return true
}

func (d *dispatcher) dispatchDeviceError(e *medjc09.DeviceError) bool {
	d.mu.RLock()
	fn := d.deviceFn
	d.mu.RUnlock()

	if fn == nil {
		return false
	}
	fn(e)
	return true
}
