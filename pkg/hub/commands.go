// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"context"
	"fmt"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

// call sends cmd and asserts the result type.
func call[T medjc09.Result](ctx context.Context, h *Hub, cmd medjc09.Command, params []byte) (T, error) {
	var zero T
	r, err := h.Send(ctx, cmd, params)
	if err != nil {
		return zero, err
	}
	v, ok := r.(T)
	if !ok {
		return zero, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedResponse, cmd, r.Command())
	}
	return v, nil
}

// GetVersion returns the hub firmware version.
func (h *Hub) GetVersion(ctx context.Context) (*medjc09.VersionResult, error) {
	return call[*medjc09.VersionResult](ctx, h, medjc09.CmdGetVersion, nil)
}

// GetBaseVoltage returns the hub base voltage in volts.
func (h *Hub) GetBaseVoltage(ctx context.Context) (*medjc09.BaseVoltageResult, error) {
	return call[*medjc09.BaseVoltageResult](ctx, h, medjc09.CmdGetBaseVoltage, nil)
}

// GetConnections returns the digital connection state of each channel.
func (h *Hub) GetConnections(ctx context.Context) (*medjc09.ConnectionsResult, error) {
	return call[*medjc09.ConnectionsResult](ctx, h, medjc09.CmdGetConnections, nil)
}

// GetME returns the raw ME channel codes.
func (h *Hub) GetME(ctx context.Context) (*medjc09.MEResult, error) {
	return call[*medjc09.MEResult](ctx, h, medjc09.CmdGetME, nil)
}

// GetSME returns the raw SME channel codes.
func (h *Hub) GetSME(ctx context.Context) (*medjc09.SMEResult, error) {
	return call[*medjc09.SMEResult](ctx, h, medjc09.CmdGetSME, nil)
}

// StartPolling starts periodic polling reports.
func (h *Hub) StartPolling(ctx context.Context) (*medjc09.StartPollingResult, error) {
	return call[*medjc09.StartPollingResult](ctx, h, medjc09.CmdStartPolling, nil)
}

// StopPolling stops periodic polling reports.
func (h *Hub) StopPolling(ctx context.Context) (*medjc09.StopPollingResult, error) {
	return call[*medjc09.StopPollingResult](ctx, h, medjc09.CmdStopPolling, nil)
}

// SetPollingRate sets the polling interval in milliseconds.
func (h *Hub) SetPollingRate(ctx context.Context, rateMs uint16) (*medjc09.SetPollingRateResult, error) {
	return call[*medjc09.SetPollingRateResult](ctx, h, medjc09.CmdSetPollingRate, medjc09.SetPollingRateParams(rateMs))
}

// GetPollingRate returns the polling interval in milliseconds.
func (h *Hub) GetPollingRate(ctx context.Context) (*medjc09.PollingRateResult, error) {
	return call[*medjc09.PollingRateResult](ctx, h, medjc09.CmdGetPollingRate, nil)
}

// GetPollingReport requests one polling report.
func (h *Hub) GetPollingReport(ctx context.Context) (*medjc09.PollingReportResult, error) {
	return call[*medjc09.PollingReportResult](ctx, h, medjc09.CmdGetPollingReport, nil)
}

// GetMEAsVoltage reads the ME channels and converts them with ChannelVoltage.
func (h *Hub) GetMEAsVoltage(ctx context.Context) ([medjc09.ChannelCount]float64, error) {
	r, err := h.GetME(ctx)
	if err != nil {
		return [medjc09.ChannelCount]float64{}, err
	}
	return ChannelVoltages(r.ME), nil
}

// GetSMEAsVoltage reads the SME channels and converts them with ChannelVoltage.
func (h *Hub) GetSMEAsVoltage(ctx context.Context) ([medjc09.ChannelCount]float64, error) {
	r, err := h.GetSME(ctx)
	if err != nil {
		return [medjc09.ChannelCount]float64{}, err
	}
	return ChannelVoltages(r.SME), nil
}
