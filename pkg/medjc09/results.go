// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

// Result is a decoded response or report. There is exactly one concrete
// type per Command.
type Result interface {
	// Command returns the opcode the result was decoded from
	Command() Command
	// ID returns the request id carried by the packet
	ID() uint16
}

// Header holds the fields common to every decoded packet.
type Header struct {
	RequestID uint16
}

// ID returns the request id
func (h Header) ID() uint16 {
	return h.RequestID
}

// Version is the hub firmware version.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

// VersionResult is the response to GetVersion.
type VersionResult struct {
	Header
	Version Version
}

// BaseVoltageResult is the response to GetBaseVoltage.
type BaseVoltageResult struct {
	Header
	Voltage float64 // volts
}

// ConnectionsResult is the response to GetConnections. Channel order is fixed.
type ConnectionsResult struct {
	Header
	Connections [ChannelCount]bool
}

// MEResult is the response to GetME. Values are raw channel codes.
type MEResult struct {
	Header
	ME [ChannelCount]int16
}

// SMEResult is the response to GetSME. Values are raw channel codes.
type SMEResult struct {
	Header
	SME [ChannelCount]int16
}

// StartPollingResult acknowledges StartPolling.
type StartPollingResult struct {
	Header
}

// StopPollingResult acknowledges StopPolling.
type StopPollingResult struct {
	Header
}

// SetPollingRateResult acknowledges SetPollingRate.
type SetPollingRateResult struct {
	Header
}

// PollingRateResult is the response to GetPollingRate.
type PollingRateResult struct {
	Header
	Rate uint16 // milliseconds
}

// PollingReportResult is a polling report, either requested with
// GetPollingReport or pushed by the hub while polling is active.
type PollingReportResult struct {
	Header
	Voltage   float64
	ME        [ChannelCount]int16
	SME       [ChannelCount]int16
	Timestamp uint32 // device clock
}

func (*VersionResult) Command() Command        { return CmdGetVersion }
func (*BaseVoltageResult) Command() Command    { return CmdGetBaseVoltage }
func (*ConnectionsResult) Command() Command    { return CmdGetConnections }
func (*MEResult) Command() Command             { return CmdGetME }
func (*SMEResult) Command() Command            { return CmdGetSME }
func (*StartPollingResult) Command() Command   { return CmdStartPolling }
func (*StopPollingResult) Command() Command    { return CmdStopPolling }
func (*SetPollingRateResult) Command() Command { return CmdSetPollingRate }
func (*PollingRateResult) Command() Command    { return CmdGetPollingRate }
func (*PollingReportResult) Command() Command  { return CmdGetPollingReport }
