// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package medjc09 provides a Go implementation of the MedJC09 hub serial protocol.
//
// The hub speaks a small request/response protocol over a raw byte stream.
// Every normal packet starts with a one-byte command opcode followed by a
// big-endian 16-bit request id and a fixed-length, command-specific payload.
// Device faults are reported out of band as error frames delimited by the
// SETX and EETX markers. This package provides packet encoding/decoding, a
// byte-level frame decoder, result validation, statistics and formatting.
package medjc09

// Protocol markers
const (
	SETX = 0xFE // Start of an error response
	EETX = 0xFF // End of an error response
)

// Packet layout
const (
	HeaderSize          = 3  // opcode + 2 byte request id
	MaxPayloadSize      = 22 // GetPollingReport
	MaxPacketSize       = HeaderSize + MaxPayloadSize
	MaxErrorPayloadSize = 256
	MaxRequestID        = 0xFFFF
)

// ADC scaling. Raw codes are 12-bit signed values mapped linearly onto the
// 3.3 V reference.
const (
	ReferenceVoltage = 3.3
	ADCFullScale     = 4095
)

// Command is a one-byte MedJC09 opcode.
type Command uint8

// Command opcodes
const (
	CmdGetVersion       Command = 0x01
	CmdGetBaseVoltage   Command = 0x02
	CmdGetConnections   Command = 0x20
	CmdGetME            Command = 0x30
	CmdGetSME           Command = 0x31
	CmdStartPolling     Command = 0x40
	CmdStopPolling      Command = 0x41
	CmdSetPollingRate   Command = 0x42
	CmdGetPollingRate   Command = 0x43
	CmdGetPollingReport Command = 0x4F
)

// Channels per measurement group (ME, SME, connections)
const ChannelCount = 4

// Decoder states (internal)
const (
	stateIdle = iota
	stateNormal
	stateError
	stateErrorDiscard // error payload past MaxErrorPayloadSize, skipping to EETX
)

// commandSpec describes the fixed wire shape of one command.
type commandSpec struct {
	name        string
	paramLen    int // request parameter bytes
	responseLen int // response payload bytes
	decode      func(h Header, payload []byte) Result
}

var commandTable = map[Command]commandSpec{
	CmdGetVersion:       {name: "GET_VERSION", paramLen: 0, responseLen: 3, decode: decodeVersion},
	CmdGetBaseVoltage:   {name: "GET_BASE_VOLTAGE", paramLen: 0, responseLen: 2, decode: decodeBaseVoltage},
	CmdGetConnections:   {name: "GET_CONNECTIONS", paramLen: 0, responseLen: 4, decode: decodeConnections},
	CmdGetME:            {name: "GET_ME", paramLen: 0, responseLen: 8, decode: decodeME},
	CmdGetSME:           {name: "GET_SME", paramLen: 0, responseLen: 8, decode: decodeSME},
	CmdStartPolling:     {name: "START_POLLING", paramLen: 0, responseLen: 0, decode: decodeStartPolling},
	CmdStopPolling:      {name: "STOP_POLLING", paramLen: 0, responseLen: 0, decode: decodeStopPolling},
	CmdSetPollingRate:   {name: "SET_POLLING_RATE", paramLen: 2, responseLen: 0, decode: decodeSetPollingRate},
	CmdGetPollingRate:   {name: "GET_POLLING_RATE", paramLen: 0, responseLen: 2, decode: decodePollingRate},
	CmdGetPollingReport: {name: "GET_POLLING_REPORT", paramLen: 0, responseLen: 22, decode: decodePollingReport},
}

// Commands returns every known command in opcode order.
func Commands() []Command {
	return []Command{
		CmdGetVersion,
		CmdGetBaseVoltage,
		CmdGetConnections,
		CmdGetME,
		CmdGetSME,
		CmdStartPolling,
		CmdStopPolling,
		CmdSetPollingRate,
		CmdGetPollingRate,
		CmdGetPollingReport,
	}
}

// Valid reports whether c is a known opcode.
func (c Command) Valid() bool {
	_, ok := commandTable[c]
	return ok
}

// ResponseLen returns the fixed response payload length for c.
func (c Command) ResponseLen() (int, bool) {
	spec, ok := commandTable[c]
	return spec.responseLen, ok
}

// ParamLen returns the fixed request parameter length for c.
func (c Command) ParamLen() (int, bool) {
	spec, ok := commandTable[c]
	return spec.paramLen, ok
}

// String returns the protocol name of the command
func (c Command) String() string {
	return FormatCommand(c)
}
