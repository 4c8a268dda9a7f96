// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import (
	"encoding/binary"
	"fmt"
)

// Serialize builds a wire packet: [opcode][id hi][id lo][params...].
// The id is taken as an int so out-of-range values are rejected rather
// than silently truncated.
func Serialize(cmd Command, id int, params []byte) ([]byte, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, uint8(cmd))
	}
	if id < 0 || id > MaxRequestID {
		return nil, fmt.Errorf("%w: request id %d outside 0..%d", ErrInvalidArgument, id, MaxRequestID)
	}

	packet := make([]byte, HeaderSize, HeaderSize+len(params))
	packet[0] = uint8(cmd)
	binary.BigEndian.PutUint16(packet[1:3], uint16(id))
	packet = append(packet, params...)
	return packet, nil
}

// SetPollingRateParams encodes the SetPollingRate parameter (big-endian milliseconds).
func SetPollingRateParams(rateMs uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, rateMs)
}

// Deserialize decodes a complete packet into its typed Result.
//
// A packet starting with SETX is an error frame and is returned as a
// *DeviceError. Opcodes that are neither a Command nor SETX fail with
// ErrUnknownCommand, and packets shorter than the fixed payload of their
// opcode fail with ErrTruncatedPacket.
func Deserialize(packet []byte) (Result, error) {
	if len(packet) == 0 {
		return nil, fmt.Errorf("%w: empty packet", ErrTruncatedPacket)
	}

	if packet[0] == SETX {
		payload := packet[1:]
		if n := len(payload); n > 0 && payload[n-1] == EETX {
			payload = payload[:n-1]
		}
		return nil, &DeviceError{Payload: append([]byte(nil), payload...)}
	}

	cmd := Command(packet[0])
	spec, ok := commandTable[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, packet[0])
	}

	need := HeaderSize + spec.responseLen
	if len(packet) < need {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncatedPacket, spec.name, need, len(packet))
	}

	h := Header{RequestID: binary.BigEndian.Uint16(packet[1:3])}
	return spec.decode(h, packet[HeaderSize:need]), nil
}

// ADCToVoltage converts a signed 12-bit ADC code to volts on the 3.3 V reference.
func ADCToVoltage(raw int16) float64 {
	return ReferenceVoltage * float64(raw) / ADCFullScale
}

func readInt16(b []byte) int16 {
	return int16(binary.BigEndian.Uint16(b))
}

func readChannels(b []byte) [ChannelCount]int16 {
	var out [ChannelCount]int16
	for i := range out {
		out[i] = readInt16(b[i*2:])
	}
	return out
}

func decodeVersion(h Header, p []byte) Result {
	return &VersionResult{Header: h, Version: Version{Major: p[0], Minor: p[1], Patch: p[2]}}
}

func decodeBaseVoltage(h Header, p []byte) Result {
	return &BaseVoltageResult{Header: h, Voltage: ADCToVoltage(readInt16(p))}
}

func decodeConnections(h Header, p []byte) Result {
	r := &ConnectionsResult{Header: h}
	for i := range r.Connections {
		r.Connections[i] = p[i] != 0
	}
	return r
}

func decodeME(h Header, p []byte) Result {
	return &MEResult{Header: h, ME: readChannels(p)}
}

func decodeSME(h Header, p []byte) Result {
	return &SMEResult{Header: h, SME: readChannels(p)}
}

func decodeStartPolling(h Header, _ []byte) Result {
	return &StartPollingResult{Header: h}
}

func decodeStopPolling(h Header, _ []byte) Result {
	return &StopPollingResult{Header: h}
}

func decodeSetPollingRate(h Header, _ []byte) Result {
	return &SetPollingRateResult{Header: h}
}

func decodePollingRate(h Header, p []byte) Result {
	return &PollingRateResult{Header: h, Rate: binary.BigEndian.Uint16(p)}
}

// decodePollingReport: voltage(2) ME(8) SME(8) timestamp(4)
func decodePollingReport(h Header, p []byte) Result {
	return &PollingReportResult{
		Header:    h,
		Voltage:   ADCToVoltage(readInt16(p[0:2])),
		ME:        readChannels(p[2:10]),
		SME:       readChannels(p[10:18]),
		Timestamp: binary.BigEndian.Uint32(p[18:22]),
	}
}
