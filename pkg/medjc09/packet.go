// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import (
	"encoding/binary"
	"time"
)

// Packet represents one complete frame taken off the wire
type Packet struct {
	raw       []byte // normal frame: full packet; error frame: payload without markers
	isError   bool
	truncated bool // error payload exceeded MaxErrorPayloadSize
	timestamp time.Time
}

// NewPacket wraps a complete normal packet
func NewPacket(raw []byte) *Packet {
	return &Packet{raw: raw, timestamp: time.Now()}
}

// NewErrorPacket wraps the payload of an error frame (markers excluded)
func NewErrorPacket(payload []byte) *Packet {
	return &Packet{raw: payload, isError: true, timestamp: time.Now()}
}

// NewTruncatedErrorPacket wraps the first MaxErrorPayloadSize bytes of an
// oversized error frame
func NewTruncatedErrorPacket(payload []byte) *Packet {
	return &Packet{raw: payload, isError: true, truncated: true, timestamp: time.Now()}
}

// IsError returns true for SETX...EETX error frames
func (p *Packet) IsError() bool {
	return p.isError
}

// Truncated reports whether an error frame lost payload bytes past
// MaxErrorPayloadSize
func (p *Packet) Truncated() bool {
	return p.truncated
}

// Command returns the packet opcode (0 for error frames)
func (p *Packet) Command() Command {
	if p.isError || len(p.raw) == 0 {
		return 0
	}
	return Command(p.raw[0])
}

// ID returns the request id (0 for error frames)
func (p *Packet) ID() uint16 {
	if p.isError || len(p.raw) < HeaderSize {
		return 0
	}
	return binary.BigEndian.Uint16(p.raw[1:3])
}

// Payload returns the command payload, or the error payload for error frames
func (p *Packet) Payload() []byte {
	if p.isError {
		return p.raw
	}
	if len(p.raw) < HeaderSize {
		return nil
	}
	return p.raw[HeaderSize:]
}

// Bytes returns the packet in the form accepted by Deserialize
func (p *Packet) Bytes() []byte {
	if p.isError {
		out := make([]byte, 0, len(p.raw)+2)
		out = append(out, SETX)
		out = append(out, p.raw...)
		return append(out, EETX)
	}
	return p.raw
}

// Timestamp returns the packet's decode timestamp
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}

// Decode deserializes the packet. Error frames always yield a *DeviceError.
func (p *Packet) Decode() (Result, error) {
	if p.isError {
		return nil, &DeviceError{Payload: append([]byte(nil), p.raw...), Truncated: p.truncated}
	}
	return Deserialize(p.Bytes())
}
