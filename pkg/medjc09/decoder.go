// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import "fmt"

// Decoder implements the MedJC09 frame reader state machine.
//
// The stream carries no length prefix: the opcode alone determines how many
// bytes a normal frame has, and error frames run until EETX.
type Decoder struct {
	state     int
	buffer    []byte
	expected  int    // total bytes of the normal frame being read
	rawBuffer []byte // bytes since the last frame boundary, including markers
	discarded uint64
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		buffer:    make([]byte, 0, MaxErrorPayloadSize),
		rawBuffer: make([]byte, 0, MaxErrorPayloadSize+2),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.buffer = d.buffer[:0]
	d.expected = 0
	d.rawBuffer = d.rawBuffer[:0]
}

// RawBytes returns a copy of the raw bytes since the last frame boundary
func (d *Decoder) RawBytes() []byte {
	return append([]byte(nil), d.rawBuffer...)
}

// Discarded returns how many bytes were dropped while resynchronizing
func (d *Decoder) Discarded() uint64 {
	return d.discarded
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed packet, or nil if the frame is incomplete.
// Errors are recoverable: the decoder is back in a consistent state and the
// next byte can be fed immediately.
func (d *Decoder) DecodeByte(b byte) (*Packet, error) {
	switch d.state {
	case stateIdle:
		d.rawBuffer = append(d.rawBuffer[:0], b)

		if b == SETX {
			d.buffer = d.buffer[:0]
			d.state = stateError
			return nil, nil
		}

		n, ok := Command(b).ResponseLen()
		if !ok {
			d.discarded++
			d.rawBuffer = d.rawBuffer[:0]
			return nil, fmt.Errorf("%w: 0x%02X while idle", ErrUnexpectedByte, b)
		}
		d.buffer = append(d.buffer[:0], b)
		d.expected = HeaderSize + n
		d.state = stateNormal
		return nil, nil

	case stateNormal:
		d.rawBuffer = append(d.rawBuffer, b)
		d.buffer = append(d.buffer, b)
		if len(d.buffer) < d.expected {
			return nil, nil
		}
		packet := NewPacket(append([]byte(nil), d.buffer...))
		d.Reset()
		return packet, nil

	case stateError:
		d.rawBuffer = append(d.rawBuffer, b)
		if b == EETX {
			packet := NewErrorPacket(append([]byte(nil), d.buffer...))
			d.Reset()
			return packet, nil
		}
		if len(d.buffer) >= MaxErrorPayloadSize {
			// still inside the frame: drop the rest of the payload up to EETX
			d.state = stateErrorDiscard
			return nil, nil
		}
		d.buffer = append(d.buffer, b)
		return nil, nil

	case stateErrorDiscard:
		if b != EETX {
			return nil, nil
		}
		d.rawBuffer = append(d.rawBuffer, b)
		packet := NewTruncatedErrorPacket(append([]byte(nil), d.buffer...))
		d.Reset()
		return packet, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// Decode feeds a chunk through the decoder, returning completed packets and
// any per-byte errors encountered along the way.
func (d *Decoder) Decode(data []byte) ([]*Packet, []error) {
	var packets []*Packet
	var errs []error
	for _, b := range data {
		packet, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if packet != nil {
			packets = append(packets, packet)
		}
	}
	return packets, errs
}
