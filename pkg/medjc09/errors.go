// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("medjc09: invalid argument")
	ErrUnknownCommand  = errors.New("medjc09: unknown command")
	ErrTruncatedPacket = errors.New("medjc09: truncated packet")
	ErrUnexpectedByte  = errors.New("medjc09: unexpected byte")
	ErrFrameOverflow   = errors.New("medjc09: error frame overflow")
	ErrDeviceError     = errors.New("medjc09: device error")
)

// DeviceError is the payload of an SETX...EETX error frame reported by the hub.
// Truncated is set when the frame ran past MaxErrorPayloadSize and only the
// leading bytes were kept.
type DeviceError struct {
	Payload   []byte
	Truncated bool
}

func (e *DeviceError) Error() string {
	if len(e.Payload) == 0 {
		return "medjc09: device error (empty payload)"
	}
	if e.Truncated {
		return fmt.Sprintf("medjc09: device error (truncated to %d bytes): % X", len(e.Payload), e.Payload)
	}
	return fmt.Sprintf("medjc09: device error: % X", e.Payload)
}

// Is matches ErrDeviceError so callers can test with errors.Is. A truncated
// error also matches ErrFrameOverflow.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDeviceError || (e.Truncated && target == ErrFrameOverflow)
}
