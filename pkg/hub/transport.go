// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// OpenSerial opens a serial port at 8N1 with the given read timeout.
// A read that times out returns (0, nil), which the reader loop ignores.
func OpenSerial(portName string, baud int, readTimeout time.Duration) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return port, nil
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Open opens a serial port and starts a Hub on it
func Open(portName string, baud int, cfg Config) (*Hub, error) {
	port, err := OpenSerial(portName, baud, DefaultReadTimeout)
	if err != nil {
		return nil, err
	}
	return New(port, cfg), nil
}
