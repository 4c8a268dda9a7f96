// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrUnexpectedResponse = errors.New("hub: unexpected response")
	ErrTimeout            = errors.New("hub: request timed out")
	ErrClosed             = errors.New("hub: closed")
	ErrTransport          = errors.New("hub: transport error")
	ErrNoFreeID           = errors.New("hub: no free request id")
)

// Serial defaults
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 100 * time.Millisecond
)

// Config defines engine timing and logging.
type Config struct {
	// RequestTimeout bounds each request when the caller's context has no
	// earlier deadline.
	RequestTimeout time.Duration
	// ReadBufferSize is the transport read chunk size.
	ReadBufferSize int
	// CloseTimeout bounds how long Close waits for the reader to exit.
	CloseTimeout time.Duration
	Logger       zerolog.Logger
}

// DefaultConfig returns engine defaults with logging disabled.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 1 * time.Second,
		ReadBufferSize: 128,
		CloseTimeout:   2 * time.Second,
		Logger:         zerolog.Nop(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = d.CloseTimeout
	}
	return c
}
