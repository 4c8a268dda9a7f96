// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import "github.com/Thermoquad/medjc09/pkg/medjc09"

// Channel scaling: the ME/SME front end spans 5 V behind a divide-by-two,
// over the full signed 16-bit code range.
const (
	ChannelSpan     = 5.0
	ChannelDivider  = 2.0
	ChannelFullCode = 32768.0
)

// MaxChannelVoltage is the magnitude bound of ChannelVoltage.
const MaxChannelVoltage = ChannelSpan / ChannelDivider

// ChannelVoltage converts one ME/SME raw code to volts.
func ChannelVoltage(raw int16) float64 {
	return float64(raw) * (ChannelSpan / ChannelDivider) / ChannelFullCode
}

// ChannelVoltages converts all four channels.
func ChannelVoltages(raw [medjc09.ChannelCount]int16) [medjc09.ChannelCount]float64 {
	var out [medjc09.ChannelCount]float64
	for i, v := range raw {
		out[i] = ChannelVoltage(v)
	}
	return out
}
