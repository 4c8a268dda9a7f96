// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import (
	"fmt"
	"strings"
)

// FormatCommand returns the human-readable name for a command opcode
func FormatCommand(cmd Command) string {
	if spec, ok := commandTable[cmd]; ok {
		return spec.name
	}
	return "UNKNOWN"
}

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.Timestamp().Format("15:04:05.000")

	if p.IsError() {
		truncated := ""
		if p.Truncated() {
			truncated = " (truncated)"
		}
		return fmt.Sprintf("[%s] DEVICE_ERROR len=%d%s\n%s", timestamp, len(p.Payload()), truncated, FormatRawBytes(p.Payload()))
	}

	cmd := p.Command()
	result := fmt.Sprintf("[%s] %s (0x%02X) id=0x%04X len=%d\n", timestamp, FormatCommand(cmd), uint8(cmd), p.ID(), len(p.Payload()))

	decoded, err := p.Decode()
	if err != nil {
		return result + fmt.Sprintf("  Decode error: %v\n", err)
	}
	return result + FormatResult(decoded)
}

// FormatResult renders the payload of a decoded result, one line per field
func FormatResult(r Result) string {
	switch v := r.(type) {
	case *VersionResult:
		return fmt.Sprintf("  Version: %d.%d.%d\n", v.Version.Major, v.Version.Minor, v.Version.Patch)
	case *BaseVoltageResult:
		return fmt.Sprintf("  Base voltage: %.3f V\n", v.Voltage)
	case *ConnectionsResult:
		parts := make([]string, len(v.Connections))
		for i, c := range v.Connections {
			state := "open"
			if c {
				state = "connected"
			}
			parts[i] = fmt.Sprintf("ch%d=%s", i, state)
		}
		return fmt.Sprintf("  Connections: %s\n", strings.Join(parts, " "))
	case *MEResult:
		return fmt.Sprintf("  ME: %s\n", formatChannels(v.ME))
	case *SMEResult:
		return fmt.Sprintf("  SME: %s\n", formatChannels(v.SME))
	case *StartPollingResult, *StopPollingResult, *SetPollingRateResult:
		return "  (no payload)\n"
	case *PollingRateResult:
		return fmt.Sprintf("  Rate: %d ms\n", v.Rate)
	case *PollingReportResult:
		return fmt.Sprintf("  Voltage: %.3f V, Timestamp: %d\n  ME:  %s\n  SME: %s\n",
			v.Voltage, v.Timestamp, formatChannels(v.ME), formatChannels(v.SME))
	default:
		return "  (unknown result)\n"
	}
}

func formatChannels(ch [ChannelCount]int16) string {
	parts := make([]string, len(ch))
	for i, v := range ch {
		parts[i] = fmt.Sprintf("%6d", v)
	}
	return strings.Join(parts, " ")
}

// FormatRawBytes renders a hex dump, 16 bytes per line
func FormatRawBytes(data []byte) string {
	if len(data) == 0 {
		return "  (no payload)\n"
	}
	result := "  Payload: "
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			result += "\n           "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
