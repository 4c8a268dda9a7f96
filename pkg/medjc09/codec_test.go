// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package medjc09

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

// ============================================================
// Test Helpers
// ============================================================

// buildPacket assembles [opcode][id BE][payload]
func buildPacket(cmd Command, id uint16, payload ...byte) []byte {
	return append([]byte{uint8(cmd), byte(id >> 8), byte(id)}, payload...)
}

func approxEqual(a, b, relTol float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= relTol*math.Max(math.Abs(a), math.Abs(b))
}

// ============================================================
// Serialize Tests
// ============================================================

func TestSerialize(t *testing.T) {
	tests := []struct {
		name   string
		cmd    Command
		id     int
		params []byte
		want   []byte
	}{
		{"get version", CmdGetVersion, 0x1234, nil, []byte{0x01, 0x12, 0x34}},
		{"id zero", CmdGetBaseVoltage, 0, nil, []byte{0x02, 0x00, 0x00}},
		{"id max", CmdGetME, 0xFFFF, nil, []byte{0x30, 0xFF, 0xFF}},
		{"set polling rate", CmdSetPollingRate, 7, SetPollingRateParams(500), []byte{0x42, 0x00, 0x07, 0x01, 0xF4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Serialize(tt.cmd, tt.id, tt.params)
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Serialize = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestSerialize_InvalidID(t *testing.T) {
	for _, id := range []int{-1, 65536, 1 << 20} {
		_, err := Serialize(CmdGetVersion, id, nil)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Serialize(id=%d) error = %v, want ErrInvalidArgument", id, err)
		}
	}
}

func TestSerialize_UnknownCommand(t *testing.T) {
	_, err := Serialize(Command(0x99), 1, nil)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Serialize(0x99) error = %v, want ErrUnknownCommand", err)
	}
}

func TestSetPollingRateParams(t *testing.T) {
	if got := SetPollingRateParams(0x0102); !bytes.Equal(got, []byte{0x01, 0x02}) {
		t.Errorf("SetPollingRateParams(0x0102) = % X", got)
	}
}

// ============================================================
// Deserialize Tests
// ============================================================

func TestDeserialize_Version(t *testing.T) {
	r, err := Deserialize(buildPacket(CmdGetVersion, 0x1234, 1, 2, 3))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	v, ok := r.(*VersionResult)
	if !ok {
		t.Fatalf("got %T, want *VersionResult", r)
	}
	if v.ID() != 0x1234 {
		t.Errorf("ID = 0x%04X, want 0x1234", v.ID())
	}
	if v.Version != (Version{Major: 1, Minor: 2, Patch: 3}) {
		t.Errorf("Version = %+v, want 1.2.3", v.Version)
	}
}

func TestDeserialize_BaseVoltage(t *testing.T) {
	tests := []struct {
		name string
		raw  int16
		want float64
	}{
		{"full scale", 4095, 3.3},
		{"zero", 0, 0.0},
		{"negative full scale", -4095, -3.3},
		{"half scale", 2048, 3.3 * 2048 / 4095},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := uint16(tt.raw)
			r, err := Deserialize(buildPacket(CmdGetBaseVoltage, 0x1234, byte(raw>>8), byte(raw)))
			if err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			v := r.(*BaseVoltageResult)
			if !approxEqual(v.Voltage, tt.want, 0.01) {
				t.Errorf("Voltage = %f, want %f", v.Voltage, tt.want)
			}
		})
	}
}

func TestDeserialize_Connections(t *testing.T) {
	r, err := Deserialize(buildPacket(CmdGetConnections, 0x1234, 0x01, 0x00, 0x00, 0x00))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	got := r.(*ConnectionsResult).Connections
	want := [ChannelCount]bool{true, false, false, false}
	if got != want {
		t.Errorf("Connections = %v, want %v", got, want)
	}

	r, _ = Deserialize(buildPacket(CmdGetConnections, 1, 0x00, 0x7F, 0x00, 0xFF))
	got = r.(*ConnectionsResult).Connections
	want = [ChannelCount]bool{false, true, false, true}
	if got != want {
		t.Errorf("nonzero bytes: Connections = %v, want %v", got, want)
	}
}

func TestDeserialize_MEAndSME(t *testing.T) {
	payload := []byte{
		0x03, 0xE8, // 1000
		0xFF, 0xFF, // -1
		0x80, 0x00, // -32768
		0x7F, 0xFF, // 32767
	}
	want := [ChannelCount]int16{1000, -1, -32768, 32767}

	r, err := Deserialize(buildPacket(CmdGetME, 0x1234, payload...))
	if err != nil {
		t.Fatalf("Deserialize ME failed: %v", err)
	}
	if got := r.(*MEResult).ME; got != want {
		t.Errorf("ME = %v, want %v", got, want)
	}

	r, err = Deserialize(buildPacket(CmdGetSME, 0x1234, payload...))
	if err != nil {
		t.Fatalf("Deserialize SME failed: %v", err)
	}
	if got := r.(*SMEResult).SME; got != want {
		t.Errorf("SME = %v, want %v", got, want)
	}
}

func TestDeserialize_MarkerResults(t *testing.T) {
	for _, cmd := range []Command{CmdStartPolling, CmdStopPolling, CmdSetPollingRate} {
		t.Run(cmd.String(), func(t *testing.T) {
			r, err := Deserialize(buildPacket(cmd, 0x1234))
			if err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if r.Command() != cmd {
				t.Errorf("Command = %s, want %s", r.Command(), cmd)
			}
			if r.ID() != 0x1234 {
				t.Errorf("ID = 0x%04X, want 0x1234", r.ID())
			}
		})
	}
}

func TestDeserialize_PollingRate(t *testing.T) {
	r, err := Deserialize(buildPacket(CmdGetPollingRate, 0x1234, 0x03, 0xE8))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if got := r.(*PollingRateResult).Rate; got != 1000 {
		t.Errorf("Rate = %d, want 1000", got)
	}
}

func TestDeserialize_PollingReport(t *testing.T) {
	payload := []byte{
		0x0F, 0xFF, // voltage raw 4095
		0x03, 0xE8, 0x03, 0xE9, 0x00, 0x00, 0x00, 0x00, // ME 1000, 1001, 0, 0
		0x07, 0xD0, 0x07, 0xD1, 0x00, 0x00, 0x00, 0x00, // SME 2000, 2001, 0, 0
		0x00, 0x00, 0x0D, 0xAC, // timestamp 3500
	}

	r, err := Deserialize(buildPacket(CmdGetPollingReport, 0x1234, payload...))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	rep := r.(*PollingReportResult)

	if !approxEqual(rep.Voltage, 3.3, 0.01) {
		t.Errorf("Voltage = %f, want ~3.3", rep.Voltage)
	}
	if rep.ME != [ChannelCount]int16{1000, 1001, 0, 0} {
		t.Errorf("ME = %v", rep.ME)
	}
	if rep.SME != [ChannelCount]int16{2000, 2001, 0, 0} {
		t.Errorf("SME = %v", rep.SME)
	}
	if rep.Timestamp != 3500 {
		t.Errorf("Timestamp = %d, want 3500", rep.Timestamp)
	}
}

func TestDeserialize_UnknownCommand(t *testing.T) {
	for _, op := range []byte{0x00, 0x03, 0x99, EETX} {
		_, err := Deserialize([]byte{op, 0x00, 0x01, 0x00, 0x00})
		if !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("opcode 0x%02X: error = %v, want ErrUnknownCommand", op, err)
		}
	}
}

func TestDeserialize_Truncated(t *testing.T) {
	tests := []struct {
		name   string
		packet []byte
	}{
		{"empty", nil},
		{"opcode only", []byte{0x01}},
		{"missing id byte", []byte{0x40, 0x00}},
		{"short version", buildPacket(CmdGetVersion, 1, 1, 2)},
		{"short report", buildPacket(CmdGetPollingReport, 1, make([]byte, 21)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.packet)
			if !errors.Is(err, ErrTruncatedPacket) {
				t.Errorf("error = %v, want ErrTruncatedPacket", err)
			}
		})
	}
}

func TestDeserialize_ErrorFrame(t *testing.T) {
	tests := []struct {
		name   string
		packet []byte
		want   []byte
	}{
		{"with end marker", []byte{SETX, 0x01, 0x02, EETX}, []byte{0x01, 0x02}},
		{"without end marker", []byte{SETX, 0x03}, []byte{0x03}},
		{"empty payload", []byte{SETX, EETX}, []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.packet)
			if !errors.Is(err, ErrDeviceError) {
				t.Fatalf("error = %v, want ErrDeviceError", err)
			}
			var devErr *DeviceError
			if !errors.As(err, &devErr) {
				t.Fatalf("error %T is not *DeviceError", err)
			}
			if !bytes.Equal(devErr.Payload, tt.want) {
				t.Errorf("Payload = % X, want % X", devErr.Payload, tt.want)
			}
		})
	}
}

// Every command round-trips its id and variant when given a payload of
// the response length.
func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	for _, cmd := range Commands() {
		for _, id := range []int{0, 1, 0x1234, 0xFFFF} {
			n, _ := cmd.ResponseLen()
			packet, err := Serialize(cmd, id, make([]byte, n))
			if err != nil {
				t.Fatalf("%s id=%d: Serialize failed: %v", cmd, id, err)
			}
			r, err := Deserialize(packet)
			if err != nil {
				t.Fatalf("%s id=%d: Deserialize failed: %v", cmd, id, err)
			}
			if r.Command() != cmd {
				t.Errorf("%s id=%d: Command = %s", cmd, id, r.Command())
			}
			if int(r.ID()) != id {
				t.Errorf("%s id=%d: ID = %d", cmd, id, r.ID())
			}
		}
	}
}

func TestVersionRoundTrip(t *testing.T) {
	packet, _ := Serialize(CmdGetVersion, 42, []byte{2, 7, 13})
	r, err := Deserialize(packet)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if v := r.(*VersionResult).Version; v != (Version{2, 7, 13}) {
		t.Errorf("Version = %+v, want 2.7.13", v)
	}
}

// ============================================================
// Command Table Tests
// ============================================================

func TestCommandTable(t *testing.T) {
	want := map[Command][2]int{ // paramLen, responseLen
		CmdGetVersion:       {0, 3},
		CmdGetBaseVoltage:   {0, 2},
		CmdGetConnections:   {0, 4},
		CmdGetME:            {0, 8},
		CmdGetSME:           {0, 8},
		CmdStartPolling:     {0, 0},
		CmdStopPolling:      {0, 0},
		CmdSetPollingRate:   {2, 0},
		CmdGetPollingRate:   {0, 2},
		CmdGetPollingReport: {0, 22},
	}

	if len(Commands()) != len(want) {
		t.Fatalf("Commands() has %d entries, want %d", len(Commands()), len(want))
	}
	for cmd, lens := range want {
		p, ok := cmd.ParamLen()
		if !ok || p != lens[0] {
			t.Errorf("%s ParamLen = %d, %v; want %d", cmd, p, ok, lens[0])
		}
		r, ok := cmd.ResponseLen()
		if !ok || r != lens[1] {
			t.Errorf("%s ResponseLen = %d, %v; want %d", cmd, r, ok, lens[1])
		}
	}

	if Command(SETX).Valid() || Command(EETX).Valid() {
		t.Error("protocol markers must not be valid commands")
	}
}

func TestADCToVoltage(t *testing.T) {
	if got := ADCToVoltage(4095); !approxEqual(got, ReferenceVoltage, 1e-9) {
		t.Errorf("ADCToVoltage(4095) = %f", got)
	}
	if got := ADCToVoltage(0); got != 0 {
		t.Errorf("ADCToVoltage(0) = %f", got)
	}
}
