// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"trace", zerolog.TraceLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"off", zerolog.Disabled, false},
		{"loud", zerolog.NoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info message written at warn level: %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "medjc09") {
		t.Errorf("app field missing: %q", out)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New("chatty", nil); err == nil {
		t.Error("expected error for invalid level")
	}
}
