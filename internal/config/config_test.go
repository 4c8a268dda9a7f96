// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().StringP(KeyPort, "p", "", "")
	cmd.PersistentFlags().IntP(KeyBaud, "b", 115200, "")
	cmd.PersistentFlags().StringP(KeyURL, "u", "", "")
	cmd.PersistentFlags().Duration(KeyTimeout, time.Second, "")
	return cmd
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("MEDJC09_PORT", "/dev/ttyUSB7")
	t.Setenv("MEDJC09_LOG_LEVEL", "debug")

	v := viper.New()
	if err := Init(v, ""); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	s, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Port != "/dev/ttyUSB7" {
		t.Errorf("Port = %q, want /dev/ttyUSB7", s.Port)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", s.LogLevel)
	}
	if s.Baud != 115200 {
		t.Errorf("Baud = %d, want 115200", s.Baud)
	}
	if s.Timeout != time.Second {
		t.Errorf("Timeout = %s, want 1s", s.Timeout)
	}
}

func TestFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("MEDJC09_PORT", "/dev/ttyUSB7")

	v := viper.New()
	if err := Init(v, ""); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	cmd := newCommand()
	if err := cmd.ParseFlags([]string{"--port", "/dev/ttyACM0", "--baud", "57600"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if err := BindFlags(v, cmd); err != nil {
		t.Fatalf("BindFlags failed: %v", err)
	}

	s, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Port != "/dev/ttyACM0" {
		t.Errorf("Port = %q, want /dev/ttyACM0", s.Port)
	}
	if s.Baud != 57600 {
		t.Errorf("Baud = %d, want 57600", s.Baud)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medjc09.yaml")
	content := "url: ws://bridge.local/ws\ntimeout: 3s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v := viper.New()
	if err := Init(v, path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	s, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.URL != "ws://bridge.local/ws" {
		t.Errorf("URL = %q", s.URL)
	}
	if s.Timeout != 3*time.Second {
		t.Errorf("Timeout = %s, want 3s", s.Timeout)
	}
}

func TestMissingConfigFile(t *testing.T) {
	v := viper.New()
	if err := Init(v, filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"serial", Settings{Port: "/dev/ttyUSB0", Baud: 115200, Timeout: time.Second}, false},
		{"websocket", Settings{URL: "ws://host/ws", Timeout: time.Second}, false},
		{"neither", Settings{Timeout: time.Second}, true},
		{"both", Settings{Port: "/dev/ttyUSB0", URL: "ws://host/ws", Baud: 115200, Timeout: time.Second}, true},
		{"bad baud", Settings{Port: "/dev/ttyUSB0", Timeout: time.Second}, true},
		{"bad timeout", Settings{URL: "ws://host/ws"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
