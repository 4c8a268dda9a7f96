// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config resolves CLI settings from flags, MEDJC09_* environment
// variables, .env files and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key (MEDJC09_PORT, ...).
const EnvPrefix = "medjc09"

// Keys shared between flags, env and config file
const (
	KeyPort        = "port"
	KeyBaud        = "baud"
	KeyURL         = "url"
	KeyUsername    = "username"
	KeyPassword    = "password"
	KeyNoSSLVerify = "no-ssl-verify"
	KeyTimeout     = "timeout"
	KeyLogLevel    = "log-level"
)

// Settings is the resolved connection and logging configuration.
type Settings struct {
	Port        string
	Baud        int
	URL         string
	Username    string
	Password    string
	NoSSLVerify bool
	Timeout     time.Duration
	LogLevel    string
}

// Init loads .env files and wires environment lookup into v. If
// configFile is set it is read as well; a missing file is an error.
func Init(v *viper.Viper, configFile string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyBaud, 115200)
	v.SetDefault(KeyUsername, "admin")
	v.SetDefault(KeyTimeout, time.Second)
	v.SetDefault(KeyLogLevel, "info")

	if configFile == "" {
		return nil
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", configFile, err)
	}
	return nil
}

// BindFlags binds a command's local and persistent flags to v.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		return err
	}
	return v.BindPFlags(cmd.Flags())
}

// Load reads the resolved settings from v.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Port:        v.GetString(KeyPort),
		Baud:        v.GetInt(KeyBaud),
		URL:         v.GetString(KeyURL),
		Username:    v.GetString(KeyUsername),
		Password:    v.GetString(KeyPassword),
		NoSSLVerify: v.GetBool(KeyNoSSLVerify),
		Timeout:     v.GetDuration(KeyTimeout),
		LogLevel:    v.GetString(KeyLogLevel),
	}
	return s, s.Validate()
}

// Validate checks that exactly one transport is selected.
func (s Settings) Validate() error {
	if s.Port == "" && s.URL == "" {
		return errors.New("either --port or --url must be specified")
	}
	if s.Port != "" && s.URL != "" {
		return errors.New("cannot specify both --port and --url")
	}
	if s.Port != "" && s.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", s.Baud)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s", s.Timeout)
	}
	return nil
}
