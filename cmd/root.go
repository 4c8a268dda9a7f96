// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Thermoquad/medjc09/internal/config"
	"github.com/Thermoquad/medjc09/internal/logging"
)

var (
	cfgFile string

	// logger is set up in PersistentPreRunE
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "medjc09",
	Short: "MedJC09 hub client",
	Long: `medjc09 - A CLI tool for talking to the MedJC09 measurement hub.

Provides one command per hub operation, a polling stream with optional Redis,
recording and Prometheus outputs, a passive frame sniffer and a live monitor.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Every flag can also be set through a MEDJC09_* environment variable
(MEDJC09_PORT, MEDJC09_BAUD, ...), a .env file in the working directory or a
config file passed with --config.

For WebSocket authentication, the password is read from the MEDJC09_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringP(config.KeyPort, "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntP(config.KeyBaud, "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringP(config.KeyURL, "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().String(config.KeyUsername, "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().Bool(config.KeyNoSSLVerify, false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().Duration(config.KeyTimeout, time.Second, "Per-request timeout")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, "info", "Log level (trace, debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (TOML, YAML or JSON)")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := config.Init(viper.GetViper(), cfgFile); err != nil {
		return err
	}
	if err := config.BindFlags(viper.GetViper(), cmd.Root()); err != nil {
		return err
	}

	l, err := logging.New(viper.GetString(config.KeyLogLevel), os.Stderr)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
