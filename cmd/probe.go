// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/medjc09/pkg/hub"
	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

var probeTimeout int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test the connection by requesting the hub version",
	Long: `Send GET_VERSION and wait for the response until timeout.

Exit codes:
  0 - Hub answered before timeout
  1 - Timeout reached without a response
  2 - Connection error, or the hub answered with an error frame

Useful for testing connectivity to the hub or a WebSocket bridge.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "wait", 10, "Seconds to wait for the response")
}

func runProbe(cmd *cobra.Command, args []string) error {
	h, connInfo, err := openHub()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("MedJC09 - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", probeTimeout)
	fmt.Printf("Sending GET_VERSION...\n\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(probeTimeout)*time.Second)
	defer cancel()

	// a bridge may need a moment, so retry until ctx expires
	start := time.Now()
	var result *medjc09.VersionResult
	for {
		result, err = h.GetVersion(ctx)
		if err == nil || !errors.Is(err, hub.ErrTimeout) || ctx.Err() != nil {
			break
		}
	}
	stats := h.Stats()
	h.Close()

	switch {
	case err == nil:
		fmt.Printf("SUCCESS: Hub answered in %s\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("  Version: %d.%d.%d\n", result.Version.Major, result.Version.Minor, result.Version.Patch)
		fmt.Printf("  Request id: 0x%04X\n", result.ID())
		if stats.DiscardedBytes > 0 {
			fmt.Printf("  (skipped %d invalid bytes)\n", stats.DiscardedBytes)
		}
		os.Exit(0)

	case errors.Is(err, hub.ErrTimeout):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No response within %d seconds\n", probeTimeout)
		os.Exit(1)

	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	return nil
}
