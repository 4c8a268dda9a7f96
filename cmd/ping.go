// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure round-trip time with repeated GET_VERSION requests",
	Long: `Send GET_VERSION requests and report the round-trip time of each.

This exercises the full request path: framing, request ids, the transport
(serial or WebSocket bridge) and the hub firmware. Each request is bounded by
--timeout.

Exit codes:
  0 - All requests answered
  1 - One or more requests failed or timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of requests to send")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 100*time.Millisecond, "Delay between requests")
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	h, connInfo, err := openHub()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer h.Close()

	fmt.Printf("MedJC09 - Ping\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	var total, best, worst time.Duration
	successCount := 0
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Request %d/%d: ", i, pingCount)

		start := time.Now()
		v, err := h.GetVersion(context.Background())
		rtt := time.Since(start)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			failCount++
		} else {
			fmt.Printf("version %d.%d.%d, id=0x%04X, rtt=%v\n",
				v.Version.Major, v.Version.Minor, v.Version.Patch, v.ID(), rtt.Round(time.Microsecond))
			successCount++
			total += rtt
			if best == 0 || rtt < best {
				best = rtt
			}
			if rtt > worst {
				worst = rtt
			}
		}

		if i < pingCount {
			time.Sleep(pingInterval)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d requests sent, %d responses received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)
	if successCount > 0 {
		fmt.Printf("rtt min/avg/max = %v/%v/%v\n",
			best.Round(time.Microsecond),
			(total / time.Duration(successCount)).Round(time.Microsecond),
			worst.Round(time.Microsecond))
	}

	if failCount > 0 {
		h.Close()
		os.Exit(1)
	}
	return nil
}
