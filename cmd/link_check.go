// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

var linkCheckCmd = &cobra.Command{
	Use:   "link_check",
	Short: "Test connection stability without sending commands",
	Long: `Hold the connection open and count what arrives, without sending anything.

Incoming bytes are run through the frame reader so the summary shows how many
complete frames arrived and how many bytes were discarded while resynchronizing.
Useful for debugging flaky serial cables and WebSocket bridges. Start polling
from another client to generate traffic.

Exit codes:
  0 - Test completed normally
  1 - Connection dropped during the test
  2 - Connection error`,
	RunE: runLinkCheck,
}

var linkCheckDuration int

func init() {
	rootCmd.AddCommand(linkCheckCmd)
	linkCheckCmd.Flags().IntVar(&linkCheckDuration, "duration", 30, "Test duration in seconds")
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	conn, connInfo, err := OpenConnection(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Connection Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", linkCheckDuration)

	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)
	go readChunks(conn, readChan, errChan)

	decoder := medjc09.NewDecoder()
	start := time.Now()
	endTime := start.Add(time.Duration(linkCheckDuration) * time.Second)
	bytesReceived := 0
	framesReceived := 0
	errorFrames := 0

	printResults := func(result string) {
		fmt.Printf("\n--- Test Results ---\n")
		fmt.Printf("Duration: %s\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("Bytes received: %d\n", bytesReceived)
		fmt.Printf("Frames received: %d (error frames: %d)\n", framesReceived, errorFrames)
		fmt.Printf("Bytes discarded: %d\n", decoder.Discarded())
		fmt.Printf("Result: %s\n", result)
	}

	fmt.Printf("Listening for data...\n\n")

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			bytesReceived += len(data)
			packets, _ := decoder.Decode(data)
			for _, p := range packets {
				framesReceived++
				if p.IsError() {
					errorFrames++
				}
			}
			logger.Debug().Int("bytes", len(data)).Hex("data", data).Msg("received")

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n", time.Now().Format("15:04:05.000"), err)
			printResults("FAILED (connection error)")
			os.Exit(1)

		case <-heartbeat.C:
			fmt.Printf("[%s] Still connected... %d frames (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), framesReceived, time.Until(endTime).Seconds())
		}
	}

	printResults("PASSED (connection stable)")
	return nil
}
