// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

var (
	rawErrorsOnly    bool
	rawStatsInterval int
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw packet log in human-readable format",
	Long: `Passively decode and display MedJC09 frames as they arrive.

Nothing is sent to the hub. Every frame is shown with timestamp, command,
request id and decoded payload; error frames are shown with their raw payload.
Decoded values are validated and anomalies are highlighted.

Use --errors-only to show only decode failures, error frames and anomalies,
and --stats-interval to print periodic statistics.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawErrorsOnly, "errors-only", false, "Only show errors and anomalies")
	rawLogCmd.Flags().IntVar(&rawStatsInterval, "stats-interval", 0, "Statistics interval in seconds (0 disables)")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	conn, connInfo, err := OpenConnection(s)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("MedJC09 - Raw Packet Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chunks := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go readChunks(conn, chunks, readErr)

	decoder := medjc09.NewDecoder()
	stats := medjc09.NewStatistics()
	tracker := &medjc09.ReportTracker{}

	var statsTick <-chan time.Time
	if rawStatsInterval > 0 {
		ticker := time.NewTicker(time.Duration(rawStatsInterval) * time.Second)
		defer ticker.Stop()
		statsTick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Print(stats.String())
			return nil

		case err := <-readErr:
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				logger.Info().Msg("connection closed")
				return nil
			}
			return fmt.Errorf("read error: %w", err)

		case <-statsTick:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case data := <-chunks:
			for _, b := range data {
				packet, err := decoder.DecodeByte(b)
				if err != nil {
					stats.Update(nil, err, nil)
					if !errors.Is(err, medjc09.ErrUnexpectedByte) || !rawErrorsOnly {
						fmt.Printf("[ERROR] %v\n", err)
					}
					continue
				}
				if packet != nil {
					logPacket(packet, stats, tracker)
				}
			}
		}
	}
}

// readChunks copies transport reads onto a channel until the first error.
func readChunks(r io.Reader, out chan<- []byte, errc chan<- error) {
	buf := make([]byte, 128)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			out <- data
		}
		if err != nil {
			errc <- err
			return
		}
	}
}

func logPacket(packet *medjc09.Packet, stats *medjc09.Statistics, tracker *medjc09.ReportTracker) {
	result, err := packet.Decode()
	if err != nil {
		stats.Update(nil, err, nil)
		fmt.Print(medjc09.FormatPacket(packet))
		return
	}

	var anomalies []medjc09.ValidationError
	if report, ok := result.(*medjc09.PollingReportResult); ok {
		anomalies = tracker.Check(report)
	} else {
		anomalies = medjc09.ValidateResult(result)
	}
	stats.Update(result, nil, anomalies)

	if len(anomalies) > 0 {
		printAnomalies(packet, anomalies)
		return
	}
	if !rawErrorsOnly {
		fmt.Print(medjc09.FormatPacket(packet))
	}
}

func printAnomalies(packet *medjc09.Packet, anomalies []medjc09.ValidationError) {
	timestamp := packet.Timestamp().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m %s (0x%02X) id=0x%04X\n",
		timestamp, packet.Command(), uint8(packet.Command()), packet.ID())
	for i, a := range anomalies {
		fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, a.Message)
	}
	fmt.Println()
}
