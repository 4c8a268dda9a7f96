// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/medjc09/internal/sink"
	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

var replayJSON bool

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Print a report recording made with poll --record",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print one JSON object per line")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	r := sink.NewReplayer(f)
	enc := json.NewEncoder(os.Stdout)
	tracker := &medjc09.ReportTracker{}
	count, anomalies := 0, 0

	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", count+1, err)
		}
		count++

		issues := tracker.Check(rec.Report())
		anomalies += len(issues)

		if replayJSON {
			if err := enc.Encode(rec); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("[%s] t=%d V=%.3f ME=%v SME=%v\n",
			rec.ReceivedAt.Format("2006-01-02 15:04:05.000"), rec.Timestamp, rec.Voltage, rec.ME, rec.SME)
		for _, issue := range issues {
			fmt.Printf("  \033[1;33m%s\033[0m\n", issue.Message)
		}
	}

	if !replayJSON {
		fmt.Printf("\n%d records, %d anomalies\n", count, anomalies)
	}
	return nil
}
