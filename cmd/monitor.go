// SPDX-License-Identifier: Apache-2.0
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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/medjc09/pkg/hub"
	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

var (
	monitorAutoStart     bool
	monitorUseTUI        bool
	monitorStatsInterval int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of polling reports and link statistics",
	Long: `Start polling and watch reports, anomalies and link statistics live.

The dashboard shows the latest report (raw codes and channel voltages),
frame and request statistics and an event log of device errors, anomalous
values and polling changes. Polling can be started/stopped with 's' and the
polling rate changed with 'r'.

With --tui=false reports and anomalies are printed as text, with a
statistics summary every --stats-interval seconds. Polling is stopped on exit.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorAutoStart, "start", true, "Start polling on launch")
	monitorCmd.Flags().BoolVar(&monitorUseTUI, "tui", true, "Use terminal UI (false for text mode)")
	monitorCmd.Flags().IntVar(&monitorStatsInterval, "stats-interval", 10, "Statistics interval in seconds (text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if monitorStatsInterval < 1 {
		return fmt.Errorf("--stats-interval must be at least 1 second")
	}
	if monitorUseTUI {
		// keep log output from tearing the alt screen
		logger = logger.Output(io.Discard)
	}

	h, connInfo, err := openHub()
	if err != nil {
		return err
	}
	defer h.Close()
	defer stopPolling(h)

	if monitorUseTUI {
		return runMonitorTUI(h, connInfo)
	}
	return runMonitorText(h, connInfo)
}

func stopPolling(h *hub.Hub) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := h.StopPolling(ctx); err != nil && !errors.Is(err, hub.ErrClosed) {
		logger.Warn().Err(err).Msg("failed to stop polling")
	}
}

func runMonitorTUI(h *hub.Hub, connInfo string) error {
	p := tea.NewProgram(initialMonitorModel(h, connInfo))

	h.RegisterPollingHandler(func(r *medjc09.PollingReportResult) {
		p.Send(reportMsg{report: r, received: time.Now()})
	})
	h.RegisterDeviceErrorHandler(func(e *medjc09.DeviceError) {
		p.Send(deviceErrorMsg{err: e})
	})
	go func() {
		<-h.Done()
		p.Send(connectionLostMsg{err: h.Err()})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func runMonitorText(h *hub.Hub, connInfo string) error {
	fmt.Printf("MedJC09 - Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", monitorStatsInterval)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports := make(chan *medjc09.PollingReportResult, 64)
	h.RegisterPollingHandler(func(r *medjc09.PollingReportResult) {
		select {
		case reports <- r:
		default:
			logger.Warn().Msg("monitor falling behind, report dropped")
		}
	})
	h.RegisterDeviceErrorHandler(func(e *medjc09.DeviceError) {
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Printf("[%s] \033[1;31mDEVICE ERROR:\033[0m % X\n\n", timestamp, e.Payload)
	})

	if monitorAutoStart {
		if _, err := h.StartPolling(ctx); err != nil {
			return fmt.Errorf("failed to start polling: %w", err)
		}
	}

	tracker := &medjc09.ReportTracker{}
	statsTicker := time.NewTicker(time.Duration(monitorStatsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-h.Done():
			return fmt.Errorf("connection lost: %w", h.Err())

		case r := <-reports:
			timestamp := time.Now().Format("15:04:05.000")
			anomalies := tracker.Check(r)
			if len(anomalies) == 0 {
				fmt.Printf("[%s] t=%d V=%.3f ME=%v SME=%v\n", timestamp, r.Timestamp, r.Voltage, r.ME, r.SME)
				continue
			}
			fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m t=%d\n", timestamp, r.Timestamp)
			for i, a := range anomalies {
				fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, a.Message)
			}
			fmt.Println()

		case <-statsTicker.C:
			stats := h.Stats()
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
