// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/medjc09/internal/observability"
	"github.com/Thermoquad/medjc09/internal/sink"
	"github.com/Thermoquad/medjc09/pkg/hub"
	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

var (
	pollRate         uint16
	pollRedisAddr    string
	pollRedisChannel string
	pollRecordPath   string
	pollMetricsAddr  string
	pollQuiet        bool
	pollQueueSize    int
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Start polling and stream reports until interrupted",
	Long: `Start hub polling and print every polling report as it arrives.

Reports can additionally be published to Redis (--redis-addr), recorded to a
CBOR file (--record, readable with "medjc09 replay") and counted on a
Prometheus /metrics endpoint (--metrics-addr). Polling is stopped on exit.`,
	Args: cobra.NoArgs,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().Uint16Var(&pollRate, "rate", 0, "Polling rate in ms (0 keeps the hub setting)")
	pollCmd.Flags().StringVar(&pollRedisAddr, "redis-addr", "", "Redis address to publish reports to")
	pollCmd.Flags().StringVar(&pollRedisChannel, "redis-channel", "medjc09:reports", "Redis pub/sub channel")
	pollCmd.Flags().StringVar(&pollRecordPath, "record", "", "Record reports to a CBOR file")
	pollCmd.Flags().StringVar(&pollMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9109)")
	pollCmd.Flags().BoolVarP(&pollQuiet, "quiet", "q", false, "Do not print reports")
	pollCmd.Flags().IntVar(&pollQueueSize, "queue-size", 256, "Reports buffered for sinks before dropping")
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, err := openSinks(ctx)
	if err != nil {
		return err
	}
	queue := sink.NewQueue(pollQueueSize, logger, sinks...)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close sinks")
		}
	}()

	h, connInfo, err := openHub()
	if err != nil {
		return err
	}
	defer h.Close()

	var lastTimestamp atomic.Int64
	lastTimestamp.Store(-1)

	if pollMetricsAddr != "" {
		collector := observability.NewCollector(h.Stats, func() (uint32, bool) {
			ts := lastTimestamp.Load()
			return uint32(ts), ts >= 0
		})
		reg, err := observability.NewRegistry(collector)
		if err != nil {
			return err
		}
		srv, err := observability.Listen(pollMetricsAddr, reg, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Serve(ctx); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	h.RegisterDeviceErrorHandler(func(e *medjc09.DeviceError) {
		logger.Warn().Hex("payload", e.Payload).Msg("device error")
	})
	h.RegisterPollingHandler(func(r *medjc09.PollingReportResult) {
		lastTimestamp.Store(int64(r.Timestamp))
		if len(sinks) > 0 && !queue.Offer(medjc09.NewReportRecord(r, time.Now())) {
			logger.Debug().Uint32("timestamp", r.Timestamp).Msg("sink queue full, report dropped")
		}
		if !pollQuiet {
			fmt.Printf("[%s] t=%d V=%.3f ME=%v SME=%v\n",
				time.Now().Format("15:04:05.000"), r.Timestamp, r.Voltage, r.ME, r.SME)
		}
	})

	fmt.Printf("MedJC09 - Polling\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	if pollRate > 0 {
		if _, err := h.SetPollingRate(ctx, pollRate); err != nil {
			return fmt.Errorf("failed to set polling rate: %w", err)
		}
	}
	if r, err := h.GetPollingRate(ctx); err == nil {
		logger.Info().Uint16("rate_ms", r.Rate).Msg("polling rate")
	}
	if _, err := h.StartPolling(ctx); err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-h.Done():
		return fmt.Errorf("connection lost: %w", h.Err())
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := h.StopPolling(stopCtx); err != nil && !errors.Is(err, hub.ErrClosed) {
		logger.Warn().Err(err).Msg("failed to stop polling")
	}

	fmt.Println()
	stats := h.Stats()
	fmt.Print(stats.String())
	if queue.Dropped() > 0 || queue.Failed() > 0 {
		fmt.Printf("Sink: dropped %d, failed %d\n", queue.Dropped(), queue.Failed())
	}
	return nil
}

func openSinks(ctx context.Context) ([]sink.Sink, error) {
	var sinks []sink.Sink

	if pollRecordPath != "" {
		rec, err := sink.CreateRecorder(pollRecordPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, rec)
	}

	if pollRedisAddr != "" {
		opts := sink.DefaultRedisOptions(pollRedisAddr)
		opts.Channel = pollRedisChannel
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		pub, err := sink.NewPublisher(dialCtx, opts, logger)
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return nil, err
		}
		sinks = append(sinks, pub)
	}

	return sinks, nil
}
