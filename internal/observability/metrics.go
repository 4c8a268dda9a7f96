// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package observability exposes hub statistics to Prometheus.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

const namespace = "medjc09"

// StatsFunc returns a statistics snapshot, usually hub.Hub.Stats.
type StatsFunc func() medjc09.Statistics

// Collector reads a fresh snapshot on every scrape.
type Collector struct {
	stats StatsFunc

	frames     *prometheus.Desc
	events     *prometheus.Desc
	reports    *prometheus.Desc
	discarded  *prometheus.Desc
	anomalies  *prometheus.Desc
	frameRate  *prometheus.Desc
	errorRate  *prometheus.Desc
	lastReport *prometheus.Desc

	lastTimestamp func() (uint32, bool)
}

// NewCollector builds a collector over stats. lastTimestamp may be nil.
func NewCollector(stats StatsFunc, lastTimestamp func() (uint32, bool)) *Collector {
	return &Collector{
		stats:         stats,
		lastTimestamp: lastTimestamp,
		frames: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "frames", "total"),
			"Frames decoded from the hub, by outcome.",
			[]string{"outcome"}, nil,
		),
		events: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "requests", "outcomes_total"),
			"Request correlation events, by kind.",
			[]string{"kind"}, nil,
		),
		reports: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "polling", "reports_total"),
			"Unsolicited polling reports, by delivery.",
			[]string{"delivery"}, nil,
		),
		discarded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "decoder", "discarded_bytes_total"),
			"Bytes dropped while resynchronizing.",
			nil, nil,
		),
		anomalies: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "validator", "anomalies_total"),
			"Decoded values flagged as implausible.",
			nil, nil,
		),
		frameRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "frames", "per_second"),
			"Average frame rate since start.",
			nil, nil,
		),
		errorRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "errors", "per_second"),
			"Average error rate since start.",
			nil, nil,
		),
		lastReport: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "polling", "last_timestamp"),
			"Device timestamp of the latest polling report.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frames
	ch <- c.events
	ch <- c.reports
	ch <- c.discarded
	ch <- c.anomalies
	ch <- c.frameRate
	ch <- c.errorRate
	ch <- c.lastReport
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.frames, s.ValidFrames, "valid")
	counter(c.frames, s.ErrorFrames, "device_error")
	counter(c.frames, s.DecodeErrors, "decode_error")
	counter(c.frames, s.UnknownCommands, "unknown_command")
	counter(c.frames, s.TruncatedPackets, "truncated")

	counter(c.events, s.Responses, "response")
	counter(c.events, s.LateResponses, "late")
	counter(c.events, s.UnexpectedResponses, "unexpected")
	counter(c.events, s.Timeouts, "timeout")

	counter(c.reports, s.ReportsDelivered, "delivered")
	counter(c.reports, s.ReportsDropped, "dropped")

	counter(c.discarded, s.DiscardedBytes)
	counter(c.anomalies, s.AnomalousValues)

	ch <- prometheus.MustNewConstMetric(c.frameRate, prometheus.GaugeValue, s.FrameRate)
	ch <- prometheus.MustNewConstMetric(c.errorRate, prometheus.GaugeValue, s.ErrorRate)

	if c.lastTimestamp != nil {
		if ts, ok := c.lastTimestamp(); ok {
			ch <- prometheus.MustNewConstMetric(c.lastReport, prometheus.GaugeValue, float64(ts))
		}
	}
}
