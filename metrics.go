package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Capture and transfer counters, served on the status server's /metrics
// endpoint when one is running.
var (
	capturesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmwcas_captures_total",
		Help: "Completed capture cycles.",
	})
	captureArmRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmwcas_capture_arm_retries_total",
		Help: "TDA arming attempts that failed and were retried.",
	})
	exportFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmwcas_export_failures_total",
		Help: "Configuration export files that could not be written.",
	})
	transfersDone = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmwcas_transfers_completed_total",
		Help: "Background capture transfers that completed.",
	})
	transferFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmwcas_transfer_failures_total",
		Help: "Background capture transfers that failed.",
	})
	transferDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmwcas_transfer_drops_total",
		Help: "Transfers dropped because the queue was full.",
	})
	transferQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mmwcas_transfer_queue_depth",
		Help: "Transfers currently waiting in the queue.",
	})
)
