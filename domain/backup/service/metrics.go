// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "backupd"

// Collector is a prometheus.Collector that collects metrics about the
// backup service. It also observes the tasks of every operation.
type Collector struct {
	taskDuration    *prometheus.HistogramVec
	taskFailures    *prometheus.CounterVec
	tasksInFlight   prometheus.Gauge
	backupsCreated  prometheus.Counter
	backupsFailed   prometheus.Counter
	backupsDeleted  prometheus.Counter
	archiveBytes    prometheus.Histogram
	recordsPruned   prometheus.Counter
	archivesPruned  prometheus.Counter
	reconcilePasses prometheus.Counter
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "task_duration_seconds",
				Help:      "The time taken by each backup task.",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 300, 900},
			}, []string{"task"},
		),
		taskFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "task_failures_total",
				Help:      "The number of failed backup tasks.",
			}, []string{"task"},
		),
		tasksInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "tasks_in_flight",
				Help:      "The number of backup tasks currently running.",
			},
		),
		backupsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "backups_created_total",
				Help:      "The number of backups created.",
			},
		),
		backupsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "backups_failed_total",
				Help:      "The number of backups that failed.",
			},
		),
		backupsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "backups_deleted_total",
				Help:      "The number of backups deleted on request.",
			},
		),
		archiveBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "archive_size_bytes",
				Help:      "The size of the archives created.",
				Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 10),
			},
		),
		recordsPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "records_pruned_total",
				Help:      "The number of records removed because their archive was missing.",
			},
		),
		archivesPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "archives_pruned_total",
				Help:      "The number of unrecorded archives removed.",
			},
		),
		reconcilePasses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconcile_passes_total",
				Help:      "The number of completed reconciliation passes.",
			},
		),
	}
}

// TaskStarted is part of the taskgraph.Observer interface.
func (c *Collector) TaskStarted(name string) {
	c.tasksInFlight.Inc()
}

// TaskFinished is part of the taskgraph.Observer interface.
func (c *Collector) TaskFinished(name string, elapsed time.Duration, err error) {
	c.tasksInFlight.Dec()
	c.taskDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		c.taskFailures.WithLabelValues(name).Inc()
	}
}

// BackupCreated records a successful backup of the given archive size.
func (c *Collector) BackupCreated(size int64) {
	c.backupsCreated.Inc()
	c.archiveBytes.Observe(float64(size))
}

// BackupFailed records a failed backup.
func (c *Collector) BackupFailed() {
	c.backupsFailed.Inc()
}

// BackupDeleted records a deleted backup.
func (c *Collector) BackupDeleted() {
	c.backupsDeleted.Inc()
}

// Reconciled records a completed reconciliation pass.
func (c *Collector) Reconciled(records, archives int) {
	c.reconcilePasses.Inc()
	c.recordsPruned.Add(float64(records))
	c.archivesPruned.Add(float64(archives))
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.taskDuration.Describe(ch)
	c.taskFailures.Describe(ch)
	c.tasksInFlight.Describe(ch)
	c.backupsCreated.Describe(ch)
	c.backupsFailed.Describe(ch)
	c.backupsDeleted.Describe(ch)
	c.archiveBytes.Describe(ch)
	c.recordsPruned.Describe(ch)
	c.archivesPruned.Describe(ch)
	c.reconcilePasses.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.taskDuration.Collect(ch)
	c.taskFailures.Collect(ch)
	c.tasksInFlight.Collect(ch)
	c.backupsCreated.Collect(ch)
	c.backupsFailed.Collect(ch)
	c.backupsDeleted.Collect(ch)
	c.archiveBytes.Collect(ch)
	c.recordsPruned.Collect(ch)
	c.archivesPruned.Collect(ch)
	c.reconcilePasses.Collect(ch)
}
