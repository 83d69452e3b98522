// Package metrics defines the Prometheus collectors the bot exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Snapshot persistence metrics
var (
	// SnapshotWritesTotal tracks snapshot file writes by status (ok/error)
	SnapshotWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zakrfa_snapshot_writes_total",
			Help: "Total snapshot file writes by status",
		},
		[]string{"status"},
	)

	// SnapshotWriteDuration tracks how long a full snapshot write takes
	SnapshotWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zakrfa_snapshot_write_duration_seconds",
			Help:    "Snapshot file write duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// SnapshotLoadErrorsTotal tracks tables that failed to load and were reset
	SnapshotLoadErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zakrfa_snapshot_load_errors_total",
			Help: "Snapshot tables that failed to load and defaulted to empty",
		},
		[]string{"table"},
	)
)

// Command metrics
var (
	// CommandsTotal tracks handled slash commands by command and outcome
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zakrfa_commands_total",
			Help: "Total slash commands handled by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	// ItemsCreatedTotal tracks channels and roles created by bulk creation
	ItemsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zakrfa_items_created_total",
			Help: "Total channels or roles created",
		},
		[]string{"type"},
	)

	// CreateFailuresTotal tracks platform create calls that failed and aborted a batch
	CreateFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zakrfa_create_failures_total",
			Help: "Failed platform create calls by type",
		},
		[]string{"type"},
	)

	// WhitelistEntries tracks whitelist entries currently held, expired ones included until read
	WhitelistEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zakrfa_whitelist_entries",
			Help: "Whitelist entries held in memory",
		},
	)
)
