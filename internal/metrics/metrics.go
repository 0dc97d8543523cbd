// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdminActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basmah_admin_actions_total",
		Help: "Admin actions by audit action and outcome.",
	}, []string{"action", "outcome"})

	AdminActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "basmah_admin_action_duration_seconds",
		Help:    "Latency of admin actions including the database transaction.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basmah_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})

	WalletDrift = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "basmah_wallet_drift",
		Help: "Wallets whose cached totals disagree with the ledger at the last reconciliation.",
	})

	RefundsRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basmah_refunds_repaired_total",
		Help: "Cancelled bookings whose missing refund credit was repaired.",
	})

	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basmah_reconcile_runs_total",
		Help: "Reconciliation runs by outcome.",
	}, []string{"outcome"})

	OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basmah_outbox_published_total",
		Help: "Outbox events relayed to the broker by outcome.",
	}, []string{"outcome"})

	GalleryUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basmah_gallery_uploads_total",
		Help: "Gallery uploads by outcome.",
	}, []string{"outcome"})
)
