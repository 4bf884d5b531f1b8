package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts gate evaluations by gate (action|resource|payment) and outcome.
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"gate", "result"},
	)

	// StatusSyncs counts pipeline recomputations by outcome (updated|unchanged|error).
	StatusSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_status_syncs_total",
			Help: "Pipeline status recomputations triggered by sub-order status changes",
		},
		[]string{"kind", "result"},
	)

	// ExportTasks counts background export tasks by terminal status.
	ExportTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_export_tasks_total",
			Help: "Background export tasks by outcome",
		},
		[]string{"resource", "status"},
	)

	// ExportQueueDepth tracks tasks waiting for a worker.
	ExportQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradeflow_export_queue_depth",
			Help: "Number of export tasks waiting for a worker",
		},
	)

	// DownloadsPurged counts download artifacts removed by the retention job.
	DownloadsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tradeflow_downloads_purged_total",
			Help: "Download tasks removed by the retention job",
		},
	)

	// APIInFlight tracks requests currently being served.
	APIInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradeflow_api_in_flight_requests",
			Help: "HTTP requests currently being served",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradeflow_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
