package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the allocator.
type Metrics struct {
	// --- Engine ---
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	RoundsTotal      *prometheus.CounterVec
	RoundDuration    prometheus.Histogram
	RecordsProposed  prometheus.Counter
	RecordsApplied   prometheus.Counter
	RecordsSkipped   *prometheus.CounterVec
	MinorUnitsMoved  prometheus.Counter
	JournalsTotal    *prometheus.CounterVec
	RemainingWallets prometheus.Gauge
	RemainingTranche prometheus.Gauge

	// --- Worker ---
	WorkerMessages  *prometheus.CounterVec
	WorkerPublishes *prometheus.CounterVec
	WorkerDuration  prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	roundBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.005, 0.01, 0.05,
	}

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alloc_runs_total",
			Help: "Allocation runs by strategy and termination reason",
		}, []string{"strategy", "termination"}),

		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alloc_run_duration_seconds",
			Help:    "Wall time of a full allocation run",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),

		RoundsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alloc_rounds_total",
			Help: "Allocate-then-invest rounds executed",
		}, []string{"strategy"}),

		RoundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "alloc_round_duration_seconds",
			Help:    "Time to run one round",
			Buckets: roundBuckets,
		}),

		RecordsProposed: factory.NewCounter(prometheus.CounterOpts{
			Name: "alloc_records_proposed_total",
			Help: "Allocation records returned by strategies",
		}),

		RecordsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "alloc_records_applied_total",
			Help: "Allocation records invested",
		}),

		RecordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alloc_records_skipped_total",
			Help: "Allocation records not invested",
		}, []string{"reason"}),

		MinorUnitsMoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "alloc_minor_units_moved_total",
			Help: "Pence moved from wallets into tranches",
		}),

		JournalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alloc_journals_generated_total",
			Help: "Journal entries generated",
		}, []string{"journal_type"}),

		RemainingWallets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alloc_remaining_wallet_minor_units",
			Help: "Uninvested wallet money at the end of the last run",
		}),

		RemainingTranche: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alloc_remaining_tranche_minor_units",
			Help: "Unfunded tranche capacity at the end of the last run",
		}),

		WorkerMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alloc_worker_messages_total",
			Help: "Request messages handled by the worker",
		}, []string{"outcome"}),

		WorkerPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alloc_worker_publishes_total",
			Help: "Report publishes by status",
		}, []string{"status"}),

		WorkerDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "alloc_worker_message_duration_seconds",
			Help:    "Receive to ack time for one request",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
