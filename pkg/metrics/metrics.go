// Copyright 2025 Certen Protocol
//
// Execution engine metrics, registered against a dedicated
// prometheus.Registry rather than the global default so embedding Nexus
// into another process never collides with that process's own metrics.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every gauge/counter/histogram the execution engine
// updates as it processes DA headers.
type Metrics struct {
	registry *prometheus.Registry

	queuedHeaders    prometheus.Gauge
	committedBatches prometheus.Counter
	noOpBatches      prometheus.Counter
	failedTxs        prometheus.Counter
	fatalErrors      prometheus.Counter
	provingSeconds   prometheus.Histogram
	batchSeconds     prometheus.Histogram
	mempoolSize      prometheus.Gauge
}

// New constructs a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		queuedHeaders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nexus_engine_queued_da_headers",
			Help: "Number of DA headers buffered ahead of the execution engine.",
		}),
		committedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_engine_committed_batches_total",
			Help: "Total number of batches committed by the execution engine.",
		}),
		noOpBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_engine_noop_batches_total",
			Help: "Total number of committed batches that produced no state writes.",
		}),
		failedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_engine_failed_txs_total",
			Help: "Total number of transactions committed with a Failed status.",
		}),
		fatalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_engine_fatal_errors_total",
			Help: "Total number of fatal batch errors that stopped the engine loop.",
		}),
		provingSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexus_engine_proving_seconds",
			Help:    "Time spent in the proof adapter's Prove call per batch.",
			Buckets: prometheus.DefBuckets,
		}),
		batchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexus_engine_batch_seconds",
			Help:    "Total wall-clock time to process one DA header end to end.",
			Buckets: prometheus.DefBuckets,
		}),
		mempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nexus_engine_mempool_size",
			Help: "Number of transactions in the mempool after the last snapshot.",
		}),
	}

	reg.MustRegister(
		m.queuedHeaders,
		m.committedBatches,
		m.noOpBatches,
		m.failedTxs,
		m.fatalErrors,
		m.provingSeconds,
		m.batchSeconds,
		m.mempoolSize,
	)
	return m
}

// Registry returns the registry these metrics are registered against, for
// the host binary to expose on its separate metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SetQueuedHeaders(n int) { m.queuedHeaders.Set(float64(n)) }
func (m *Metrics) SetMempoolSize(n int)   { m.mempoolSize.Set(float64(n)) }

func (m *Metrics) ObserveProving(d time.Duration) { m.provingSeconds.Observe(d.Seconds()) }
func (m *Metrics) ObserveBatch(d time.Duration)   { m.batchSeconds.Observe(d.Seconds()) }

func (m *Metrics) IncFatalError() { m.fatalErrors.Inc() }

// RecordBatch updates the per-batch counters once a batch's outcome is
// known: committed vs no-op, and how many of its transactions failed.
func (m *Metrics) RecordBatch(noOp bool, failedTxCount int) {
	m.committedBatches.Inc()
	if noOp {
		m.noOpBatches.Inc()
	}
	m.failedTxs.Add(float64(failedTxCount))
}
