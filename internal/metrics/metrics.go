// Package metrics exposes the engine's observable surface to Prometheus.
// It plugs the "statistics/telemetry plumbing" external collaborator with a
// concrete sink instead of a no-op interface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveTransactions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wiredtiger_active_transactions",
			Help: "Number of transactions currently active",
		},
	)

	TransactionsCommittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wiredtiger_transactions_committed_total",
			Help: "Total number of committed transactions",
		},
	)

	TransactionsAbortedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wiredtiger_transactions_aborted_total",
			Help: "Total number of aborted transactions",
		},
	)

	CheckpointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiredtiger_checkpoints_total",
			Help: "Total number of checkpoints created, by name (empty for unnamed)",
		},
		[]string{"name"},
	)

	StableTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wiredtiger_stable_timestamp",
			Help: "Current database-global stable timestamp",
		},
	)

	CorruptionTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wiredtiger_block_corruption_total",
			Help: "Total number of corruption events detected on block reads",
		},
	)

	ChecksumMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wiredtiger_checksum_mismatch_total",
			Help: "Total number of checksum mismatches on block reads, including recovered retries",
		},
	)

	BlockReadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wiredtiger_block_read_bytes_total",
			Help: "Total bytes read through the block manager's direct read path",
		},
	)

	ChunkCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wiredtiger_chunk_cache_hits_total",
			Help: "Total chunk cache hits on the block manager read path",
		},
	)

	ChunkCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wiredtiger_chunk_cache_misses_total",
			Help: "Total chunk cache misses on the block manager read path",
		},
	)

	RegionCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wiredtiger_allocator_region_count",
			Help: "Current number of regions held by the page allocator",
		},
	)

	PagesAllocated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wiredtiger_allocator_pages_allocated",
			Help: "Current number of outstanding allocated pages",
		},
	)

	BlockReadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wiredtiger_block_read_duration_seconds",
			Help:    "Time taken to service a single block manager read",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		ActiveTransactions,
		TransactionsCommittedTotal,
		TransactionsAbortedTotal,
		CheckpointsTotal,
		StableTimestamp,
		CorruptionTotal,
		ChecksumMismatchTotal,
		BlockReadBytesTotal,
		ChunkCacheHitsTotal,
		ChunkCacheMissesTotal,
		RegionCount,
		PagesAllocated,
		BlockReadDuration,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's duration against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time against histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}
