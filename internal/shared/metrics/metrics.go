package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	ingestStartedTotal   atomic.Uint64
	ingestCompletedTotal atomic.Uint64

	failuresMu        sync.Mutex
	ingestFailedTotal = map[string]uint64{}

	ingestDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	aiDuration     = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncIngestStarted increments the started counter.
func IncIngestStarted() {
	ingestStartedTotal.Add(1)
}

// IncIngestCompleted increments the completed counter.
func IncIngestCompleted() {
	ingestCompletedTotal.Add(1)
}

// IncIngestFailed increments the failure counter for kind.
func IncIngestFailed(kind string) {
	failuresMu.Lock()
	defer failuresMu.Unlock()
	ingestFailedTotal[kind]++
}

// ObserveIngestDurationMs records an end-to-end ingestion duration.
func ObserveIngestDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	ingestDuration.Observe(value)
}

// ObserveAIDurationMs records the latency of a single AI call.
func ObserveAIDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	aiDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "ingest_started_total", "Total resume ingestions started", ingestStartedTotal.Load())
	writeCounter(&buf, "ingest_completed_total", "Total resume ingestions completed", ingestCompletedTotal.Load())
	writeLabeledCounter(&buf, "ingest_failed_total", "Total resume ingestions failed", "kind", failureSnapshot())
	writeHistogram(&buf, "ingest_duration_ms", "Resume ingestion duration in milliseconds", ingestDuration.Snapshot())
	writeHistogram(&buf, "ai_request_duration_ms", "AI request duration in milliseconds", aiDuration.Snapshot())
	return buf.String()
}

func failureSnapshot() map[string]uint64 {
	failuresMu.Lock()
	defer failuresMu.Unlock()
	out := make(map[string]uint64, len(ingestFailedTotal))
	for k, v := range ingestFailedTotal {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	// counts are per-bucket; writeHistogram accumulates them.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
