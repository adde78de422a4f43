package llm

import (
	"context"
	"sync"
	"time"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

type contextKey string

const testContextKey contextKey = "test-key"

// recordedMetric is one call captured by recordingCollector.
type recordedMetric struct {
	name   string
	value  float64
	labels map[string]string
}

// recordingCollector captures every metric recorded through it.
type recordingCollector struct {
	mu         sync.Mutex
	counters   []recordedMetric
	histograms []recordedMetric
	gauges     []recordedMetric
}

func (r *recordingCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	r.RecordHistogram(operation, duration.Seconds(), labels)
}

func (r *recordingCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, recordedMetric{metric, value, labels})
}

func (r *recordingCollector) RecordGauge(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges = append(r.gauges, recordedMetric{metric, value, labels})
}

func (r *recordingCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms = append(r.histograms, recordedMetric{metric, value, labels})
}

// counterSum returns the total recorded for metric across label sets that
// contain every key/value of match.
func (r *recordingCollector) counterSum(metric string, match map[string]string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sum float64
	for _, c := range r.counters {
		if c.name != metric || !labelsMatch(c.labels, match) {
			continue
		}
		sum += c.value
	}
	return sum
}

func labelsMatch(labels, match map[string]string) bool {
	for k, v := range match {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// recordingCallLogger keeps call log entries in memory.
type recordingCallLogger struct {
	mu      sync.Mutex
	entries []ports.CallLogEntry
}

func (r *recordingCallLogger) Append(_ context.Context, entry ports.CallLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingCallLogger) Entries() []ports.CallLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.CallLogEntry(nil), r.entries...)
}

// recordingSleeper records requested waits without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// rateLimitErr builds a classified quota error with an optional hint.
func rateLimitErr(retryAfter time.Duration) error {
	return NewProviderError("google", ErrorTypeRateLimit, 429, "quota exceeded", nil).
		WithRetryAfter(retryAfter)
}
