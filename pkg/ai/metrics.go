package ai

import (
	"math"
	"sync"
)

// MetricsTracker accumulates ModelMetrics across concurrent requests.
// The zero value is ready to use.
type MetricsTracker struct {
	mu      sync.Mutex
	metrics ModelMetrics
}

// Add records the usage of one request.
func (t *MetricsTracker) Add(m ModelMetrics) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.Requests++
	t.metrics.InputTokens += m.InputTokens
	t.metrics.OutputTokens += m.OutputTokens
	t.metrics.TotalTokens += m.TotalTokens
	t.metrics.DurationMs += m.DurationMs

	if t.metrics.DurationMs > 0 {
		tokensPerSecond := (float64(t.metrics.TotalTokens) * 1000.0) / float64(t.metrics.DurationMs)
		t.metrics.TokenPerSecond = float32(math.Round(tokensPerSecond*100) / 100)
	}
}

// Reset clears all accumulated metrics.
func (t *MetricsTracker) Reset() {
	t.mu.Lock()
	t.metrics = ModelMetrics{}
	t.mu.Unlock()
}

// Snapshot returns a copy of the accumulated metrics.
func (t *MetricsTracker) Snapshot() ModelMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}
