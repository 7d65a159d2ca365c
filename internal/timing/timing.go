// Package timing measures the stages of an import.
package timing

import (
	"context"
	"sync"
	"time"

	"github.com/OFFIS-RIT/kgimport/pkg/logger"
)

// Stage is the measured duration of one named step.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Sink stores stage durations of an import.
type Sink interface {
	SaveStageTiming(ctx context.Context, importID, stage string, d time.Duration) error
}

// Tracker collects stage durations in the order the stages finished.
// The zero value is ready to use.
type Tracker struct {
	mu     sync.Mutex
	stages []Stage
}

// Start begins measuring a stage and returns the function that ends it.
//
//	done := tracker.Start("extract")
//	defer done()
func (t *Tracker) Start(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		t.mu.Lock()
		t.stages = append(t.stages, Stage{Name: name, Duration: d})
		t.mu.Unlock()
		logger.Info("[Timing] Stage finished", "stage", name, "duration", d)
	}
}

// Stages returns a copy of the finished stages.
func (t *Tracker) Stages() []Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

// Total returns the sum of all finished stages.
func (t *Tracker) Total() time.Duration {
	var total time.Duration
	for _, s := range t.Stages() {
		total += s.Duration
	}
	return total
}

// Save writes every finished stage to sink. Failures are logged and do not
// stop the remaining stages.
func (t *Tracker) Save(ctx context.Context, sink Sink, importID string) {
	for _, s := range t.Stages() {
		if err := sink.SaveStageTiming(ctx, importID, s.Name, s.Duration); err != nil {
			logger.Warn("[Timing] Failed to save stage timing", "import", importID, "stage", s.Name, "err", err)
		}
	}
}
