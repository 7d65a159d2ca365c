// Package executor runs batches of tasks on a bounded worker pool behind a
// shared request-rate gate.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Default limits per stage.
const (
	DefaultExtractionConcurrency = 5
	DefaultExtractionPerMinute   = 500
	DefaultEmbeddingConcurrency  = 5
	DefaultEmbeddingPerMinute    = 120
)

// ErrTaskPanic marks a result whose work function panicked.
var ErrTaskPanic = errors.New("task panicked")

// Config holds the limits of an Executor.
type Config struct {
	MaxConcurrency int // number of tasks in flight at once
	MaxPerMinute   int // dispatches per minute across all workers
}

// Executor dispatches tasks on at most MaxConcurrency goroutines and admits
// at most one dispatch per 60/MaxPerMinute seconds across all of them.
//
// An Executor can be shared by several batches; they then share its gate.
type Executor struct {
	name           string
	maxConcurrency int
	interval       time.Duration
	limiter        *rate.Limiter
}

// New creates an Executor. Non-positive limits are raised to 1.
func New(name string, cfg Config) *Executor {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.MaxPerMinute < 1 {
		cfg.MaxPerMinute = 1
	}

	interval := time.Minute / time.Duration(cfg.MaxPerMinute)
	return &Executor{
		name:           name,
		maxConcurrency: cfg.MaxConcurrency,
		interval:       interval,
		limiter:        rate.NewLimiter(rate.Every(interval), 1),
	}
}

// NewFromEnv creates an Executor whose limits are read once from the given
// environment keys.
func NewFromEnv(name, concurrencyKey, perMinuteKey string, defaults Config) *Executor {
	return New(name, Config{
		MaxConcurrency: util.GetEnvPositiveInt(concurrencyKey, defaults.MaxConcurrency),
		MaxPerMinute:   util.GetEnvPositiveInt(perMinuteKey, defaults.MaxPerMinute),
	})
}

// NewExtraction returns the executor for LLM extraction calls
// (EXTRACTING_NODE_THREADS, EXTRACTING_NODE_RPM).
func NewExtraction() *Executor {
	return NewFromEnv("extraction", "EXTRACTING_NODE_THREADS", "EXTRACTING_NODE_RPM", Config{
		MaxConcurrency: DefaultExtractionConcurrency,
		MaxPerMinute:   DefaultExtractionPerMinute,
	})
}

// NewEmbedding returns the executor for embedding calls
// (EMBEDDING_THREADS, EMBEDDING_RPM).
func NewEmbedding() *Executor {
	return NewFromEnv("embedding", "EMBEDDING_THREADS", "EMBEDDING_RPM", Config{
		MaxConcurrency: DefaultEmbeddingConcurrency,
		MaxPerMinute:   DefaultEmbeddingPerMinute,
	})
}

// Name identifies the executor in logs.
func (e *Executor) Name() string { return e.name }

// MaxConcurrency returns the worker pool size.
func (e *Executor) MaxConcurrency() int { return e.maxConcurrency }

// Interval returns the minimum time between two dispatches.
func (e *Executor) Interval() time.Duration { return e.interval }

// Result is the outcome of one task. Exactly one of Value and Err is
// meaningful.
type Result[R any] struct {
	Value R
	Err   error
}

// Map runs work for every item and returns the results in item order.
//
// Each worker waits on the gate before calling work. A task that fails or
// panics only affects its own result. Map blocks until every item has a
// result. If ctx is cancelled, tasks that have not passed the gate record the
// context error; tasks already running finish.
func Map[T, R any](
	ctx context.Context,
	e *Executor,
	items []T,
	work func(context.Context, T) (R, error),
) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(e.maxConcurrency)
	for i, item := range items {
		g.Go(func() error {
			if err := e.limiter.Wait(ctx); err != nil {
				results[i].Err = err
				return nil
			}
			results[i] = run(ctx, item, work)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Debug("[Executor] Batch finished",
		"executor", e.name,
		"tasks", len(items),
		"failed", failed,
		"duration", time.Since(start),
	)

	return results
}

func run[T, R any](ctx context.Context, item T, work func(context.Context, T) (R, error)) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Executor] Task panicked", "panic", r, "stack", string(debug.Stack()))
			res = Result[R]{Err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
		}
	}()
	v, err := work(ctx, item)
	if err != nil {
		return Result[R]{Err: err}
	}
	return Result[R]{Value: v}
}

// FirstError returns the index and error of the first failed result, or
// -1 and nil.
func FirstError[R any](results []Result[R]) (int, error) {
	for i, r := range results {
		if r.Err != nil {
			return i, r.Err
		}
	}
	return -1, nil
}
