package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMap_PreservesOrder(t *testing.T) {
	e := New("test", Config{MaxConcurrency: 4, MaxPerMinute: 60000})
	items := []int{5, 1, 4, 2, 3}

	results := Map(context.Background(), e, items, func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})

	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d: unexpected error %v", i, r.Err)
		}
		if r.Value != items[i]*10 {
			t.Fatalf("result %d: got %d, want %d", i, r.Value, items[i]*10)
		}
	}
}

func TestMap_Empty(t *testing.T) {
	e := New("test", Config{MaxConcurrency: 2, MaxPerMinute: 60})
	results := Map(context.Background(), e, []string{}, func(ctx context.Context, s string) (string, error) {
		t.Fatal("work must not be called")
		return "", nil
	})
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestMap_RespectsRate(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
	}{
		{"single worker", 1},
		{"gate shared by workers", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New("test", Config{MaxConcurrency: tt.concurrency, MaxPerMinute: 60})

			start := time.Now()
			results := Map(context.Background(), e, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
				return n, nil
			})
			elapsed := time.Since(start)

			if _, err := FirstError(results); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if elapsed < 2*time.Second {
				t.Fatalf("3 tasks at 60/min finished in %v, expected at least 2s", elapsed)
			}
		})
	}
}

func TestMap_BoundsConcurrency(t *testing.T) {
	e := New("test", Config{MaxConcurrency: 2, MaxPerMinute: 600000})

	var active, peak int32
	Map(context.Background(), e, make([]struct{}, 10), func(ctx context.Context, _ struct{}) (struct{}, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return struct{}{}, nil
	})

	if peak > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, saw %d", peak)
	}
}

func TestMap_IsolatesFailures(t *testing.T) {
	e := New("test", Config{MaxConcurrency: 3, MaxPerMinute: 60000})
	boom := errors.New("boom")

	results := Map(context.Background(), e, []int{0, 1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		switch n {
		case 1:
			return 0, boom
		case 2:
			panic("kaboom")
		}
		return n, nil
	})

	if !errors.Is(results[1].Err, boom) {
		t.Fatalf("expected boom at index 1, got %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, ErrTaskPanic) {
		t.Fatalf("expected ErrTaskPanic at index 2, got %v", results[2].Err)
	}
	for _, i := range []int{0, 3} {
		if results[i].Err != nil || results[i].Value != i {
			t.Fatalf("sibling %d affected: %+v", i, results[i])
		}
	}
	if idx, err := FirstError(results); idx != 1 || !errors.Is(err, boom) {
		t.Fatalf("FirstError() = %d, %v", idx, err)
	}
}

func TestMap_CancelledContext(t *testing.T) {
	e := New("test", Config{MaxConcurrency: 2, MaxPerMinute: 60})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := Map(ctx, e, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return n, nil
	})

	if calls != 0 {
		t.Fatalf("expected no work after cancellation, got %d calls", calls)
	}
	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("result %d: expected context.Canceled, got %v", i, r.Err)
		}
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("EXTRACTING_NODE_THREADS", "7")
	t.Setenv("EXTRACTING_NODE_RPM", "0")

	e := NewExtraction()
	if e.MaxConcurrency() != 7 {
		t.Fatalf("expected 7 workers, got %d", e.MaxConcurrency())
	}
	if want := time.Minute / DefaultExtractionPerMinute; e.Interval() != want {
		t.Fatalf("expected default interval %v, got %v", want, e.Interval())
	}

	emb := NewEmbedding()
	if emb.MaxConcurrency() != DefaultEmbeddingConcurrency {
		t.Fatalf("expected default embedding workers, got %d", emb.MaxConcurrency())
	}
	if emb.Interval() != 500*time.Millisecond {
		t.Fatalf("expected 500ms embedding interval, got %v", emb.Interval())
	}
}
