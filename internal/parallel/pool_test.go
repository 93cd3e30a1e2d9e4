package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

// =============================================================================
// WorkerPool
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_CreateZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	if want := runtime.GOMAXPROCS(0); pool.Workers() != want {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), want)
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const n = 1000
	hits := make([]int32, n)
	var total atomic.Int64
	pool.ExecuteAll(n, func(i int) {
		atomic.AddInt32(&hits[i], 1)
		total.Add(1)
	})

	if total.Load() != n {
		t.Fatalf("ran %d tasks, want %d", total.Load(), n)
	}
	for i, h := range hits {
		if h != 1 {
			t.Fatalf("task %d ran %d times", i, h)
		}
	}
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Fatal("pool still running after Close")
	}
	var total atomic.Int64
	pool.ExecuteAll(10, func(int) { total.Add(1) })
	if total.Load() != 10 {
		t.Errorf("closed pool ran %d tasks, want 10", total.Load())
	}
}

func TestWorkerPool_ExecuteAllEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()
	pool.ExecuteAll(0, func(int) { t.Error("task must not run") })
}

// =============================================================================
// For
// =============================================================================

func TestFor(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		out := make([]int, 257)
		For(workers, len(out), func(i int) { out[i] = i * i })
		for i, v := range out {
			if v != i*i {
				t.Fatalf("workers=%d: out[%d] = %d, want %d", workers, i, v, i*i)
			}
		}
	}
}

func BenchmarkFor(b *testing.B) {
	out := make([]float64, 4096)
	for b.Loop() {
		For(0, len(out), func(i int) { out[i] += float64(i) })
	}
}
