package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsJobs(t *testing.T) {
	p := New(4, 8)
	defer p.Shutdown()

	var count int64
	var wg sync.WaitGroup
	wg.Add(100)
	for i := 0; i < 100; i++ {
		if err := p.Submit(func() {
			atomic.AddInt64(&count, 1)
			wg.Done()
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	if got := atomic.LoadInt64(&count); got != 100 {
		t.Fatalf("got %d completed jobs, want 100", got)
	}
}

func TestShutdownWaitsForWorkers(t *testing.T) {
	p := New(2, 4)

	var ran int32
	done := make(chan struct{})
	if err := p.Submit(func() {
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&ran, 1)
		close(done)
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-done
	p.Shutdown()

	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("expected job to have run before Shutdown returned")
	}
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	p := New(1, 1)
	p.Shutdown()

	if err := p.Submit(func() {}); err != ErrClosed {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	p := New(2, 2)
	p.Shutdown()
	p.Shutdown()
}

func TestNewPanicsOnNonPositiveWorkers(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for zero workers")
		}
	}()
	New(0, 1)
}
