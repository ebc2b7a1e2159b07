package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcher_SerializesPerUser(t *testing.T) {
	d := New()

	var active atomic.Int32
	var maxActive atomic.Int32
	var order []int
	var orderMu sync.Mutex

	for i := 0; i < 10; i++ {
		i := i
		d.Submit(context.Background(), 1, func(context.Context) {
			cur := active.Add(1)
			for {
				old := maxActive.Load()
				if cur <= old || maxActive.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			orderMu.Lock()
			order = append(order, i)
			orderMu.Unlock()
			active.Add(-1)
		})
	}
	d.Wait()

	if m := maxActive.Load(); m != 1 {
		t.Errorf("max concurrent tasks for one user = %d, want 1", m)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d, want %d (FIFO violated)", i, got, i)
		}
	}
}

func TestDispatcher_ParallelAcrossUsers(t *testing.T) {
	d := New()

	var active atomic.Int32
	var maxActive atomic.Int32
	start := make(chan struct{})

	for u := int64(0); u < 4; u++ {
		d.Submit(context.Background(), u, func(context.Context) {
			<-start
			cur := active.Add(1)
			for {
				old := maxActive.Load()
				if cur <= old || maxActive.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			active.Add(-1)
		})
	}
	close(start)
	d.Wait()

	if m := maxActive.Load(); m < 2 {
		t.Errorf("max concurrent users = %d, want >= 2", m)
	}
}

func TestDispatcher_CancelledContextDropsTasks(t *testing.T) {
	d := New()
	ctx, cancel := context.WithCancel(context.Background())

	var ran atomic.Int32
	gate := make(chan struct{})
	d.Submit(ctx, 1, func(context.Context) {
		<-gate
	})
	d.Submit(ctx, 1, func(context.Context) {
		ran.Add(1)
	})

	cancel()
	close(gate)
	d.Wait()

	if ran.Load() != 0 {
		t.Errorf("queued task ran after context cancellation")
	}
}
