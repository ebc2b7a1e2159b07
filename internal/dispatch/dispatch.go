// Package dispatch serializes dialog work per user. Two events from the
// same user never run concurrently (a stray upload cannot interleave with
// a name-entry step), while events from different users proceed in
// parallel. Blocking work (store writes, probing, synthesis) therefore
// only ever stalls the owning user's pipeline.
package dispatch

import (
	"context"
	"sync"
)

// Task is one unit of dialog work.
type Task func(ctx context.Context)

// Dispatcher runs tasks FIFO per user key.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[int64]*userQueue
	wg     sync.WaitGroup
}

type userQueue struct {
	tasks  []Task
	active bool
}

// New creates an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{queues: make(map[int64]*userQueue)}
}

// Submit enqueues a task for the user. If no worker is draining the user's
// queue, one is started; otherwise the task waits its turn.
func (d *Dispatcher) Submit(ctx context.Context, userID int64, task Task) {
	d.mu.Lock()
	q, ok := d.queues[userID]
	if !ok {
		q = &userQueue{}
		d.queues[userID] = q
	}
	q.tasks = append(q.tasks, task)
	if q.active {
		d.mu.Unlock()
		return
	}
	q.active = true
	d.wg.Add(1)
	d.mu.Unlock()

	go d.drain(ctx, userID, q)
}

// drain runs the user's tasks in order until the queue is empty, then
// retires the queue.
func (d *Dispatcher) drain(ctx context.Context, userID int64, q *userQueue) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(q.tasks) == 0 {
			q.active = false
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		d.mu.Unlock()

		if ctx.Err() != nil {
			continue // drop remaining tasks, keep draining the slice
		}
		task(ctx)
	}
}

// Wait blocks until all in-flight user queues are drained. Used on
// shutdown after the event source has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
