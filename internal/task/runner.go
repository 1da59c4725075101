package task

import (
	"context"
	"log"
	"sync"
	"time"
)

// jobTimeout bounds a single background job so a stuck database call
// cannot pin a worker forever.
const jobTimeout = 30 * time.Second

type job struct {
	name string
	fn   func(ctx context.Context)
}

// Runner executes fire-and-forget work on a fixed pool of workers. Callers
// never wait on results; failures are logged, panics are contained.
type Runner struct {
	jobs   chan job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewRunner starts the pool. queue bounds how many jobs can be pending
// before new ones spill onto their own goroutine.
func NewRunner(workers, queue int) *Runner {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		jobs:   make(chan job, queue),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for j := range r.jobs {
		r.run(j)
	}
}

func (r *Runner) run(j job) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[task] panic in %s: %v", j.name, rec)
		}
	}()
	ctx, cancel := context.WithTimeout(r.ctx, jobTimeout)
	defer cancel()
	j.fn(ctx)
}

// Go schedules fn. When the queue is full the job runs on its own
// goroutine instead of blocking the caller.
func (r *Runner) Go(name string, fn func(ctx context.Context)) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		log.Printf("[task] dropped %s: runner shut down", name)
		return
	}
	j := job{name: name, fn: fn}
	select {
	case r.jobs <- j:
		r.mu.Unlock()
	default:
		r.mu.Unlock()
		log.Printf("[task] queue full, running %s unpooled", name)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.run(j)
		}()
	}
}

// Shutdown stops accepting work and waits for in-flight jobs, up to the
// context deadline. Jobs still running past the deadline are abandoned
// with their contexts canceled.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}
