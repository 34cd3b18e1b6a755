package pnideval

import (
	"context"
	"log/slog"
	"sync"
)

// Worker is a pooled slot for per drawing work.  Each worker carries its own
// logger so messages can be traced to the worker that produced them.
type Worker struct {
	id  int
	log *slog.Logger
}

// ID returns the worker number
func (w *Worker) ID() int {
	return w.id
}

// Pool is a simple worker pool bounding the number of drawings processed at
// the same time
type Pool struct {
	// pool of workers
	workers chan *Worker
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a new worker pool, a size below 1 is treated as 1
func NewPool(size int, log *slog.Logger) *Pool {

	if size < 1 {
		size = 1
	}

	if log == nil {
		log = slog.Default()
	}

	p := &Pool{
		workers: make(chan *Worker, size),
		size:    size,
	}

	for i := 0; i < size; i++ {
		// attach to pool
		p.Return(&Worker{id: i, log: log.With("worker", i)})
	}

	return p
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.size
}

// Gets a worker from the pool
func (p *Pool) Get() *Worker {
	return <-p.workers
}

// Return a worker to the pool
func (p *Pool) Return(w *Worker) {
	select {
	case p.workers <- w:
	default:
		// pool is full or closed
	}
}

// Run calls fn for every job index in [0, n) using the pooled workers and
// waits for all started jobs to finish.  No new job is started once ctx is
// done, in which case the context error is returned.
func (p *Pool) Run(ctx context.Context, n int, fn func(w *Worker, job int)) error {

	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}

		w := p.Get()
		wg.Add(1)

		go func(w *Worker, job int) {
			defer wg.Done()
			defer p.Return(w)

			fn(w, job)
		}(w, i)
	}

	wg.Wait()

	return ctx.Err()
}

// Close the pool.  It must not be called while Run is in progress.
func (p *Pool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.workers)

		// drain idle workers
		for range p.workers {
		}
	})
}
