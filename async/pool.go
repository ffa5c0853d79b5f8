package async

import (
	"context"
	"sync"
)

const (
	// DefaultMaxWorkers of a Pool.
	DefaultMaxWorkers = 4
)

// Job is a unit of work run by the pool.
type Job interface {
	// Run will run the job with a context.
	Run(ctx context.Context)
}

// JobFunc is an adapter to allow the use of ordinary functions as jobs.
type JobFunc func(ctx context.Context)

// Run calls f(ctx).
func (f JobFunc) Run(ctx context.Context) {
	f(ctx)
}

// PoolOptions for constructing a new Pool.
type PoolOptions struct {
	MaxWorkers int
}

// Pool structure for running up to a maximum number of jobs concurrently.
// The pool has an internal queue, such that all jobs added will be accepted
// but not run until they reach the front of the queue and a worker is free.
type Pool struct {
	options  PoolOptions
	queue    *queue
	jobs     sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewPool returns a new pool, provided the PoolOptions.
func NewPool(o PoolOptions) *Pool {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}

	p := &Pool{
		options:  o,
		stopChan: make(chan struct{}),
	}
	p.queue = newQueue(p.stopChan)

	// Spawn the workers.
	for i := 0; i < o.MaxWorkers; i++ {
		go p.runWorker()
	}

	return p
}

// Enqueue a job in the pool. This method will return immediately.
func (p *Pool) Enqueue(job Job) {
	p.jobs.Add(1)
	p.queue.Enqueue(job)
}

// WaitUntilProcessed will block until both the queue is empty and all workers
// are idle. This is useful for per-request Pools and in testing.
func (p *Pool) WaitUntilProcessed() {
	p.jobs.Wait()
}

// Stop terminates the pool workers. Jobs still queued are not run. Stop is
// idempotent.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
}

// runWorker processes jobs from the FIFO queue until the pool is stopped.
func (p *Pool) runWorker() {
	for {
		job := p.queue.Dequeue(p.stopChan)
		if job == nil {
			return
		}
		job.Run(context.TODO())
		p.jobs.Done()
	}
}
