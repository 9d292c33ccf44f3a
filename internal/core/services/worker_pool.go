package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Job is a unit of background work. ctx is cancelled when the pool closes.
type Job func(ctx context.Context)

// WorkerPool runs jobs on a fixed number of goroutines fed by a bounded
// queue. Submit never blocks: a full queue rejects the job.
type WorkerPool struct {
	queue   chan Job
	metrics *metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool starts workers goroutines behind a queue of queueSize.
func NewWorkerPool(workers, queueSize int, recorder *metrics.Recorder) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		queue:   make(chan Job, queueSize),
		metrics: recorder,
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := range workers {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit queues a job. It returns domain.ErrQueueFull when no slot is free.
func (p *WorkerPool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- job:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		p.run(id, job)
	}
}

func (p *WorkerPool) run(id int, job Job) {
	p.metrics.JobStarted()
	defer p.metrics.JobFinished()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Worker %d: job panicked: %v", id, r)
		}
	}()
	job(p.ctx)
}

// Close stops accepting jobs, cancels running ones and waits for the
// workers to drain the queue.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
