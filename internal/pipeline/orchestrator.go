package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("pipeline stopped")

// Options sizes the worker pool.
type Options struct {
	Workers  int
	MaxQueue int
	JobTTL   time.Duration
}

// JobObserver is told about pool activity. metrics.Reporter implements it.
type JobObserver interface {
	JobStarted()
	JobFinished()
	SetQueued(n int)
}

type nopObserver struct{}

func (nopObserver) JobStarted()   {}
func (nopObserver) JobFinished()  {}
func (nopObserver) SetQueued(int) {}

// Orchestrator runs extraction jobs on a bounded pool of workers.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	slots  chan struct{} // One per worker; shared by queued and synchronous jobs.
	worker *Worker
	obs    JobObserver
	log    *slog.Logger
	opts   Options

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewOrchestrator(opts Options, w *Worker, obs JobObserver, log *slog.Logger) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxQueue <= 0 {
		opts.MaxQueue = 20
	}
	if opts.JobTTL <= 0 {
		opts.JobTTL = time.Hour
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Orchestrator{
		jobs:   NewJobStore(opts.JobTTL),
		queue:  make(chan *Job, opts.MaxQueue),
		slots:  make(chan struct{}, opts.Workers),
		worker: w,
		obs:    obs,
		log:    log,
		opts:   opts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.opts.Workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.obs.SetQueued(len(o.queue))
					if workerCtx.Err() != nil {
						job.Fail("queued", ErrStopped)
						return
					}
					o.run(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// run processes job once a worker slot is free. A job whose context ends
// while waiting fails in the queued phase.
func (o *Orchestrator) run(ctx context.Context, job *Job) {
	if err := ctx.Err(); err != nil {
		job.Fail("queued", err)
		return
	}
	select {
	case o.slots <- struct{}{}:
	case <-ctx.Done():
		job.Fail("queued", ctx.Err())
		return
	}
	defer func() { <-o.slots }()

	o.obs.JobStarted()
	defer o.obs.JobFinished()
	o.worker.Process(ctx, job)
}

// Stop cancels in-flight jobs and waits for the workers to exit. Jobs still
// queued fail with ErrStopped.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	for job := range o.queue {
		job.Fail("queued", ErrStopped)
	}
	o.obs.SetQueued(0)
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.obs.SetQueued(len(o.queue))
		return nil
	default:
		err := fmt.Errorf("%w (%d)", ErrQueueFull, o.opts.MaxQueue)
		job.Fail("queued", err)
		return err
	}
}

// Run processes job synchronously on the caller's goroutine. It waits for a
// worker slot, so queued and synchronous jobs together never exceed
// Options.Workers. The job is tracked like a queued one so its status stays
// pollable.
func (o *Orchestrator) Run(ctx context.Context, job *Job) {
	o.jobs.Put(job)
	o.run(ctx, job)
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
