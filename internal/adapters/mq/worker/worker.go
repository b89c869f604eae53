// Package worker runs queued render jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/visualverse/internal/adapters/mq/queue"
	"github.com/okian/visualverse/internal/domain/model"
	"github.com/okian/visualverse/internal/domain/render"
	"github.com/okian/visualverse/pkg/logger"
	"github.com/okian/visualverse/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultJobTimeout   = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// ErrRenderPanic marks a job whose renderer panicked; the worker survives it.
var ErrRenderPanic = errors.New("worker: render panicked")

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Renderer runs a generator.
type Renderer interface {
	Render(ctx context.Context, domain, kind string, raw json.RawMessage) (render.Result, error)
}

// JobStore records job state transitions.
type JobStore interface {
	Put(ctx context.Context, rec model.JobRecord) error
	Get(ctx context.Context, id string) (model.JobRecord, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	renderer   Renderer
	store      JobStore
	name       string
	jobTimeout time.Duration
	now        func() time.Time
	active     *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, r Renderer, s JobStore, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		renderer:   r,
		store:      s,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		now:        time.Now,
		active:     &atomic.Int64{},
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing job", logger.String("job_id", j.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process moves one job through running to a terminal state. Render failures
// are recorded on the job; only store failures are returned.
func (w *InMemoryWorker) process(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	rec, err := w.store.Get(ctx, j.ID)
	if err != nil {
		rec = model.NewJobRecord(j)
	}
	started := w.now()
	rec.Status = model.JobRunning
	rec.StartedAt = &started
	if err := w.store.Put(ctx, rec); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("mark job %s running: %w", j.ID, err)
	}

	renderCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	res, renderErr := w.render(renderCtx, j)
	cancel()

	var body []byte
	if renderErr == nil {
		body, renderErr = json.Marshal(res)
	}

	finished := w.now()
	rec.FinishedAt = &finished
	if renderErr != nil {
		rec.Status = model.JobFailed
		rec.Error = renderErr.Error()
		rec.ErrorCode = render.Code(renderErr)
		if errors.Is(renderErr, ErrRenderPanic) {
			rec.ErrorCode = "panic"
		}
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", rec.ErrorCode)
		w.logger.Warn(ctx, "render job failed",
			logger.String("job_id", j.ID),
			logger.String("kind", j.Domain+"/"+j.Kind),
			logger.Error(renderErr),
		)
	} else {
		rec.Status = model.JobSucceeded
		rec.FrameCount = res.FrameCount
		rec.Result = body
	}
	metrics.RecordJobCompleted(string(rec.Status))

	if err := w.store.Put(ctx, rec); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("finish job %s: %w", j.ID, err)
	}
	return nil
}

// render runs the renderer, turning a panic into ErrRenderPanic.
func (w *InMemoryWorker) render(ctx context.Context, j Job) (res render.Result, err error) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	defer func() {
		if p := recover(); p != nil {
			w.logger.Error(ctx, "renderer panicked",
				logger.String("job_id", j.ID),
				logger.String("kind", j.Domain+"/"+j.Kind),
				logger.String("panic", fmt.Sprint(p)),
				logger.String("stack", string(debug.Stack())),
			)
			res, err = render.Result{}, fmt.Errorf("%w: %v", ErrRenderPanic, p)
		}
	}()
	return w.renderer.Render(ctx, j.Domain, j.Kind, j.Params)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers sharing one queue.
func NewPool(workerCount int, q Queue, r Renderer, s JobStore, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	active := &atomic.Int64{}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, r, s, wopts...)
		w.active = active
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue so workers drain it, then waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
