// Package service wires the render registry, content store, job pipeline
// and admin auth into the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/visualverse/internal/adapters/mq/queue"
	"github.com/okian/visualverse/internal/adapters/mq/worker"
	"github.com/okian/visualverse/internal/adapters/repository/adminstore"
	"github.com/okian/visualverse/internal/adapters/repository/contentstore"
	"github.com/okian/visualverse/internal/adapters/repository/jobstore"
	"github.com/okian/visualverse/internal/auth"
	"github.com/okian/visualverse/internal/domain/catalog"
	"github.com/okian/visualverse/internal/domain/content"
	"github.com/okian/visualverse/internal/domain/dedupe"
	"github.com/okian/visualverse/internal/domain/model"
	"github.com/okian/visualverse/internal/domain/render"
	"github.com/okian/visualverse/internal/domain/types"
	"github.com/okian/visualverse/pkg/logger"
	"github.com/okian/visualverse/pkg/metrics"
)

const maintenanceEvery = 30 * time.Second

// Service implements the API dependencies.
type Service struct {
	mu sync.RWMutex

	registry *render.Registry
	content  contentstore.Store
	auth     *auth.Service

	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	jobs    *jobstore.MemoryStore
	pool    *worker.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	jobTimeout  time.Duration
	jobTTL      time.Duration

	renders  atomic.Int64
	failures atomic.Int64

	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	now       func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of render workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the idempotency key cache; zero or less is unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithJobTimeout caps one asynchronous render.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithJobTTL sets how long finished jobs stay retrievable.
func WithJobTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTTL = d
		}
	}
}

// WithRegistry replaces the default render registry.
func WithRegistry(r *render.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithContentStore replaces the in-memory content store.
func WithContentStore(cs contentstore.Store) Option {
	return func(s *Service) {
		if cs != nil {
			s.content = cs
		}
	}
}

// WithAuth sets the admin auth service.
func WithAuth(a *auth.Service) Option {
	return func(s *Service) {
		if a != nil {
			s.auth = a
		}
	}
}

// WithClock replaces time.Now for uptime and job timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Stores default to in-memory implementations and
// auth to an in-memory admin store signed with a random per-process secret.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  10_000,
		jobTimeout:  10 * time.Second,
		jobTTL:      15 * time.Minute,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.registry == nil {
		s.registry = render.NewRegistry()
	}
	if s.content == nil {
		s.content = contentstore.NewMemoryStore()
	}
	if s.auth == nil {
		tokens, err := auth.NewTokenService(uuid.NewString() + uuid.NewString())
		if err != nil {
			panic(err) // 72 bytes always satisfies the minimum
		}
		s.auth = auth.NewService(adminstore.NewMemoryStore(), tokens)
	}
	return s
}

// Start creates the job pipeline and starts workers and maintenance.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting visualverse service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.jobs = jobstore.NewMemoryStore(jobstore.WithTTL(s.jobTTL), jobstore.WithClock(s.now))
	s.jobs.Start(runCtx)
	s.pool = worker.NewPool(s.workerCount, s.queue, &countingRenderer{s: s}, s.jobs,
		worker.WithJobTimeout(s.jobTimeout),
		worker.WithClock(s.now),
	)
	s.pool.Start(runCtx)

	s.cancel = cancel
	s.done = make(chan struct{})
	go s.maintain(runCtx, s.done)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "visualverse service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("catalogKinds", len(s.registry.Kinds())),
	)
	return nil
}

// Stop drains the job queue and stops background work. Stores passed in
// with options are left open for their owner to close.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping visualverse service...")

	err := s.pool.Shutdown(ctx)
	s.cancel()
	<-s.done
	s.jobs.Close()

	s.started = false
	s.logger.Info(ctx, "visualverse service stopped")
	return err
}

// maintain purges expired admin sessions and refreshes system gauges.
func (s *Service) maintain(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(maintenanceEvery)
	defer t.Stop()
	for {
		s.observeRuntime()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := s.auth.PurgeExpired(ctx); err != nil {
				s.logger.Warn(ctx, "session purge failed", logger.Error(err))
			} else if n > 0 {
				s.logger.Debug(ctx, "purged expired sessions", logger.Int("count", n))
			}
		}
	}
}

func (s *Service) observeRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// Auth returns the admin auth service.
func (s *Service) Auth() *auth.Service { return s.auth }

// Content returns the content store with concept render links validated
// against the registry.
func (s *Service) Content() contentstore.Store {
	return validatingStore{Store: s.content, kinds: s.registry}
}

// Catalog lists renderable concepts, optionally for one domain.
func (s *Service) Catalog(domain string) []catalog.Entry {
	return s.registry.Catalog().List(domain)
}

// Render runs a generator synchronously.
func (s *Service) Render(ctx context.Context, domain, kind string, params json.RawMessage) (render.Result, error) {
	res, err := s.registry.Render(ctx, domain, kind, params)
	s.count(err)
	return res, err
}

func (s *Service) count(err error) {
	s.renders.Add(1)
	if err != nil {
		s.failures.Add(1)
	}
}

// SubmitJob queues an asynchronous render. With a non-empty idempotency key
// a repeated submission returns the original job and created == false.
// A full queue fails with ErrBackpressure and releases the key.
func (s *Service) SubmitJob(ctx context.Context, domain, kind string, params json.RawMessage, key string) (rec model.JobRecord, created bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.JobRecord{}, false, ErrNotStarted
	}
	if !s.registry.Has(domain, kind) {
		metrics.RecordJobRejected()
		return model.JobRecord{}, false, fmt.Errorf("%w: %s/%s", render.ErrUnknownKind, domain, kind)
	}

	job := model.RenderJob{
		ID:             uuid.NewString(),
		Domain:         domain,
		Kind:           kind,
		Params:         append(json.RawMessage(nil), params...),
		IdempotencyKey: key,
		SubmittedAt:    s.now().UTC(),
	}
	rec = model.NewJobRecord(job)
	if err := s.jobs.Put(ctx, rec); err != nil {
		return model.JobRecord{}, false, err
	}

	// claimed reports whether this call bound key to job.ID; only then may it
	// release the key.
	claimed := false
	if key != "" {
		// Two attempts: the first may find a key whose job was already evicted.
		for attempt := 0; attempt < 2; attempt++ {
			existing, held := s.deduper.Claim(ctx, key, job.ID)
			if !held {
				claimed = true
				break
			}
			prev, err := s.jobs.Get(ctx, existing)
			if err == nil {
				_ = s.jobs.Delete(ctx, job.ID)
				metrics.RecordJobDuplicate()
				return prev, false, nil
			}
			s.deduper.Release(ctx, key, existing)
		}
	}

	if !s.queue.Enqueue(ctx, job) {
		_ = s.jobs.Delete(ctx, job.ID)
		if claimed {
			s.deduper.Release(ctx, key, job.ID)
		}
		metrics.RecordJobRejected()
		if s.queue.IsClosed() {
			return model.JobRecord{}, false, fmt.Errorf("%w: %w", ErrNotStarted, queue.ErrClosed)
		}
		s.logger.Warn(ctx, "job rejected", logger.String("kind", domain+"/"+kind), logger.Int("queueLength", s.queue.Len(ctx)))
		return model.JobRecord{}, false, fmt.Errorf("%w: %w", ErrBackpressure, queue.ErrFull)
	}
	metrics.RecordJobSubmitted()
	return rec, true, nil
}

// GetJob returns a job record.
func (s *Service) GetJob(ctx context.Context, id string) (model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.JobRecord{}, ErrNotStarted
	}
	return s.jobs.Get(ctx, id)
}

// ListJobs returns jobs with status (all when empty), newest first.
func (s *Service) ListJobs(ctx context.Context, status model.JobStatus) ([]model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.jobs.List(ctx, status)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := types.ServiceStats{
		Started:       s.started,
		WorkerCount:   s.workerCount,
		QueueCapacity: s.queueSize,
		Renders:       s.renderCounters(),
		CatalogKinds:  len(s.registry.Kinds()),
		Jobs:          map[string]int{},
	}
	if !s.started {
		return stats
	}
	stats.UptimeSeconds = s.now().Sub(s.startedAt).Seconds()
	stats.QueueLength = s.queue.Len(ctx)
	stats.DedupeKeys = s.deduper.Size()
	stats.Jobs = s.jobCounts(ctx)

	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateWorkerCount(s.workerCount)
	return stats
}

// DashboardStats summarises live content, job, render and admin state.
func (s *Service) DashboardStats(ctx context.Context) (types.DashboardStats, error) {
	counts, err := s.content.Counts(ctx)
	if err != nil {
		return types.DashboardStats{}, fmt.Errorf("content counts: %w", err)
	}
	users, sessions, err := s.auth.Stats(ctx)
	if err != nil {
		return types.DashboardStats{}, fmt.Errorf("admin counts: %w", err)
	}
	metrics.UpdateActiveSessions(sessions)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := types.DashboardStats{
		Content:        counts,
		Jobs:           map[string]int{},
		Renders:        s.renderCounters(),
		Users:          users,
		ActiveSessions: sessions,
		CatalogKinds:   len(s.registry.Kinds()),
	}
	if s.started {
		out.Jobs = s.jobCounts(ctx)
		out.UptimeSeconds = s.now().Sub(s.startedAt).Seconds()
	}
	return out, nil
}

func (s *Service) renderCounters() types.RenderCounters {
	return types.RenderCounters{Total: s.renders.Load(), Failed: s.failures.Load()}
}

func (s *Service) jobCounts(ctx context.Context) map[string]int {
	counts := s.jobs.Counts(ctx)
	out := make(map[string]int, len(counts))
	for st, n := range counts {
		out[string(st)] = n
	}
	return out
}

// countingRenderer counts worker renders alongside synchronous ones.
type countingRenderer struct {
	s *Service
}

func (r *countingRenderer) Render(ctx context.Context, domain, kind string, raw json.RawMessage) (render.Result, error) {
	res, err := r.s.registry.Render(ctx, domain, kind, raw)
	r.s.count(err)
	return res, err
}

// validatingStore checks concept render links against the registry.
type validatingStore struct {
	contentstore.Store
	kinds content.KindChecker
}

func (v validatingStore) CreateConcept(ctx context.Context, c content.Concept) (content.Concept, error) {
	if err := content.ValidateConcept(c, v.kinds); err != nil {
		return content.Concept{}, err
	}
	return v.Store.CreateConcept(ctx, c)
}

func (v validatingStore) UpdateConcept(ctx context.Context, c content.Concept) (content.Concept, error) {
	if err := content.ValidateConcept(c, v.kinds); err != nil {
		return content.Concept{}, err
	}
	return v.Store.UpdateConcept(ctx, c)
}

// IsNotFound reports whether err is a not-found error from any store.
func IsNotFound(err error) bool {
	return errors.Is(err, content.ErrNotFound) ||
		errors.Is(err, jobstore.ErrNotFound) ||
		errors.Is(err, adminstore.ErrNotFound)
}
