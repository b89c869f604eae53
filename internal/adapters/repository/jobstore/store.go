// Package jobstore keeps render job records for polling.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/visualverse/internal/domain/model"
	"github.com/okian/visualverse/pkg/logger"
	"github.com/okian/visualverse/pkg/metrics"
)

// ErrNotFound is returned for unknown or evicted jobs.
var ErrNotFound = errors.New("jobstore: job not found")

const (
	defaultTTL        = time.Hour
	defaultSweepEvery = time.Minute
)

// Store persists job records.
type Store interface {
	Put(ctx context.Context, rec model.JobRecord) error
	Get(ctx context.Context, id string) (model.JobRecord, error)
	// Delete drops a record; unknown ids are ignored.
	Delete(ctx context.Context, id string) error
	// List returns jobs with the given status (all when status is empty),
	// newest first.
	List(ctx context.Context, status model.JobStatus) ([]model.JobRecord, error)
	Counts(ctx context.Context) map[model.JobStatus]int
}

// MemoryStore is an in-process Store. Finished jobs older than the TTL are
// evicted by a background ticker started with Start.
type MemoryStore struct {
	mu         sync.RWMutex
	jobs       map[string]model.JobRecord
	ttl        time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool

	logger logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		jobs:       make(map[string]model.JobRecord),
		ttl:        defaultTTL,
		sweepEvery: defaultSweepEvery,
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("jobstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the eviction ticker until ctx is done or Close is called.
func (s *MemoryStore) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug(ctx, "evicted expired jobs", logger.Int("count", n))
				}
			}
		}
	}()
}

// Close stops the ticker started by Start and waits for it.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
	if !s.started.Load() {
		return
	}
	select {
	case <-s.done:
	case <-time.After(time.Second):
	}
}

// Sweep evicts finished jobs older than the TTL and returns how many.
func (s *MemoryStore) Sweep() int {
	if s.ttl == 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	n := 0
	for id, rec := range s.jobs {
		if rec.Status.Terminal() && rec.FinishedAt != nil && rec.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	s.mu.Unlock()
	if n > 0 {
		s.publish()
	}
	return n
}

func (s *MemoryStore) Put(_ context.Context, rec model.JobRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("jobstore: empty job id")
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("jobstore: invalid status %q", rec.Status)
	}
	s.mu.Lock()
	s.jobs[rec.ID] = rec
	s.mu.Unlock()
	s.publish()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return model.JobRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
	s.publish()
	return nil
}

func (s *MemoryStore) List(_ context.Context, status model.JobStatus) ([]model.JobRecord, error) {
	s.mu.RLock()
	out := make([]model.JobRecord, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Counts(_ context.Context) map[model.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked()
}

func (s *MemoryStore) countsLocked() map[model.JobStatus]int {
	out := make(map[model.JobStatus]int, len(model.AllJobStatuses))
	for _, st := range model.AllJobStatuses {
		out[st] = 0
	}
	for _, rec := range s.jobs {
		out[rec.Status]++
	}
	return out
}

func (s *MemoryStore) publish() {
	s.mu.RLock()
	counts := s.countsLocked()
	s.mu.RUnlock()
	labels := make(map[string]int, len(counts))
	for st, n := range counts {
		labels[string(st)] = n
	}
	metrics.UpdateJobsByStatus(labels)
}
