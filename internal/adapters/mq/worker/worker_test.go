package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/visualverse/internal/adapters/mq/queue"
	worker "github.com/okian/visualverse/internal/adapters/mq/worker"
	"github.com/okian/visualverse/internal/adapters/repository/jobstore"
	model "github.com/okian/visualverse/internal/domain/model"
	"github.com/okian/visualverse/internal/domain/render"
)

type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

// blockingRenderer waits for the context, to exercise the job timeout.
type blockingRenderer struct{}

func (blockingRenderer) Render(ctx context.Context, _, _ string, _ json.RawMessage) (render.Result, error) {
	<-ctx.Done()
	return render.Result{}, ctx.Err()
}

// panickingRenderer panics on its first call and then renders normally.
type panickingRenderer struct {
	calls atomic.Int64
	next  worker.Renderer
}

func (r *panickingRenderer) Render(ctx context.Context, domain, kind string, raw json.RawMessage) (render.Result, error) {
	if r.calls.Add(1) == 1 {
		var s []int
		_ = s[3]
	}
	return r.next.Render(ctx, domain, kind, raw)
}

func submit(ctx context.Context, store *jobstore.MemoryStore, q *mockQueue, j model.RenderJob) {
	So(store.Put(ctx, model.NewJobRecord(j)), ShouldBeNil)
	q.jobs <- j
}

func waitTerminal(ctx context.Context, store *jobstore.MemoryStore, id string) model.JobRecord {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := store.Get(ctx, id)
		if err == nil && rec.Status.Terminal() {
			return rec
		}
		time.Sleep(2 * time.Millisecond)
	}
	rec, _ := store.Get(ctx, id)
	return rec
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool with a real registry", t, func() {
		ctx := context.Background()
		q := newMockQueue()
		store := jobstore.NewMemoryStore()
		pool := worker.NewPool(2, q, render.NewRegistry(), store)
		So(pool.Size(), ShouldEqual, 2)
		pool.Start(ctx)

		Convey("A valid job succeeds with its result attached", func() {
			submit(ctx, store, q, model.RenderJob{
				ID: "ok", Domain: "algorithms", Kind: "bubble_sort",
				Params: json.RawMessage(`{"data":[3,1,2]}`), SubmittedAt: time.Now(),
			})
			rec := waitTerminal(ctx, store, "ok")
			So(rec.Status, ShouldEqual, model.JobSucceeded)
			So(rec.FrameCount, ShouldBeGreaterThan, 0)
			So(rec.StartedAt, ShouldNotBeNil)
			So(rec.FinishedAt, ShouldNotBeNil)

			var res struct {
				Domain     string `json:"domain"`
				FrameCount int    `json:"frame_count"`
			}
			So(json.Unmarshal(rec.Result, &res), ShouldBeNil)
			So(res.Domain, ShouldEqual, "algorithms")
			So(res.FrameCount, ShouldEqual, rec.FrameCount)
		})

		Convey("Bad params fail the job with a code", func() {
			submit(ctx, store, q, model.RenderJob{
				ID: "bad", Domain: "algorithms", Kind: "bubble_sort",
				Params: json.RawMessage(`{"nope":1}`), SubmittedAt: time.Now(),
			})
			rec := waitTerminal(ctx, store, "bad")
			So(rec.Status, ShouldEqual, model.JobFailed)
			So(rec.ErrorCode, ShouldEqual, "bad_params")
			So(rec.Result, ShouldBeNil)
		})

		Convey("Unknown kinds fail the job", func() {
			submit(ctx, store, q, model.RenderJob{ID: "unknown", Domain: "alchemy", Kind: "gold", SubmittedAt: time.Now()})
			rec := waitTerminal(ctx, store, "unknown")
			So(rec.Status, ShouldEqual, model.JobFailed)
			So(rec.ErrorCode, ShouldEqual, "unknown_kind")
		})

		Convey("Shutdown drains the queue and returns", func() {
			So(pool.Shutdown(ctx), ShouldBeNil)
		})
	})

	Convey("Given a worker with a short job timeout", t, func() {
		ctx := context.Background()
		q := newMockQueue()
		store := jobstore.NewMemoryStore()
		pool := worker.NewPool(1, q, blockingRenderer{}, store, worker.WithJobTimeout(20*time.Millisecond))
		pool.Start(ctx)

		submit(ctx, store, q, model.RenderJob{ID: "slow", Domain: "algorithms", Kind: "bubble_sort", SubmittedAt: time.Now()})
		rec := waitTerminal(ctx, store, "slow")

		Convey("The job fails with a timeout", func() {
			So(rec.Status, ShouldEqual, model.JobFailed)
			So(rec.ErrorCode, ShouldEqual, "timeout")
			So(errors.Is(pool.Shutdown(ctx), context.DeadlineExceeded), ShouldBeFalse)
		})
	})
}

func TestPoolSurvivesRendererFailures(t *testing.T) {
	Convey("Given a single worker whose renderer panics once", t, func() {
		ctx := context.Background()
		q := newMockQueue()
		store := jobstore.NewMemoryStore()
		pool := worker.NewPool(1, q, &panickingRenderer{next: render.NewRegistry()}, store)
		pool.Start(ctx)
		defer func() { _ = pool.Shutdown(ctx) }()

		submit(ctx, store, q, model.RenderJob{
			ID: "boom", Domain: "algorithms", Kind: "bubble_sort",
			Params: json.RawMessage(`{"data":[2,1]}`), SubmittedAt: time.Now(),
		})
		submit(ctx, store, q, model.RenderJob{
			ID: "after", Domain: "algorithms", Kind: "bubble_sort",
			Params: json.RawMessage(`{"data":[2,1]}`), SubmittedAt: time.Now(),
		})

		Convey("The panicking job fails and the next one still runs", func() {
			rec := waitTerminal(ctx, store, "boom")
			So(rec.Status, ShouldEqual, model.JobFailed)
			So(rec.ErrorCode, ShouldEqual, "panic")
			So(rec.Error, ShouldContainSubstring, "index out of range")

			So(waitTerminal(ctx, store, "after").Status, ShouldEqual, model.JobSucceeded)
		})
	})

	Convey("Given a pool with the real registry", t, func() {
		ctx := context.Background()
		q := newMockQueue()
		store := jobstore.NewMemoryStore()
		pool := worker.NewPool(1, q, render.NewRegistry(), store)
		pool.Start(ctx)
		defer func() { _ = pool.Shutdown(ctx) }()

		Convey("Oversized Riemann sums and sampling ratios fail without crashing", func() {
			for id, job := range map[string]model.RenderJob{
				"riemann":  {Domain: "math", Kind: "riemann_sum", Params: json.RawMessage(`{"function":{"kind":"sin"},"a":0,"b":1,"n":4611686018427387904,"doublings":2}`)},
				"circular": {Domain: "physics", Kind: "circular_motion", Params: json.RawMessage(`{"radius":1,"speed":1,"dt":1e-300,"duration":1e300}`)},
				"spring":   {Domain: "physics", Kind: "harmonic_oscillator", Params: json.RawMessage(`{"mass":1,"stiffness":1,"amplitude":1,"dt":1e-3,"duration":1e6}`)},
			} {
				job.ID = id
				job.SubmittedAt = time.Now()
				submit(ctx, store, q, job)
				rec := waitTerminal(ctx, store, id)
				So(rec.Status, ShouldEqual, model.JobFailed)
				So(rec.ErrorCode, ShouldEqual, "limit")
			}
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	Convey("A single worker stops on Shutdown", t, func() {
		ctx := context.Background()
		w := worker.NewInMemoryWorker(newMockQueue(), blockingRenderer{}, jobstore.NewMemoryStore(), worker.WithName("solo"))
		go w.Run(ctx)

		sctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		So(w.Shutdown(sctx), ShouldBeNil)
	})
}
