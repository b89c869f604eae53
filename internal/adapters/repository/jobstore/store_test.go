package jobstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/visualverse/internal/domain/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func record(id string, status model.JobStatus, created time.Time) model.JobRecord {
	return model.JobRecord{ID: id, Domain: "finance", Kind: "npv", Status: status, CreatedAt: created}
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a job store", t, func() {
		ctx := context.Background()
		clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryStore(WithTTL(time.Minute), WithClock(clock.Now))

		base := clock.Now()
		So(store.Put(ctx, record("a", model.JobPending, base)), ShouldBeNil)
		So(store.Put(ctx, record("b", model.JobRunning, base.Add(time.Second))), ShouldBeNil)
		So(store.Put(ctx, record("c", model.JobPending, base.Add(2*time.Second))), ShouldBeNil)

		Convey("Records are fetched by id", func() {
			rec, err := store.Get(ctx, "b")
			So(err, ShouldBeNil)
			So(rec.Status, ShouldEqual, model.JobRunning)

			_, err = store.Get(ctx, "zzz")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("Deleted records are gone", func() {
			So(store.Delete(ctx, "a"), ShouldBeNil)
			So(store.Delete(ctx, "missing"), ShouldBeNil)
			_, err := store.Get(ctx, "a")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			So(store.Counts(ctx)[model.JobPending], ShouldEqual, 1)
		})

		Convey("Invalid records are rejected", func() {
			So(store.Put(ctx, model.JobRecord{Status: model.JobPending}), ShouldNotBeNil)
			So(store.Put(ctx, model.JobRecord{ID: "x", Status: "lost"}), ShouldNotBeNil)
		})

		Convey("Listing filters by status, newest first", func() {
			all, err := store.List(ctx, "")
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 3)
			So(all[0].ID, ShouldEqual, "c")

			pending, err := store.List(ctx, model.JobPending)
			So(err, ShouldBeNil)
			So(len(pending), ShouldEqual, 2)
			So(pending[0].ID, ShouldEqual, "c")
			So(pending[1].ID, ShouldEqual, "a")
		})

		Convey("Counts include every status", func() {
			counts := store.Counts(ctx)
			So(counts[model.JobPending], ShouldEqual, 2)
			So(counts[model.JobRunning], ShouldEqual, 1)
			So(counts[model.JobSucceeded], ShouldEqual, 0)
			So(len(counts), ShouldEqual, 4)
		})

		Convey("Only finished jobs past the TTL are swept", func() {
			finished := clock.Now()
			rec := record("a", model.JobSucceeded, base)
			rec.FinishedAt = &finished
			So(store.Put(ctx, rec), ShouldBeNil)

			So(store.Sweep(), ShouldEqual, 0)
			clock.Advance(2 * time.Minute)
			So(store.Sweep(), ShouldEqual, 1)

			_, err := store.Get(ctx, "a")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = store.Get(ctx, "b")
			So(err, ShouldBeNil)
		})
	})
}

func TestMemoryStore_Ticker(t *testing.T) {
	Convey("The background ticker evicts expired jobs", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store := NewMemoryStore(WithTTL(time.Millisecond), WithSweepInterval(5*time.Millisecond))

		old := time.Now().Add(-time.Second)
		rec := record("old", model.JobFailed, old)
		rec.FinishedAt = &old
		So(store.Put(ctx, rec), ShouldBeNil)

		store.Start(ctx)
		defer store.Close()

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := store.Get(ctx, "old"); err != nil {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		_, err := store.Get(ctx, "old")
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
	})

	Convey("Close without Start returns immediately", t, func() {
		store := NewMemoryStore()
		start := time.Now()
		store.Close()
		So(time.Since(start), ShouldBeLessThan, 500*time.Millisecond)
	})
}
