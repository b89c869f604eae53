package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	service "github.com/okian/visualverse/internal/app"
	"github.com/okian/visualverse/internal/domain/content"
	"github.com/okian/visualverse/internal/domain/render"
	"github.com/okian/visualverse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should not be started", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats.Started, ShouldBeFalse)
			So(stats.CatalogKinds, ShouldBeGreaterThan, 20)
			So(svc.Auth(), ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(3),
			service.WithQueueSize(64),
			service.WithDedupeSize(32),
			service.WithJobTimeout(time.Second),
			service.WithJobTTL(time.Minute),
		)

		Convey("Then the options should show in its stats", func() {
			stats := svc.GetStats()
			So(stats.WorkerCount, ShouldEqual, 3)
			So(stats.QueueCapacity, ShouldEqual, 64)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("Job calls fail before Start", func() {
			_, _, err := svc.SubmitJob(ctx, "algorithms", "bubble_sort", nil, "")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.GetJob(ctx, "x")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats().Started, ShouldBeTrue)

			Convey("Then stopping it should mark it stopped", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.GetStats().Started, ShouldBeFalse)
			})

			Convey("Then it can be restarted", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)
				So(svc.GetStats().Started, ShouldBeTrue)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Render(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Synchronous renders are counted", func() {
			res, err := svc.Render(ctx, "algorithms", "bubble_sort", json.RawMessage(`{"data":[3,1,2]}`))
			So(err, ShouldBeNil)
			So(res.FrameCount, ShouldBeGreaterThan, 0)

			_, err = svc.Render(ctx, "algorithms", "bogo_sort", nil)
			So(errors.Is(err, render.ErrUnknownKind), ShouldBeTrue)

			stats := svc.GetStats()
			So(stats.Renders.Total, ShouldEqual, 2)
			So(stats.Renders.Failed, ShouldEqual, 1)
		})

		Convey("The catalog can be filtered by domain", func() {
			all := svc.Catalog("")
			algos := svc.Catalog("algorithms")
			So(len(algos), ShouldBeGreaterThan, 0)
			So(len(all), ShouldBeGreaterThan, len(algos))
			for _, e := range algos {
				So(e.Domain, ShouldEqual, "algorithms")
			}
		})

		Convey("Concept render links are checked against the registry", func() {
			store := svc.Content()
			subj, err := store.CreateSubject(ctx, content.Subject{Name: "Computer science"})
			So(err, ShouldBeNil)
			course, err := store.CreateCourse(ctx, content.Course{SubjectID: subj.ID, Title: "Sorting", Level: content.LevelBeginner})
			So(err, ShouldBeNil)

			_, err = store.CreateConcept(ctx, content.Concept{CourseID: course.ID, Name: "Bogo", Domain: "algorithms", RenderKind: "bogo_sort"})
			So(errors.Is(err, content.ErrInvalid), ShouldBeTrue)

			c, err := store.CreateConcept(ctx, content.Concept{CourseID: course.ID, Name: "Bubble", Domain: "algorithms", RenderKind: "bubble_sort"})
			So(err, ShouldBeNil)

			c.RenderKind = "bogo_sort"
			_, err = store.UpdateConcept(ctx, c)
			So(errors.Is(err, content.ErrInvalid), ShouldBeTrue)
		})
	})
}
