package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/visualverse/internal/app"
	"github.com/okian/visualverse/internal/domain/content"
	"github.com/okian/visualverse/internal/domain/model"
	"github.com/okian/visualverse/internal/domain/render"
	. "github.com/smartystreets/goconvey/convey"
)

func waitTerminal(ctx context.Context, svc *service.Service, id string) model.JobRecord {
	for {
		rec, err := svc.GetJob(ctx, id)
		if err == nil && rec.Status.Terminal() {
			return rec
		}
		select {
		case <-ctx.Done():
			return rec
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestService_Integration(t *testing.T) {
	Convey("Given a started service with workers", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(256))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a sort job is submitted", func() {
			rec, created, err := svc.SubmitJob(ctx, "algorithms", "merge_sort", json.RawMessage(`{"data":[5,2,9,1]}`), "")
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)

			Convey("Then it succeeds with the rendered sequence", func() {
				done := waitTerminal(ctx, svc, rec.ID)
				So(done.Status, ShouldEqual, model.JobSucceeded)
				So(done.StartedAt, ShouldNotBeNil)
				So(done.FinishedAt, ShouldNotBeNil)
				So(done.FrameCount, ShouldBeGreaterThan, 0)

				var body struct {
					FrameCount int `json:"frame_count"`
					Sequence   struct {
						Frames []struct {
							Data []int `json:"data"`
						} `json:"frames"`
					} `json:"sequence"`
				}
				So(json.Unmarshal(done.Result, &body), ShouldBeNil)
				So(body.FrameCount, ShouldEqual, done.FrameCount)
				last := body.Sequence.Frames[len(body.Sequence.Frames)-1]
				So(last.Data, ShouldResemble, []int{1, 2, 5, 9})
			})
		})

		Convey("When a job has bad params", func() {
			rec, _, err := svc.SubmitJob(ctx, "algorithms", "bubble_sort", json.RawMessage(`{"bogus":1}`), "")
			So(err, ShouldBeNil)

			Convey("Then it fails with a machine readable code", func() {
				done := waitTerminal(ctx, svc, rec.ID)
				So(done.Status, ShouldEqual, model.JobFailed)
				So(done.ErrorCode, ShouldEqual, render.Code(render.ErrBadParams))
				So(done.Error, ShouldNotBeEmpty)
			})
		})

		Convey("When many goroutines submit with shared keys", func() {
			var wg sync.WaitGroup
			ids := make([]string, 40)
			errs := make([]error, 40)
			for i := range ids {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("key-%d", i%10)
					rec, _, err := svc.SubmitJob(ctx, "physics", "free_fall", json.RawMessage(`{"height":5}`), key)
					ids[i], errs[i] = rec.ID, err
				}(i)
			}
			wg.Wait()

			Convey("Then each key maps to exactly one job", func() {
				byKey := map[string]string{}
				for i, id := range ids {
					So(errs[i], ShouldBeNil)
					key := fmt.Sprintf("key-%d", i%10)
					if prev, ok := byKey[key]; ok {
						So(id, ShouldEqual, prev)
					}
					byKey[key] = id
				}
				So(byKey, ShouldHaveLength, 10)
				for _, id := range byKey {
					So(waitTerminal(ctx, svc, id).Status, ShouldEqual, model.JobSucceeded)
				}
			})
		})

		Convey("When an admin is bootstrapped and content exists", func() {
			created, err := svc.Auth().Bootstrap(ctx, "root@example.com", "bootstrap-pass")
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)
			_, err = svc.Auth().Login(ctx, "root@example.com", "bootstrap-pass")
			So(err, ShouldBeNil)

			store := svc.Content()
			subj, err := store.CreateSubject(ctx, content.Subject{Name: "Physics"})
			So(err, ShouldBeNil)
			course, err := store.CreateCourse(ctx, content.Course{SubjectID: subj.ID, Title: "Mechanics", Level: content.LevelIntermediate})
			So(err, ShouldBeNil)
			a, err := store.CreateConcept(ctx, content.Concept{CourseID: course.ID, Name: "Kinematics"})
			So(err, ShouldBeNil)
			b, err := store.CreateConcept(ctx, content.Concept{CourseID: course.ID, Name: "Projectiles", Domain: "physics", RenderKind: "projectile"})
			So(err, ShouldBeNil)
			So(store.AddPrerequisite(ctx, b.ID, a.ID), ShouldBeNil)

			_, err = svc.Render(ctx, "physics", "projectile", json.RawMessage(`{"speed":10,"angle_deg":45}`))
			So(err, ShouldBeNil)

			Convey("Then the dashboard reports live figures", func() {
				stats, err := svc.DashboardStats(ctx)
				So(err, ShouldBeNil)
				So(stats.Content, ShouldResemble, content.Counts{Subjects: 1, Courses: 1, Concepts: 2, Prerequisites: 1})
				So(stats.Users, ShouldEqual, 1)
				So(stats.ActiveSessions, ShouldEqual, 1)
				So(stats.Renders.Total, ShouldBeGreaterThanOrEqualTo, 1)
				So(stats.CatalogKinds, ShouldBeGreaterThan, 20)
				So(stats.Jobs, ShouldContainKey, "succeeded")
			})
		})
	})
}
