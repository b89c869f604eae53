package smoke

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/visualverse/internal/adapters/http/api"
	service "github.com/okian/visualverse/internal/app"
)

const (
	smokeEmail    = "smoke@visualverse.test"
	smokePassword = "smoke-password"
)

func startServer(t *testing.T) *httptest.Server {
	ctx := context.Background()
	svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(64))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(ctx) })
	if _, err := svc.Auth().Bootstrap(ctx, smokeEmail, smokePassword); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	srv := api.NewServer(api.Deps{
		Renderer:  svc,
		Jobs:      svc,
		Content:   svc.Content(),
		Admin:     svc.Auth(),
		Stats:     svc,
		Dashboard: svc,
	})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func names(r Report) map[string]Check {
	out := make(map[string]Check, len(r.Checks))
	for _, c := range r.Checks {
		out[c.Name] = c
	}
	return out
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		ts := startServer(t)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When every check runs with credentials", func() {
			rep, err := Run(ctx, Config{BaseURL: ts.URL, Email: smokeEmail, Password: smokePassword, Jobs: 4, PollInterval: 5 * time.Millisecond})

			Convey("Then all of them pass", func() {
				So(err, ShouldBeNil)
				So(rep.Failed(), ShouldEqual, 0)
				got := names(rep)
				for _, n := range []string{"health", "catalog", "render", "jobs", "login", "content", "dashboard"} {
					So(got[n].OK, ShouldBeTrue)
				}
			})
		})

		Convey("When no credentials are given", func() {
			rep, err := Run(ctx, Config{BaseURL: ts.URL, Jobs: 1})

			Convey("Then the authenticated checks are skipped", func() {
				So(err, ShouldBeNil)
				So(names(rep)["content"].Skipped, ShouldBeTrue)
				So(names(rep)["dashboard"].Skipped, ShouldBeTrue)
			})
		})

		Convey("When the password is wrong", func() {
			rep, err := Run(ctx, Config{BaseURL: ts.URL, Email: smokeEmail, Password: "nope-nope-nope", Jobs: 1})

			Convey("Then login fails and the run reports it", func() {
				So(errors.Is(err, ErrChecksFailed), ShouldBeTrue)
				So(names(rep)["login"].OK, ShouldBeFalse)
				So(names(rep)["login"].Error, ShouldContainSubstring, "401")
			})
		})
	})

	Convey("Given nothing listening", t, func() {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		Convey("Then the run stops after the health check", func() {
			rep, err := Run(context.Background(), Config{BaseURL: url, Timeout: time.Second})
			So(errors.Is(err, ErrChecksFailed), ShouldBeTrue)
			So(len(rep.Checks), ShouldEqual, 1)
			So(rep.Checks[0].Name, ShouldEqual, "health")
		})
	})
}

func TestFinalSorted(t *testing.T) {
	Convey("The final frame must equal the sorted input", t, func() {
		var body renderBody
		body.FrameCount = 1
		body.Sequence.Frames = append(body.Sequence.Frames, struct {
			Data []int `json:"data"`
		}{Data: []int{1, 2, 3}})

		So(finalSorted(body, []int{3, 1, 2}), ShouldBeNil)
		So(errors.Is(finalSorted(body, []int{3, 3, 1}), errMismatch), ShouldBeTrue)

		body.FrameCount = 2
		So(errors.Is(finalSorted(body, []int{3, 1, 2}), errMismatch), ShouldBeTrue)
	})
}
