package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When initialized with an unknown level", func() {
			So(Init(WithLevel("loud")), ShouldNotBeNil)
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithOutput(&buf), WithLevel("debug")), ShouldBeNil)

		Convey("When logging with fields", func() {
			Get().Info(context.Background(), "rendered",
				String("kind", "bubble_sort"),
				Int("frames", 12),
				Bool("cached", false),
				Duration("took", time.Millisecond),
			)

			var line map[string]any
			So(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), ShouldBeNil)

			Convey("Then every field is present", func() {
				So(line["msg"], ShouldEqual, "rendered")
				So(line["kind"], ShouldEqual, "bubble_sort")
				So(line["frames"], ShouldEqual, float64(12))
				So(line["cached"], ShouldEqual, false)
				So(line["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(context.Background(), "hidden")

			Convey("Then info lines are dropped", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestLoggerNamedAndWith(t *testing.T) {
	Convey("Given a text logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)

		Convey("When using Named and With", func() {
			Named("render").With(String("request_id", "r-1")).Warn(context.Background(), "slow")

			Convey("Then the group and bound field appear", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "request_id=r-1")
				So(out, ShouldContainSubstring, "render.")
			})
		})
	})
}

func TestLoggerContext(t *testing.T) {
	Convey("Given a context carrying a logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		scoped := Get().With(String("request_id", "abc"))
		ctx := WithContext(context.Background(), scoped)

		Convey("When logging through FromContext", func() {
			FromContext(ctx).Info(ctx, "hello")

			Convey("Then the scoped fields are used", func() {
				So(strings.Contains(buf.String(), "request_id=abc"), ShouldBeTrue)
			})
		})

		Convey("When the context has no logger", func() {
			So(FromContext(context.Background()), ShouldEqual, Get())
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error", " INFO "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}
