package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("x_"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithMetricsEnabled(true),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names carry namespace, subsystem and prefix", func() {
				So(manager, ShouldNotBeNil)
				manager.jobsSubmitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_x_jobs_submitted_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share one registry", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Reset(func() { _ = Init() })

		Convey("When it is rebuilt with a prefix and labels", func() {
			So(Init(WithMetricPrefix("vv_"), WithCustomLabels(map[string]string{"env": "ci"}), WithMetricsEnabled(false)), ShouldBeNil)
			RecordJobSubmitted()

			Convey("Then the new registry exposes the renamed metrics", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "visualverse_platform_vv_jobs_submitted_total" {
						found = true
						So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})

			Convey("Then disabled render accounting records nothing", func() {
				RecordRender("math", "unit_circle", "ok", 3, 1)
				So(testutil.ToFloat64(globalManager.framesGenerated.WithLabelValues("math")), ShouldEqual, 0)
			})
		})

		Convey("When a name would be rejected by Prometheus", func() {
			before := GetRegistry()

			Convey("Then Init fails and keeps the current registry", func() {
				So(errors.Is(Init(WithMetricPrefix("vv-")), ErrInvalidName), ShouldBeTrue)
				So(errors.Is(Init(WithCustomLabels(map[string]string{"bad label": "x"})), ErrInvalidName), ShouldBeTrue)
				So(errors.Is(Init(WithHistogramBuckets([]float64{5, 5})), ErrInvalidBuckets), ShouldBeTrue)
				So(GetRegistry(), ShouldEqual, before)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording a render", func() {
			before := testutil.ToFloat64(globalManager.framesGenerated.WithLabelValues("algorithms"))
			RecordRender("algorithms", "bubble_sort", "ok", 7, 1.5)

			Convey("Then frames are accumulated per domain", func() {
				after := testutil.ToFloat64(globalManager.framesGenerated.WithLabelValues("algorithms"))
				So(after-before, ShouldEqual, 7)
			})
		})

		Convey("When updating job gauges", func() {
			UpdateJobsByStatus(map[string]int{"pending": 2, "succeeded": 3})

			Convey("Then the stored total is the sum", func() {
				So(testutil.ToFloat64(globalManager.jobsStoredSize), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.jobsByStatus.WithLabelValues("pending")), ShouldEqual, 2)
			})
		})

		Convey("When adjusting stream sessions", func() {
			start := testutil.ToFloat64(globalManager.streamSessions)
			UpdateStreamSessions(1)
			UpdateStreamSessions(1)
			UpdateStreamSessions(-1)
			So(testutil.ToFloat64(globalManager.streamSessions)-start, ShouldEqual, 1)
		})

		Convey("When exercising the remaining recorders", func() {
			So(func() {
				RecordJobSubmitted()
				RecordJobDuplicate()
				RecordJobRejected()
				RecordJobCompleted("failed")
				UpdateQueueSize(3)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.3)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordContentOperation("create_subject", "ok", 0.4)
				UpdateContentItems("subjects", 2)
				RecordStreamFrameSent()
				RecordAdminLogin("success")
				UpdateActiveSessions(1)
				RecordHTTPRequest("/api/v1/catalog", "GET", "200")
				RecordHTTPRequestDuration("/api/v1/catalog", "GET", "200", 1)
				RecordErrorByComponent("render", "bad_params")
				RecordErrorByEndpoint("/api/v1/render", "POST", "bad_params")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			Convey("Then only visualverse metrics are exposed", func() {
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "visualverse_platform_"), ShouldBeTrue)
				}
			})
		})
	})
}
