package model

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestJobStatus(t *testing.T) {
	Convey("Job states", t, func() {
		So(JobPending.Terminal(), ShouldBeFalse)
		So(JobRunning.Terminal(), ShouldBeFalse)
		So(JobSucceeded.Terminal(), ShouldBeTrue)
		So(JobFailed.Terminal(), ShouldBeTrue)
		So(JobStatus("lost").Valid(), ShouldBeFalse)
		So(len(AllJobStatuses), ShouldEqual, 4)
	})
}

func TestNewJobRecord(t *testing.T) {
	Convey("Given a submitted job", t, func() {
		at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		j := RenderJob{ID: "j1", Domain: "algorithms", Kind: "bubble_sort", IdempotencyKey: "k", SubmittedAt: at}

		Convey("Its record starts pending and omits empty fields", func() {
			rec := NewJobRecord(j)
			So(rec.Status, ShouldEqual, JobPending)
			So(rec.CreatedAt, ShouldEqual, at)

			raw, err := json.Marshal(rec)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"status":"pending"`)
			So(string(raw), ShouldNotContainSubstring, "result")
			So(string(raw), ShouldNotContainSubstring, "started_at")
		})
	})
}
