package smoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/visualverse/internal/domain/catalog"
	"github.com/okian/visualverse/internal/domain/content"
	"github.com/okian/visualverse/internal/domain/model"
)

var (
	errMismatch    = errors.New("mismatch")
	errJobDeadline = errors.New("job did not finish in time")
)

// checkHealth expects the Prometheus exposition on /healthz.
func checkHealth(ctx context.Context, c *client) error {
	return c.get(ctx, "/healthz", nil, http.StatusOK)
}

type catalogPage struct {
	Items []catalog.Entry `json:"items"`
	Total int             `json:"total"`
}

// checkCatalog expects every domain to list at least one kind.
func checkCatalog(ctx context.Context, c *client) error {
	var page catalogPage
	if err := c.get(ctx, "/api/v1/catalog", &page, http.StatusOK); err != nil {
		return err
	}
	if page.Total != len(page.Items) || page.Total == 0 {
		return fmt.Errorf("%w: catalog total %d with %d items", errMismatch, page.Total, len(page.Items))
	}
	seen := make(map[string]bool)
	for _, e := range page.Items {
		seen[e.Domain] = true
	}
	for _, d := range []string{
		catalog.DomainAlgorithms, catalog.DomainPhysics, catalog.DomainMath,
		catalog.DomainChemistry, catalog.DomainFinance,
	} {
		if !seen[d] {
			return fmt.Errorf("%w: domain %s missing from catalog", errMismatch, d)
		}
	}
	return nil
}

type renderBody struct {
	FrameCount int `json:"frame_count"`
	Sequence   struct {
		Frames []struct {
			Data []int `json:"data"`
		} `json:"frames"`
	} `json:"sequence"`
}

func randomData(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = rand.IntN(100)
	}
	return out
}

// finalSorted checks the last frame of a sort sequence against the sorted input.
func finalSorted(body renderBody, input []int) error {
	frames := body.Sequence.Frames
	if len(frames) == 0 || body.FrameCount != len(frames) {
		return fmt.Errorf("%w: frame_count %d with %d frames", errMismatch, body.FrameCount, len(frames))
	}
	want := slices.Clone(input)
	slices.Sort(want)
	if got := frames[len(frames)-1].Data; !slices.Equal(got, want) {
		return fmt.Errorf("%w: final frame %v want %v", errMismatch, got, want)
	}
	return nil
}

// checkRender renders a sort synchronously and verifies the final frame.
func checkRender(ctx context.Context, c *client) error {
	input := randomData(12)
	var body renderBody
	if err := c.post(ctx, "/api/v1/render/algorithms/quick_sort", map[string]any{"data": input}, &body, http.StatusOK); err != nil {
		return err
	}
	return finalSorted(body, input)
}

// checkJobs submits n sort jobs concurrently, replays each idempotency key
// once and waits for every job to succeed.
func checkJobs(ctx context.Context, c *client, n int, poll time.Duration) error {
	var finished atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			input := randomData(8)
			req := map[string]any{"domain": "algorithms", "kind": "merge_sort", "params": map[string]any{"data": input}}
			key := uuid.NewString()

			var first, again model.JobRecord
			if err := c.post(gctx, "/api/v1/jobs", req, &first, http.StatusAccepted, "Idempotency-Key", key); err != nil {
				return err
			}
			if err := c.post(gctx, "/api/v1/jobs", req, &again, http.StatusOK, "Idempotency-Key", key); err != nil {
				return err
			}
			if again.ID != first.ID {
				return fmt.Errorf("%w: idempotent replay returned %s want %s", errMismatch, again.ID, first.ID)
			}

			rec, err := waitJob(gctx, c, first.ID, poll)
			if err != nil {
				return err
			}
			if rec.Status != model.JobSucceeded {
				return fmt.Errorf("%w: job %s ended %s: %s", errMismatch, rec.ID, rec.Status, rec.Error)
			}
			var body renderBody
			if err := json.Unmarshal(rec.Result, &body); err != nil {
				return fmt.Errorf("decode job result: %w", err)
			}
			if err := finalSorted(body, input); err != nil {
				return err
			}
			finished.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if got := finished.Load(); got != int64(n) {
		return fmt.Errorf("%w: %d of %d jobs finished", errMismatch, got, n)
	}
	return nil
}

func waitJob(ctx context.Context, c *client, id string, poll time.Duration) (model.JobRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, jobDeadline)
	defer cancel()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		var rec model.JobRecord
		if err := c.get(ctx, "/api/v1/jobs/"+id, &rec, http.StatusOK); err != nil {
			return rec, err
		}
		if rec.Status.Terminal() {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return rec, fmt.Errorf("%w: %s", errJobDeadline, id)
		case <-ticker.C:
		}
	}
}

type loginResult struct {
	Token string `json:"token"`
}

// login signs in and returns an authenticated copy of c.
func login(ctx context.Context, c *client, email, password string) (*client, error) {
	var res loginResult
	if err := c.post(ctx, "/admin/login", map[string]string{"email": email, "password": password}, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return c.withToken(res.Token), nil
}

// checkContent builds a subject, course and two linked concepts, reads the
// learning path back and removes everything again.
func checkContent(ctx context.Context, c *client) (err error) {
	suffix := uuid.NewString()[:8]
	var subject content.Subject
	if err := c.post(ctx, "/api/v1/subjects", map[string]string{"name": "Smoke " + suffix}, &subject, http.StatusCreated); err != nil {
		return err
	}
	var cleanup []string
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			if derr := c.delete(context.WithoutCancel(ctx), cleanup[i]); derr != nil && err == nil {
				err = derr
			}
		}
	}()
	cleanup = append(cleanup, "/api/v1/subjects/"+subject.ID)

	var course content.Course
	if err := c.post(ctx, "/api/v1/courses", map[string]string{"subject_id": subject.ID, "title": "Sorting"}, &course, http.StatusCreated); err != nil {
		return err
	}
	cleanup = append(cleanup, "/api/v1/courses/"+course.ID)

	mk := func(name, kind string) (content.Concept, error) {
		var out content.Concept
		err := c.post(ctx, "/api/v1/concepts", map[string]string{
			"course_id": course.ID, "name": name, "domain": catalog.DomainAlgorithms, "render_kind": kind,
		}, &out, http.StatusCreated)
		return out, err
	}
	basic, err := mk("Bubble sort", "bubble_sort")
	if err != nil {
		return err
	}
	cleanup = append(cleanup, "/api/v1/concepts/"+basic.ID)
	advanced, err := mk("Merge sort", "merge_sort")
	if err != nil {
		return err
	}
	cleanup = append(cleanup, "/api/v1/concepts/"+advanced.ID)

	if err := c.post(ctx, "/api/v1/concepts/"+advanced.ID+"/prerequisites", map[string]string{"requires_id": basic.ID}, nil, http.StatusNoContent); err != nil {
		return err
	}
	var path []content.Concept
	if err := c.get(ctx, "/api/v1/concepts/"+advanced.ID+"/learning-path", &path, http.StatusOK); err != nil {
		return err
	}
	if len(path) != 2 || path[0].ID != basic.ID || path[1].ID != advanced.ID {
		return fmt.Errorf("%w: learning path has %d concepts", errMismatch, len(path))
	}
	return nil
}

// checkDashboard reads the admin dashboard figures.
func checkDashboard(ctx context.Context, c *client) error {
	var stats struct {
		CatalogKinds int `json:"catalog_kinds"`
		Users        int `json:"users"`
	}
	if err := c.get(ctx, "/admin/dashboard/stats", &stats, http.StatusOK); err != nil {
		return err
	}
	if stats.CatalogKinds == 0 || stats.Users == 0 {
		return fmt.Errorf("%w: dashboard reports %d kinds and %d users", errMismatch, stats.CatalogKinds, stats.Users)
	}
	return nil
}
