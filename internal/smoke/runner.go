package smoke

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/visualverse/pkg/logger"
)

// ErrChecksFailed is returned by Run when at least one check failed.
var ErrChecksFailed = errors.New("smoke checks failed")

// Run verifies the server at cfg.BaseURL. Health is checked first; the
// remaining checks run concurrently. The report is complete even when an
// error is returned.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("smoke")
	start := time.Now()
	c := newClient(cfg.BaseURL, cfg.Timeout)

	rep := Report{BaseURL: cfg.BaseURL}
	var mu sync.Mutex
	record := func(name string, err error, took time.Duration) {
		chk := Check{Name: name, OK: err == nil, Duration: took}
		if err != nil {
			chk.Error = err.Error()
			log.Warn(ctx, "check failed", logger.String("check", name), logger.Error(err))
		} else {
			log.Info(ctx, "check passed", logger.String("check", name), logger.Duration("took", took))
		}
		mu.Lock()
		rep.Checks = append(rep.Checks, chk)
		mu.Unlock()
	}
	timed := func(name string, fn func() error) {
		t := time.Now()
		record(name, fn(), time.Since(t))
	}

	log.Info(ctx, "starting smoke run", logger.String("base_url", cfg.BaseURL), logger.Int("jobs", cfg.Jobs))

	timed("health", func() error { return checkHealth(ctx, c) })
	if rep.Failed() > 0 {
		rep.Duration = time.Since(start)
		return rep, fmt.Errorf("%w: service unreachable", ErrChecksFailed)
	}

	// Checks never abort each other; errgroup only bounds and joins them.
	var g errgroup.Group
	g.Go(func() error { timed("catalog", func() error { return checkCatalog(ctx, c) }); return nil })
	g.Go(func() error { timed("render", func() error { return checkRender(ctx, c) }); return nil })
	g.Go(func() error {
		timed("jobs", func() error { return checkJobs(ctx, c, cfg.Jobs, cfg.PollInterval) })
		return nil
	})
	g.Go(func() error {
		if cfg.Email == "" {
			mu.Lock()
			rep.Checks = append(rep.Checks,
				Check{Name: "content", Skipped: true},
				Check{Name: "dashboard", Skipped: true},
			)
			mu.Unlock()
			return nil
		}
		var authed *client
		timed("login", func() (err error) {
			authed, err = login(ctx, c, cfg.Email, cfg.Password)
			return err
		})
		if authed == nil {
			return nil
		}
		timed("content", func() error { return checkContent(ctx, authed) })
		timed("dashboard", func() error { return checkDashboard(ctx, authed) })
		return nil
	})
	_ = g.Wait()

	rep.Duration = time.Since(start)
	failed := rep.Failed()
	log.Info(ctx, "smoke run finished",
		logger.Int("checks", len(rep.Checks)),
		logger.Int("failed", failed),
		logger.Duration("duration", rep.Duration))
	if failed > 0 {
		return rep, fmt.Errorf("%w: %d of %d", ErrChecksFailed, failed, len(rep.Checks))
	}
	return rep, nil
}
