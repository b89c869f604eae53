package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/visualverse/internal/adapters/http/api"
	"github.com/okian/visualverse/internal/adapters/http/site"
	"github.com/okian/visualverse/internal/adapters/http/swagger"
	"github.com/okian/visualverse/internal/adapters/repository/adminstore"
	"github.com/okian/visualverse/internal/adapters/repository/contentstore"
	app "github.com/okian/visualverse/internal/app"
	"github.com/okian/visualverse/internal/auth"
	"github.com/okian/visualverse/internal/config"
	"github.com/okian/visualverse/internal/domain/render"
	"github.com/okian/visualverse/pkg/logger"
	"github.com/okian/visualverse/pkg/metrics"
)

// HTTP server timeout constants. WriteTimeout is left unset so WebSocket
// streams are not cut off.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	storeOpenTimeout  = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// logger is not configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := initMetrics(cfg); err != nil {
		logger.Get().Error(ctx, "failed to initialize metrics", logger.Error(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "visualverse exited", logger.Error(err))
		os.Exit(1)
	}
}

// initMetrics rebuilds the metrics registry from the metrics_* keys. It must
// run before newMux, which captures the registry for /healthz.
func initMetrics(cfg *config.Config) error {
	return metrics.Init(
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithHistogramBuckets(cfg.MetricsBuckets),
	)
}

// stores bundles the persistence backends selected by configuration.
type stores struct {
	content contentstore.Store
	admin   adminstore.Store
}

func (s stores) close(ctx context.Context) {
	log := logger.Get()
	if s.content != nil {
		if err := s.content.Close(ctx); err != nil {
			log.Warn(ctx, "close content store", logger.Error(err))
		}
	}
	if s.admin != nil {
		if err := s.admin.Close(); err != nil {
			log.Warn(ctx, "close admin store", logger.Error(err))
		}
	}
}

// openStores picks Neo4j and Postgres when configured, memory otherwise.
func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, storeOpenTimeout)
	defer cancel()

	var st stores
	if cfg.Neo4jURI != "" {
		cs, err := contentstore.NewNeo4jStore(ctx, contentstore.Neo4jConfig{
			URI:      cfg.Neo4jURI,
			User:     cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return stores{}, err
		}
		st.content = cs
		log.Info(ctx, "content store ready", logger.String("backend", "neo4j"))
	} else {
		st.content = contentstore.NewMemoryStore()
		log.Info(ctx, "content store ready", logger.String("backend", "memory"))
	}

	if cfg.PostgresDSN != "" {
		as, err := adminstore.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			st.close(ctx)
			return stores{}, err
		}
		st.admin = as
		log.Info(ctx, "admin store ready", logger.String("backend", "postgres"))
	} else {
		st.admin = adminstore.NewMemoryStore()
		log.Info(ctx, "admin store ready", logger.String("backend", "memory"))
	}
	return st, nil
}

// newService wires auth and the render registry into the application service.
func newService(ctx context.Context, cfg *config.Config, st stores) (*app.Service, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	authSvc := auth.NewService(st.admin, tokens, auth.WithSessionTTL(cfg.TokenTTL()))
	created, err := authSvc.Bootstrap(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Get().Info(ctx, "bootstrap admin ready", logger.String("email", cfg.BootstrapAdminEmail))
	}

	return app.New(
		app.WithLogger(logger.Get().Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithJobTimeout(cfg.JobTimeout()),
		app.WithJobTTL(cfg.JobTTL()),
		app.WithRegistry(render.NewRegistry(
			render.WithMaxInputSize(cfg.MaxInputSize),
			render.WithMaxFrames(cfg.MaxFrames),
		)),
		app.WithContentStore(st.content),
		app.WithAuth(authSvc),
	), nil
}

// newMux registers the API, the docs and the player on one mux.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	apiServer := api.NewServer(api.Deps{
		Renderer:  svc,
		Jobs:      svc,
		Content:   svc.Content(),
		Admin:     svc.Auth(),
		Stats:     svc,
		Dashboard: svc,
	},
		api.WithStreamInterval(cfg.StreamInterval()),
		api.WithPageSizes(cfg.DefaultPageSize, cfg.MaxPageSize),
	)
	apiServer.Register(ctx, mux)
	return mux
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer st.close(context.WithoutCancel(ctx))

	svc, err := newService(ctx, cfg, st)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "service stop failed", logger.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info(context.WithoutCancel(ctx), "server stopped")
	return err
}
