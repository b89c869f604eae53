package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/okian/visualverse/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigDefaults(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1_024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxFrames, convey.ShouldEqual, 20_000)
			convey.So(cfg.StreamInterval().Milliseconds(), convey.ShouldEqual, 250)
			convey.So(cfg.TokenTTL().Minutes(), convey.ShouldEqual, 60)
			convey.So(config.Validate(cfg), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Neo4jURI, convey.ShouldBeEmpty)
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("VV_ADDR", ":8080")
			_ = os.Setenv("VV_QUEUE_SIZE", "64")
			_ = os.Setenv("VV_WORKER_COUNT", "3")
			_ = os.Setenv("VV_NEO4J_URI", "bolt://localhost:7687")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.Neo4jURI, convey.ShouldEqual, "bolt://localhost:7687")
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := writeTemp(t, "config.yaml", `
addr: ":9090"
queue_size: 300
worker_count: 24
max_frames: 500
`)
			_ = os.Setenv("VV_CONFIG", tmpFile)
			_ = os.Setenv("VV_WORKER_COUNT", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over the file and the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.MaxFrames, convey.ShouldEqual, 500)
				convey.So(cfg.DefaultPageSize, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with a .env file", func() {
			tmpFile := writeTemp(t, "test.env", "VV_MAX_INPUT_SIZE=64\nVV_LOG_FORMAT=json\n")
			_ = os.Setenv("VV_ENV_FILE", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then the dotenv values are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxInputSize, convey.ShouldEqual, 64)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with invalid YAML", func() {
			_ = os.Setenv("VV_CONFIG", writeTemp(t, "bad.yaml", `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.So(cfg, convey.ShouldBeNil)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("VV_CONFIG", "/non/existent/file.yaml")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with an empty addr", func() {
			_ = os.Setenv("VV_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation names the field", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "Addr")
			})
		})

		convey.Convey("When loading config with a short JWT secret", func() {
			_ = os.Setenv("VV_JWT_SECRET", "short")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When max page size is below the default page size", func() {
			_ = os.Setenv("VV_MAX_PAGE_SIZE", "5")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a bootstrap email is set without a password", func() {
			_ = os.Setenv("VV_BOOTSTRAP_ADMIN_EMAIL", "admin@example.com")

			_, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "BootstrapAdminPassword")
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := config.Load(cctx)

			convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
		})
	})
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}
