package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/verdict/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DBDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.LeaderboardSource, convey.ShouldEqual, config.SourceMirror)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("VERDICT_ADDR", ":8080")
			_ = os.Setenv("VERDICT_DB_DRIVER", "sqlite")
			_ = os.Setenv("VERDICT_DB_DSN", "file:verdict.db")
			_ = os.Setenv("VERDICT_NOTIFY_WORKERS", "3")
			_ = os.Setenv("VERDICT_REMINDER_TTL_SECONDS", "60")
			_ = os.Setenv("VERDICT_AUTO_MIGRATE", "false")
			_ = os.Setenv("VERDICT_LEADERBOARD_SOURCE", "ledger")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.DBDSN, convey.ShouldEqual, "file:verdict.db")
				convey.So(cfg.NotifyWorkers, convey.ShouldEqual, 3)
				convey.So(cfg.ReminderTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.AutoMigrate, convey.ShouldBeFalse)
				convey.So(cfg.LeaderboardSource, convey.ShouldEqual, config.SourceLedger)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
# judging service
addr: ":9090"
notify_queue_size: 500
notify_workers: 8
redis_url: "redis://localhost:6379/0"
redis_channel_prefix: "hack."
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("VERDICT_CONFIG", tmpFile)
			_ = os.Setenv("VERDICT_NOTIFY_WORKERS", "2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.NotifyQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.NotifyWorkers, convey.ShouldEqual, 2)
				convey.So(cfg.RedisURL, convey.ShouldEqual, "redis://localhost:6379/0")
				convey.So(cfg.RedisChannelPrefix, convey.ShouldEqual, "hack.")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			})
		})

		convey.Convey("When loading a dotenv file", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "verdict.env")
			convey.So(os.WriteFile(path, []byte("VERDICT_DEDUPE_SIZE=42\nVERDICT_LOG_LEVEL=debug\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("VERDICT_DOTENV", path)
			_ = os.Setenv("VERDICT_LOG_LEVEL", "warn")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then unset values come from the file and set values win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 42)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
			})
		})

		convey.Convey("When the dotenv file is missing", func() {
			_ = os.Setenv("VERDICT_DOTENV", "/non/existent/verdict.env")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("VERDICT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("VERDICT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("VERDICT_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("VERDICT_NOTIFY_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a postgres driver has no DSN", func() {
			_ = os.Setenv("VERDICT_DB_DRIVER", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "VERDICT_") {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "verdict-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
