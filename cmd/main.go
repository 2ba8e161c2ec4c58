package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/verdict/internal/adapters/cache"
	"github.com/okian/verdict/internal/adapters/http/api"
	"github.com/okian/verdict/internal/adapters/http/swagger"
	"github.com/okian/verdict/internal/adapters/notify"
	"github.com/okian/verdict/internal/adapters/repository"
	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/config"
	"github.com/okian/verdict/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, cleanup, err := buildService(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildService selects the stores, deduper and notification sink from cfg.
// The returned cleanup releases database and Redis connections.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.NotifyWorkers),
		service.WithQueueSize(cfg.NotifyQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithReminderTTL(cfg.ReminderTTL()),
		service.WithLeaderboardSource(cfg.LeaderboardSource),
	}

	if cfg.DBDriver != config.DriverMemory {
		db, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN,
			repository.WithPool(cfg.DBMaxOpenConns, cfg.DBMaxIdleConns),
			repository.WithAutoMigrate(cfg.AutoMigrate),
		)
		if err != nil {
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := repository.Close(db); err != nil {
				log.Warn(ctx, "database close failed", logger.Error(err))
			}
		})
		opts = append(opts,
			service.WithLedger(repository.NewGormLedger(db)),
			service.WithCatalog(repository.NewGormCatalog(db)),
		)
		log.Info(ctx, "using database stores", logger.String("driver", cfg.DBDriver))
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() { closeRedis(ctx, log, client) })
		opts = append(opts,
			service.WithDeduper(cache.NewRedisDeduper(client, cache.WithTTL(cfg.ReminderTTL()))),
			service.WithSink(notify.NewRedisSink(client, cfg.RedisChannelPrefix)),
		)
		log.Info(ctx, "using redis deduper and notifications", logger.String("channel_prefix", cfg.RedisChannelPrefix))
	}

	return service.New(opts...), cleanup, nil
}

func closeRedis(ctx context.Context, log logger.Logger, client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Warn(ctx, "redis close failed", logger.Error(err))
	}
}

// newMux registers the API docs and business routes.
func newMux(ctx context.Context, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the queue, worker and deduper gauges.
			_ = svc.GetStats()
		}
	}
}
