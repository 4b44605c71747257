package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	contestengine "devquest/contexts/contest-lifecycle/contest-engine"
	postgresadapter "devquest/contexts/contest-lifecycle/contest-engine/adapters/postgres"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	"devquest/internal/platform/config"
	"devquest/internal/platform/db"
	"devquest/internal/platform/messaging"
	"devquest/internal/platform/metrics"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type WorkerApp struct {
	cfg      config.Config
	module   contestengine.Module
	postgres *db.Postgres
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	logger = logger.With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN, db.DefaultPoolOptions(), logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}

	collectors := metrics.New(metricsSubsystem(cfg.ServiceName))
	bus := messaging.NewBus(messaging.Options{
		BufferSize:   cfg.BusBufferSize,
		MaxAttempts:  cfg.BusMaxAttempts,
		RetryBackoff: cfg.BusRetryBackoff,
		Metrics:      collectors,
	}, logger)

	module := contestengine.NewModule(contestengine.Dependencies{
		Challenges:         repo,
		Submissions:        repo,
		Reactions:          repo,
		Profiles:           repo,
		Badges:             repo,
		Outbox:             repo,
		Dedup:              repo,
		Tx:                 repo,
		Publisher:          bus,
		Subscriber:         bus,
		Clock:              postgresadapter.SystemClock{},
		IDGen:              postgresadapter.UUIDGenerator{},
		Metrics:            collectors,
		RelayMetrics:       collectors,
		OutboxBatchSize:    cfg.OutboxBatchSize,
		SchedulerBatchSize: cfg.SchedulerBatchSize,
		DedupTTL:           cfg.EventDedupTTL,
		Logger:             logger,
	})

	return NewWorkerApp(cfg, module, pg, collectors, logger), nil
}

// NewWorkerApp assembles a worker around an already wired module. pg and
// collectors may be nil.
func NewWorkerApp(
	cfg config.Config,
	module contestengine.Module,
	pg *db.Postgres,
	collectors *metrics.Metrics,
	logger *slog.Logger,
) *WorkerApp {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerApp{
		cfg:      cfg,
		module:   module,
		postgres: pg,
		metrics:  collectors,
		logger:   logger,
	}
}

// Run seeds the badge catalog, attaches the consumers and drives the relay and
// scheduler loops until ctx ends. A failed iteration is logged and retried on
// the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	if w.cfg.SeedBadgeCatalog {
		if _, err := w.module.BadgeCatalog.Seed(ctx, entities.DefaultBadgeCatalog()); err != nil {
			return err
		}
	}
	if w.cfg.EnableAchievementConsumer {
		if err := w.module.AchievementConsumer.Start(ctx); err != nil {
			return err
		}
	}
	if w.cfg.EnableAccountConsumer {
		if err := w.module.AccountConsumer.Start(ctx); err != nil {
			return err
		}
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.cfg.WorkerPollInterval.String(),
		"voting_window_scheduler", w.cfg.EnableVotingWindowScheduler,
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return w.loop(ctx, "outbox_relay", func(ctx context.Context) error {
			_, err := w.module.OutboxRelay.RunOnce(ctx)
			w.recordPoolStats()
			return err
		})
	})
	if w.cfg.EnableVotingWindowScheduler {
		group.Go(func() error {
			return w.loop(ctx, "voting_window_scheduler", func(ctx context.Context) error {
				_, err := w.module.Scheduler.RunOnce(ctx)
				return err
			})
		})
	}
	if w.metrics != nil && strings.TrimSpace(w.cfg.MetricsAddr) != "" {
		group.Go(func() error {
			return w.serveMetrics(ctx)
		})
	}
	return group.Wait()
}

func (w *WorkerApp) loop(ctx context.Context, name string, iteration func(ctx context.Context) error) error {
	ticker := time.NewTicker(w.cfg.WorkerPollInterval)
	defer ticker.Stop()
	for {
		started := time.Now()
		if err := iteration(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("worker loop iteration failed",
				"event", "bootstrap_worker_loop_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"loop", name,
				"error", err.Error(),
			)
		}
		if w.metrics != nil {
			w.metrics.ObserveLoop(name, time.Since(started))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", w.metrics.Handler())
	server := &http.Server{
		Addr:              w.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	w.logger.Info("metrics endpoint listening",
		"event", "bootstrap_metrics_listening",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"addr", w.cfg.MetricsAddr,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (w *WorkerApp) recordPoolStats() {
	if w.metrics == nil || w.postgres == nil || w.postgres.DB == nil {
		return
	}
	sqlDB, err := w.postgres.DB.DB()
	if err != nil {
		return
	}
	w.metrics.RecordDBPoolStats(sqlDB.Stats())
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func metricsSubsystem(serviceName string) string {
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(strings.TrimSpace(serviceName))
}
