package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/campusdesk/officehours/internal/api/http"
	"github.com/campusdesk/officehours/internal/config"
	"github.com/campusdesk/officehours/internal/events"
	"github.com/campusdesk/officehours/internal/observability"
	"github.com/campusdesk/officehours/internal/persistence"
	"github.com/campusdesk/officehours/internal/realtime"
	"github.com/campusdesk/officehours/internal/repository"
	"github.com/campusdesk/officehours/internal/seed"
	"github.com/campusdesk/officehours/internal/service"
	"github.com/campusdesk/officehours/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records := repository.NewMemoryStatusRepository()
	seedStore(ctx, cfg, records, logger)

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher()
	hub := realtime.NewHub(records, realtime.Config{
		QueueSize:    cfg.Realtime.QueueSize,
		WriteTimeout: cfg.Realtime.WriteTimeout(),
		PingInterval: cfg.Realtime.PingInterval(),
	}, logger)
	hub.Register(dispatcher)

	var publisher service.Publisher
	if redis != nil {
		publisher = redis
	}
	relay := worker.StartNotificationWorker(
		service.NewNotificationService(dispatcher, publisher, logger, cfg.Relay), cfg.Relay, logger)

	statuses := service.NewStatusService(service.StatusDependencies{
		Records:    records,
		Dispatcher: dispatcher,
		BaseURL:    cfg.App.PublicBaseURL,
		Logger:     logger,
	})

	app := httptransport.NewServer(httptransport.ServerConfig{
		AppName:        cfg.App.Name,
		Version:        cfg.App.Version,
		RequestTimeout: cfg.App.RequestTimeout(),
		LivePath:       cfg.Realtime.Path,
		PingInterval:   cfg.Realtime.PingInterval(),
		Statuses:       statuses,
		Hub:            hub,
		Redis:          redis,
		Relay:          relay,
		Metrics:        observability.NewMetrics(),
		Logger:         logger,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("live_path", cfg.Realtime.Path))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	hub.Close()
	_ = app.Shutdown()
	relay.Stop()
}

func seedStore(ctx context.Context, cfg *config.Config, records repository.StatusRepository, logger *zap.Logger) {
	db, err := persistence.OpenSeedDatabase(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close(ctx)

	var querier seed.Querier
	if conn := db.Handle(); conn != nil {
		querier = conn
	}

	importCtx, cancel := db.WithQueryTimeout(ctx)
	defer cancel()
	recs, source, err := seed.Resolve(importCtx, cfg.Seed, querier)
	if err != nil {
		logger.Fatal("failed to load seed records", zap.String("source", string(source)), zap.Error(err))
	}
	n, err := seed.Apply(ctx, records, recs, logger)
	if err != nil {
		logger.Fatal("failed to seed store", zap.Error(err))
	}
	logger.Info("store seeded", zap.String("source", string(source)), zap.Int("records", n))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
