package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodboard/api/internal/catalog"
	"github.com/foodboard/api/internal/config"
	"github.com/foodboard/api/internal/database"
	"github.com/foodboard/api/internal/delivery"
	"github.com/foodboard/api/internal/jobs"
	"github.com/foodboard/api/internal/notify"
	"github.com/foodboard/api/internal/router"
	"github.com/foodboard/api/internal/service"
	"github.com/foodboard/api/internal/ws"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	queries := database.New(pool)

	// Catalog cache; without redis every lookup goes to postgres.
	var rdb *redis.Client
	if cfg.Catalog.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Catalog.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, catalog cache degraded", "error", err)
		}
	}
	products := catalog.NewCache(queries, rdb, cfg.Catalog.TTL, logger)

	notifier, closeNotifier := buildNotifier(cfg.Notify, logger)
	defer closeNotifier()
	dispatcher := notify.NewDispatcher(notifier, notify.DispatcherConfig{
		Workers:     cfg.Notify.Workers,
		QueueSize:   cfg.Notify.QueueSize,
		MaxAttempts: cfg.Notify.MaxAttempts,
	}, logger)
	dispatcher.Start(ctx)
	defer dispatcher.Close()

	hub := ws.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	collab := service.Collaborators{
		Catalog:        products,
		Events:         hub,
		Notifications:  dispatcher,
		StaffRecipient: cfg.Notify.StaffChatID,
		Logger:         logger,
	}
	if cfg.Delivery.QuoteURL != "" {
		collab.Quoter = delivery.NewClient(cfg.Delivery.QuoteURL, cfg.Delivery.Timeout)
	}
	orders := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, collab)

	archiveJob := jobs.NewArchiveJob(orders, cfg.Archive.After, cfg.Archive.Schedule, logger)
	if err := archiveJob.Start(); err != nil {
		return fmt.Errorf("start archive job: %w", err)
	}
	defer archiveJob.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, router.Deps{Orders: orders, Catalog: products, Hub: hub, Logger: logger}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// Close streams first so Shutdown is not held open by long-lived sessions.
	stopHub()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildNotifier fans out to every configured channel. With none configured
// notifications are dropped.
func buildNotifier(cfg config.NotifyConfig, logger *slog.Logger) (notify.Notifier, func()) {
	var (
		sinks   notify.Multi
		closers []func() error
	)

	if cfg.ChatWebhookURL != "" {
		sinks = append(sinks, notify.NewChatNotifier(cfg.ChatWebhookURL, 10*time.Second))
	}
	if len(cfg.KafkaBrokers) > 0 {
		k := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		sinks = append(sinks, k)
		closers = append(closers, k.Close)
	}
	if cfg.RabbitMQURL != "" {
		r, err := notify.NewRabbitNotifier(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, skipping", "error", err)
		} else {
			sinks = append(sinks, r)
			closers = append(closers, r.Close)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close notifier", "error", err)
			}
		}
	}
	if len(sinks) == 0 {
		logger.Info("no notification channels configured")
		return notify.Discard{}, closeAll
	}
	return sinks, closeAll
}
