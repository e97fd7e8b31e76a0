package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodboard/api/internal/board"
	"github.com/foodboard/api/internal/config"
	"github.com/foodboard/api/internal/enum"
)

// logPrinter stands in for a receipt printer.
type logPrinter struct {
	logger *slog.Logger
}

func (p logPrinter) Print(c board.Card) error {
	p.logger.Info("print order", "order_id", c.ID, "status", c.Status, "created_at", c.CreatedAt)
	return nil
}

func main() {
	cfg := config.LoadDashboard()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if cfg.Token == "" {
		logger.Error("DASHBOARD_TOKEN is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := board.NewReconciler(logPrinter{logger: logger}, cfg.AutoPrint, logger)
	syncer := board.NewSyncer(board.SyncerConfig{
		BaseURL:      cfg.APIURL,
		Token:        cfg.Token,
		PullInterval: cfg.PullInterval,
	}, rec, logger)

	go summarize(ctx, rec, cfg.PullInterval, logger)

	logger.Info("dashboard started", "api", cfg.APIURL, "auto_print", cfg.AutoPrint)
	syncer.Run(ctx)
	logger.Info("dashboard stopped")
}

// summarize logs the column counts each interval in which the board was
// replaced.
func summarize(ctx context.Context, rec *board.Reconciler, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var last *board.Board
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		b := rec.Board()
		if b == last {
			continue
		}
		last = b

		attrs := []any{"orders", len(b.Cards)}
		for _, s := range enum.OrderStatuses {
			attrs = append(attrs, s, b.Counts[s])
		}
		logger.Info("board", attrs...)
	}
}
