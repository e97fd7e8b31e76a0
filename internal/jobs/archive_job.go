// Package jobs holds scheduled background work.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/foodboard/api/internal/enum"
	"github.com/foodboard/api/internal/service"
	"github.com/robfig/cron/v3"
)

// OrderArchiver is the slice of the order service the archive sweep needs.
// Satisfied by *service.OrderService.
type OrderArchiver interface {
	ListStaleDelivered(ctx context.Context, before time.Time) ([]int64, error)
	ArchiveIfStatus(ctx context.Context, id int64, expected string) (*service.OrderDetail, error)
}

// ArchiveJob moves orders that have sat in delivered longer than After into
// archived. Each archive goes through the order service, so dashboards see
// the usual status change event.
type ArchiveJob struct {
	orders   OrderArchiver
	after    time.Duration
	schedule string
	cron     *cron.Cron
	now      func() time.Time
	logger   *slog.Logger
}

func NewArchiveJob(orders OrderArchiver, after time.Duration, schedule string, logger *slog.Logger) *ArchiveJob {
	return &ArchiveJob{
		orders:   orders,
		after:    after,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		now:      time.Now,
		logger:   logger.With("component", "archive_job"),
	}
}

// Start schedules the sweep.
func (j *ArchiveJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		j.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("archive job started", "schedule", j.schedule, "after", j.after)
	return nil
}

// Stop waits for a running sweep to finish.
func (j *ArchiveJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("archive job stopped")
}

// Sweep archives every stale delivered order once and returns how many were
// archived. Orders that changed status in the meantime are skipped.
func (j *ArchiveJob) Sweep(ctx context.Context) int {
	ids, err := j.orders.ListStaleDelivered(ctx, j.now().Add(-j.after))
	if err != nil {
		j.logger.ErrorContext(ctx, "list stale orders failed", "error", err)
		return 0
	}

	archived := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := j.orders.ArchiveIfStatus(ctx, id, enum.OrderStatusDelivered); err != nil {
			if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrStatusChanged) {
				j.logger.DebugContext(ctx, "order no longer stale", "order_id", id, "error", err)
				continue
			}
			j.logger.WarnContext(ctx, "archive order failed", "order_id", id, "error", err)
			continue
		}
		archived++
	}
	if archived > 0 {
		j.logger.InfoContext(ctx, "archived stale orders", "count", archived)
	}
	return archived
}
