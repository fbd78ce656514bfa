package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opsdesk/ticketing/internal/config"
	"github.com/opsdesk/ticketing/internal/observability"
	"github.com/opsdesk/ticketing/internal/service"
)

// RecurringWorker periodically sweeps due recurring-ticket templates and
// materializes tickets for them.
type RecurringWorker struct {
	recurring *service.RecurringService
	cfg       config.SchedulerConfig
	logger    *zap.Logger
	metrics   *observability.Metrics
	cron      *cron.Cron
}

// NewRecurringWorker builds the worker.
func NewRecurringWorker(recurring *service.RecurringService, cfg config.SchedulerConfig, logger *zap.Logger, metrics *observability.Metrics) *RecurringWorker {
	return &RecurringWorker{
		recurring: recurring,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// Start schedules the sweep. Each run gets its own timeout so a stuck batch
// never wedges the scheduler.
func (w *RecurringWorker) Start() error {
	if !w.cfg.Enabled {
		w.logger.Info("recurring scheduler disabled")
		return nil
	}

	interval := w.cfg.IntervalSeconds
	if interval < 1 {
		interval = 60
	}
	spec := fmt.Sprintf("@every %ds", interval)
	if _, err := w.cron.AddFunc(spec, w.runOnce); err != nil {
		return fmt.Errorf("schedule recurring sweep: %w", err)
	}

	w.cron.Start()
	w.logger.Info("recurring scheduler started", zap.Int("interval_seconds", interval))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (w *RecurringWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info("recurring scheduler stopped")
}

func (w *RecurringWorker) runOnce() {
	timeout := time.Duration(w.cfg.RunTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	processed, err := w.recurring.ProcessDue(ctx, started)
	if err != nil {
		w.logger.Error("recurring sweep failed", zap.Error(err))
		return
	}
	w.metrics.RecordRecurringGenerated(processed)
	if processed > 0 {
		w.logger.Info("recurring sweep complete",
			zap.Int("generated", processed),
			zap.Duration("took", time.Since(started)))
	}
}
