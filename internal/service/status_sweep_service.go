package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	"github.com/classboard/classboard-api/pkg/jobs"
)

type sweepActivitySource interface {
	ListStale(ctx context.Context, now time.Time) ([]models.Activity, error)
	RecomputeStatus(ctx context.Context, id string) (models.ActivityStatus, error)
}

// StatusSweepService periodically recomputes stored activity statuses. The
// stored status column only changes when something reads or grades an
// activity, so an activity whose due date passes quietly would keep serving
// "open" until the next read. The sweep bounds that staleness to one
// interval.
type StatusSweepService struct {
	activities sweepActivitySource
	queue      *jobs.Queue
	interval   time.Duration
	logger     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStatusSweepService constructs the sweep and its backing worker queue.
func NewStatusSweepService(activities sweepActivitySource, interval time.Duration, workers int, logger *zap.Logger) *StatusSweepService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StatusSweepService{activities: activities, interval: interval, logger: logger}
	s.queue = jobs.NewQueue("status-sweep", s.handle, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return s
}

// Start launches the worker queue and the sweep ticker.
func (s *StatusSweepService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.queue.Start(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
	s.logger.Sugar().Infow("status sweep started", "interval", s.interval)
}

// Stop cancels the ticker and drains the queue.
func (s *StatusSweepService) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.queue.Stop()
}

// sweep enqueues a recomputation job for every activity whose cached status
// has gone stale.
func (s *StatusSweepService) sweep(ctx context.Context) {
	stale, err := s.activities.ListStale(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Warn("status sweep list failed", zap.Error(err))
		return
	}
	for _, activity := range stale {
		job := jobs.Job{ID: activity.ID, Type: "recompute-status", Payload: activity.ID}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("status sweep enqueue failed", zap.String("activity_id", activity.ID), zap.Error(err))
		}
	}
	if len(stale) > 0 {
		s.logger.Sugar().Infow("status sweep scheduled", "activities", len(stale))
	}
}

func (s *StatusSweepService) handle(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok {
		s.logger.Warn("status sweep job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	_, err := s.activities.RecomputeStatus(ctx, id)
	return err
}
