package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
	"github.com/kursadbilgin/batch-lifecycle/internal/lifecycle"
	"github.com/kursadbilgin/batch-lifecycle/internal/lock"
	"github.com/kursadbilgin/batch-lifecycle/internal/observability"
	"github.com/kursadbilgin/batch-lifecycle/internal/queue"
	"github.com/kursadbilgin/batch-lifecycle/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultSweepInterval  = time.Minute
	defaultSweepScanLimit = 200
)

// Scheduler periodically advances auto-updated batches whose date guards are
// due. Each sweep moves a batch at most one step; a batch far behind the
// clock catches up over consecutive ticks, so every step gets its own
// history entry and event.
type Scheduler struct {
	batches   repository.BatchRepository
	roster    repository.RosterRepository
	publisher queue.Publisher
	sweepLock lock.SweepLock
	metrics   *observability.Metrics
	logger    *zap.Logger
	interval  time.Duration
	limit     int
	now       func() time.Time
}

func NewScheduler(
	batches repository.BatchRepository,
	roster repository.RosterRepository,
	publisher queue.Publisher,
	sweepLock lock.SweepLock,
	interval time.Duration,
	limit int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Scheduler, error) {
	if batches == nil {
		return nil, fmt.Errorf("batch repository is required")
	}
	if roster == nil {
		return nil, fmt.Errorf("roster repository is required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if limit <= 0 {
		limit = defaultSweepScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		batches:   batches,
		roster:    roster,
		publisher: publisher,
		sweepLock: sweepLock,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		limit:     limit,
		now:       time.Now,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial sweep so already-due batches do not wait for the first
	// ticker edge.
	if err := s.sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduler initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("scheduler sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) error {
	if s.sweepLock != nil {
		release, acquired, err := s.sweepLock.TryAcquire(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire sweep lease: %w", err)
		}
		if !acquired {
			s.logger.Debug("sweep lease held elsewhere, skipping sweep")
			return nil
		}
		defer func() {
			if err := release(ctx); err != nil {
				s.logger.Warn("failed to release sweep lease", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	dueBatches, err := s.batches.ListDueForAutoUpdate(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("failed to list batches for auto update: %w", err)
	}
	s.metrics.AddSweepBatchesExamined(len(dueBatches))

	for i := range dueBatches {
		s.advance(ctx, &dueBatches[i])
	}

	s.metrics.ObserveSweepDuration(time.Since(start))
	return nil
}

// advance applies at most one due transition to a single batch. Errors are
// per-batch: a conflict waits for the next tick, anything else is logged and
// the sweep moves on, so one bad record cannot halt the pass.
func (s *Scheduler) advance(ctx context.Context, b *domain.Batch) {
	teacherCount, err := s.roster.TeacherCount(ctx, b.ID)
	if err != nil {
		s.logger.Error("failed to read teacher roster",
			zap.String("batchId", b.ID),
			zap.Error(err),
		)
		return
	}

	target, due := lifecycle.AutoDue(b, teacherCount, s.now().UTC())
	if !due {
		return
	}

	entry := domain.StatusHistoryEntry{
		ID:          uuid.NewString(),
		BatchID:     b.ID,
		Status:      target,
		IsAutomatic: true,
		RecordedAt:  s.now().UTC(),
	}

	_, err = s.batches.CommitTransition(ctx, b.ID, repository.TransitionCommit{
		ExpectedVersion: b.Version,
		NewStatus:       target,
		IsAutoUpdated:   b.IsAutoUpdated,
		Entry:           entry,
	})
	if errors.Is(err, domain.ErrConflict) {
		s.metrics.IncCASConflict()
		s.logger.Debug("lost transition commit race, retrying next tick",
			zap.String("batchId", b.ID),
			zap.String("target", target.String()),
		)
		return
	}
	if err != nil {
		s.logger.Error("failed to commit automatic transition",
			zap.String("batchId", b.ID),
			zap.String("target", target.String()),
			zap.Error(err),
		)
		return
	}

	s.metrics.IncTransition(target.String(), true)
	s.logger.Info("automatic transition applied",
		zap.String("batchId", b.ID),
		zap.String("from", b.Status.String()),
		zap.String("to", target.String()),
	)

	publishStatusChange(ctx, s.publisher, s.metrics, s.logger, statusChange{
		batchID:     b.ID,
		from:        b.Status,
		to:          target,
		isAutomatic: true,
		occurredAt:  entry.RecordedAt,
	})
}
