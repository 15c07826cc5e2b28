package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
	"github.com/kursadbilgin/batch-lifecycle/internal/lifecycle"
	"github.com/kursadbilgin/batch-lifecycle/internal/observability"
	"github.com/kursadbilgin/batch-lifecycle/internal/queue"
	"github.com/kursadbilgin/batch-lifecycle/internal/repository"
	"go.uber.org/zap"
)

// manualCommitRetries bounds the read-validate-commit loop when a concurrent
// writer wins the compare-and-set. After that the conflict surfaces.
const manualCommitRetries = 3

// BatchService is the coordinator-facing side of the engine: batch creation,
// manual overrides, rollback, and the read facade.
type BatchService struct {
	batches   repository.BatchRepository
	roster    repository.RosterRepository
	publisher queue.Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewBatchService(
	batches repository.BatchRepository,
	roster repository.RosterRepository,
	publisher queue.Publisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*BatchService, error) {
	if batches == nil {
		return nil, fmt.Errorf("batch repository is required")
	}
	if roster == nil {
		return nil, fmt.Errorf("roster repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchService{
		batches:   batches,
		roster:    roster,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Create stores a new batch in UPCOMING with auto-update enabled and an
// empty history. History starts with the first committed transition.
func (s *BatchService) Create(ctx context.Context, b *domain.Batch) (*domain.Batch, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b == nil {
		return nil, fmt.Errorf("%w: batch is required", domain.ErrValidation)
	}

	b.Name = strings.TrimSpace(b.Name)
	b.CourseID = strings.TrimSpace(b.CourseID)
	b.ID = strings.TrimSpace(b.ID)
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	b.Status = domain.StatusUpcoming
	b.IsAutoUpdated = true
	b.Version = 1

	if err := b.Validate(); err != nil {
		return nil, err
	}

	if err := s.batches.Create(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

// ApplyManualTransition applies a coordinator override. The manual guard
// ignores date windows; a committed override always disables auto-update.
func (s *BatchService) ApplyManualTransition(
	ctx context.Context,
	id string,
	target domain.Status,
) (*domain.Batch, *domain.StatusHistoryEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return nil, nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	if !target.IsValid() {
		return nil, nil, fmt.Errorf("%w: invalid target status %q", domain.ErrValidation, target)
	}

	var lastErr error
	for attempt := 0; attempt < manualCommitRetries; attempt++ {
		batch, err := s.batches.GetByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}

		teacherCount, err := s.roster.TeacherCount(ctx, id)
		if err != nil {
			return nil, nil, err
		}

		if err := lifecycle.ValidateManual(batch.Status, target, teacherCount); err != nil {
			return nil, nil, err
		}

		entry := domain.StatusHistoryEntry{
			ID:          uuid.NewString(),
			BatchID:     id,
			Status:      target,
			IsAutomatic: false,
			RecordedAt:  s.now().UTC(),
		}

		updated, err := s.batches.CommitTransition(ctx, id, repository.TransitionCommit{
			ExpectedVersion: batch.Version,
			NewStatus:       target,
			IsAutoUpdated:   false,
			Entry:           entry,
		})
		if errors.Is(err, domain.ErrConflict) {
			s.metrics.IncCASConflict()
			lastErr = err
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		s.metrics.IncTransition(target.String(), false)
		publishStatusChange(ctx, s.publisher, s.metrics, s.logger, statusChange{
			batchID:     id,
			from:        batch.Status,
			to:          target,
			isAutomatic: false,
			occurredAt:  entry.RecordedAt,
		})

		return updated, &entry, nil
	}

	return nil, nil, lastErr
}

// SetAutoUpdate toggles scheduler control for a batch. It never changes the
// status and never appends history; re-enabling after an override is a
// deliberate, separate coordinator decision.
func (s *BatchService) SetAutoUpdate(ctx context.Context, id string, enabled bool) (*domain.Batch, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	return s.batches.SetAutoUpdate(ctx, id, enabled)
}

// Rollback undoes the single most recent manual transition: it restores the
// status recorded in the second-to-last history entry (or the initial
// UPCOMING when only one entry exists) and appends a manual rollback entry.
// Auto-update stays wherever it was.
func (s *BatchService) Rollback(ctx context.Context, id string) (*domain.Batch, *domain.StatusHistoryEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return nil, nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	var lastErr error
	for attempt := 0; attempt < manualCommitRetries; attempt++ {
		batch, err := s.batches.GetByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if batch.Status.IsTerminal() {
			return nil, nil, fmt.Errorf("%w: completed batches cannot be rolled back", domain.ErrAlreadyTerminal)
		}

		restore, err := s.rollbackTarget(ctx, id)
		if err != nil {
			return nil, nil, err
		}

		entry := domain.StatusHistoryEntry{
			ID:          uuid.NewString(),
			BatchID:     id,
			Status:      restore,
			IsAutomatic: false,
			IsRollback:  true,
			RecordedAt:  s.now().UTC(),
		}

		updated, err := s.batches.CommitTransition(ctx, id, repository.TransitionCommit{
			ExpectedVersion: batch.Version,
			NewStatus:       restore,
			IsAutoUpdated:   batch.IsAutoUpdated,
			Entry:           entry,
		})
		if errors.Is(err, domain.ErrConflict) {
			s.metrics.IncCASConflict()
			lastErr = err
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		s.metrics.IncRollback()
		publishStatusChange(ctx, s.publisher, s.metrics, s.logger, statusChange{
			batchID:     id,
			from:        batch.Status,
			to:          restore,
			isAutomatic: false,
			isRollback:  true,
			occurredAt:  entry.RecordedAt,
		})

		return updated, &entry, nil
	}

	return nil, nil, lastErr
}

// rollbackTarget decides what a rollback would restore. Only the most recent
// entry may be undone, only when it is manual, and never when it is itself a
// rollback entry; anything else is ErrNoRollbackAvailable.
func (s *BatchService) rollbackTarget(ctx context.Context, id string) (domain.Status, error) {
	entries, err := s.batches.LastHistory(ctx, id, 2)
	if err != nil {
		return "", err
	}

	if len(entries) == 0 {
		return "", fmt.Errorf("%w: history is empty", domain.ErrNoRollbackAvailable)
	}
	if entries[0].IsAutomatic {
		return "", fmt.Errorf("%w: last transition was automatic", domain.ErrNoRollbackAvailable)
	}
	if entries[0].IsRollback {
		return "", fmt.Errorf("%w: last entry is already a rollback", domain.ErrNoRollbackAvailable)
	}

	if len(entries) < 2 {
		return domain.StatusUpcoming, nil
	}
	return entries[1].Status, nil
}

// AssignTeacher adds a teacher to the batch roster. The lifecycle guard only
// ever reads the roster count; this is plumbing for the collaborator that
// owns assignment.
func (s *BatchService) AssignTeacher(ctx context.Context, id, teacherID string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(teacherID) == "" {
		return fmt.Errorf("%w: batch id and teacher id are required", domain.ErrValidation)
	}

	if _, err := s.batches.GetByID(ctx, id); err != nil {
		return err
	}
	return s.roster.AssignTeacher(ctx, id, strings.TrimSpace(teacherID))
}

// RemoveTeacher removes a teacher from the batch roster.
func (s *BatchService) RemoveTeacher(ctx context.Context, id, teacherID string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(teacherID) == "" {
		return fmt.Errorf("%w: batch id and teacher id are required", domain.ErrValidation)
	}

	return s.roster.RemoveTeacher(ctx, id, strings.TrimSpace(teacherID))
}

type statusChange struct {
	batchID     string
	from        domain.Status
	to          domain.Status
	isAutomatic bool
	isRollback  bool
	occurredAt  time.Time
}

// publishStatusChange emits the event for a committed transition. The store
// is the source of truth: a publish failure is logged and counted, never
// rolled back.
func publishStatusChange(
	ctx context.Context,
	publisher queue.Publisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
	change statusChange,
) {
	if publisher == nil {
		return
	}

	msg := queue.StatusChangeMessage{
		EventID:     uuid.NewString(),
		BatchID:     change.batchID,
		From:        change.from,
		To:          change.to,
		IsAutomatic: change.isAutomatic,
		IsRollback:  change.isRollback,
		OccurredAt:  change.occurredAt,
	}

	if err := publisher.Publish(ctx, msg); err != nil {
		metrics.IncEventPublishFailure()
		observability.WithContextLogger(logger, ctx).Error("failed to publish status change event",
			zap.String("batchId", change.batchID),
			zap.String("to", change.to.String()),
			zap.Error(err),
		)
	}
}
