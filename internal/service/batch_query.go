package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
	"github.com/kursadbilgin/batch-lifecycle/internal/lifecycle"
	"github.com/kursadbilgin/batch-lifecycle/internal/repository"
)

// StatusView is the read-model for a batch: current status plus the progress
// metric computed at call time against the clock. The percentage is never
// cached.
type StatusView struct {
	BatchID       string
	Status        domain.Status
	IsAutoUpdated bool
	Progress      int
}

// NextActionView tells a caller what the single legal next transition is and
// whether it is automatically eligible, manually eligible, or blocked.
type NextActionView struct {
	BatchID     string
	Target      *domain.Status
	Eligibility lifecycle.Eligibility
	Reason      string
}

// RollbackEligibilityView reports whether a rollback would succeed and what
// status it would restore, without mutating anything.
type RollbackEligibilityView struct {
	BatchID    string
	Eligible   bool
	RestoresTo *domain.Status
}

func (s *BatchService) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	return s.batches.GetByID(ctx, strings.TrimSpace(id))
}

func (s *BatchService) List(ctx context.Context, params repository.ListParams) ([]domain.Batch, int64, error) {
	return s.batches.List(ctx, params)
}

func (s *BatchService) History(ctx context.Context, id string) ([]domain.StatusHistoryEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	if _, err := s.batches.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.batches.History(ctx, id)
}

func (s *BatchService) ListTeachers(ctx context.Context, id string) ([]string, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	if _, err := s.batches.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.roster.ListTeachers(ctx, id)
}

func (s *BatchService) GetStatus(ctx context.Context, id string) (*StatusView, error) {
	batch, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &StatusView{
		BatchID:       batch.ID,
		Status:        batch.Status,
		IsAutoUpdated: batch.IsAutoUpdated,
		Progress:      lifecycle.Progress(batch, s.now().UTC()),
	}, nil
}

func (s *BatchService) GetNextAction(ctx context.Context, id string) (*NextActionView, error) {
	batch, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	teacherCount, err := s.roster.TeacherCount(ctx, batch.ID)
	if err != nil {
		return nil, err
	}

	action := lifecycle.Classify(batch, teacherCount, s.now().UTC())

	view := &NextActionView{
		BatchID:     batch.ID,
		Eligibility: action.Eligibility,
		Reason:      action.Reason,
	}
	if action.Eligibility != lifecycle.EligibilityNone {
		target := action.Target
		view.Target = &target
	}

	return view, nil
}

func (s *BatchService) GetRollbackEligibility(ctx context.Context, id string) (*RollbackEligibilityView, error) {
	batch, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &RollbackEligibilityView{BatchID: batch.ID}
	if batch.Status.IsTerminal() {
		return view, nil
	}

	restore, err := s.rollbackTarget(ctx, batch.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoRollbackAvailable) {
			return view, nil
		}
		return nil, err
	}

	view.Eligible = true
	view.RestoresTo = &restore
	return view, nil
}
