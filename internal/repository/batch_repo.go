package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	Status   *domain.Status
	CourseID *string
	Page     int
	PageSize int
}

// TransitionCommit describes a single atomic lifecycle mutation: the status
// row update guarded by ExpectedVersion plus the history append, committed in
// one transaction.
type TransitionCommit struct {
	ExpectedVersion int64
	NewStatus       domain.Status
	IsAutoUpdated   bool
	Entry           domain.StatusHistoryEntry
}

type BatchRepository interface {
	Create(ctx context.Context, b *domain.Batch) error
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	List(ctx context.Context, params ListParams) ([]domain.Batch, int64, error)
	ListDueForAutoUpdate(ctx context.Context, limit int) ([]domain.Batch, error)
	CommitTransition(ctx context.Context, id string, commit TransitionCommit) (*domain.Batch, error)
	SetAutoUpdate(ctx context.Context, id string, enabled bool) (*domain.Batch, error)
	History(ctx context.Context, id string) ([]domain.StatusHistoryEntry, error)
	LastHistory(ctx context.Context, id string, n int) ([]domain.StatusHistoryEntry, error)
}

type GormBatchRepo struct {
	db *gorm.DB
}

func NewGormBatchRepo(db *gorm.DB) *GormBatchRepo {
	return &GormBatchRepo{db: db}
}

func (r *GormBatchRepo) Create(ctx context.Context, b *domain.Batch) error {
	model := batchModelFromDomain(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return mapStoreError(err)
	}
	if b != nil {
		*b = *batchModelToDomain(model)
	}
	return nil
}

func (r *GormBatchRepo) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	var model BatchModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, mapStoreError(err)
	}
	return batchModelToDomain(&model), nil
}

func (r *GormBatchRepo) List(ctx context.Context, params ListParams) ([]domain.Batch, int64, error) {
	query := r.db.WithContext(ctx).Model(&BatchModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.CourseID != nil {
		query = query.Where("course_id = ?", *params.CourseID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, mapStoreError(err)
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []BatchModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, mapStoreError(err)
	}

	batches := make([]domain.Batch, 0, len(models))
	for i := range models {
		batches = append(batches, *batchModelToDomain(&models[i]))
	}

	return batches, total, nil
}

func (r *GormBatchRepo) ListDueForAutoUpdate(ctx context.Context, limit int) ([]domain.Batch, error) {
	var models []BatchModel
	err := r.db.WithContext(ctx).
		Where("is_auto_updated AND status <> ?", domain.StatusCompleted).
		Order("updated_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, mapStoreError(err)
	}

	batches := make([]domain.Batch, 0, len(models))
	for i := range models {
		batches = append(batches, *batchModelToDomain(&models[i]))
	}

	return batches, nil
}

// CommitTransition applies the status mutation and appends the history entry
// as one transaction. The row update is guarded by the expected version, so a
// concurrent writer loses with ErrConflict instead of silently overwriting.
func (r *GormBatchRepo) CommitTransition(ctx context.Context, id string, commit TransitionCommit) (*domain.Batch, error) {
	var updated BatchModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&BatchModel{}).
			Where("id = ? AND version = ?", id, commit.ExpectedVersion).
			Updates(map[string]any{
				"status":          commit.NewStatus,
				"is_auto_updated": commit.IsAutoUpdated,
				"version":         gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&BatchModel{}).Where("id = ?", id).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}

		entry := commit.Entry
		entry.BatchID = id
		model := historyModelFromDomain(&entry)
		model.Seq = 0
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	return batchModelToDomain(&updated), nil
}

func (r *GormBatchRepo) SetAutoUpdate(ctx context.Context, id string, enabled bool) (*domain.Batch, error) {
	result := r.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_auto_updated": enabled,
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, mapStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *GormBatchRepo) History(ctx context.Context, id string) ([]domain.StatusHistoryEntry, error) {
	var models []StatusHistoryModel
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", id).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, mapStoreError(err)
	}

	entries := make([]domain.StatusHistoryEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *historyModelToDomain(&models[i]))
	}

	return entries, nil
}

// LastHistory returns up to n entries, newest first.
func (r *GormBatchRepo) LastHistory(ctx context.Context, id string, n int) ([]domain.StatusHistoryEntry, error) {
	var models []StatusHistoryModel
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", id).
		Order("seq DESC").
		Limit(n).
		Find(&models).Error
	if err != nil {
		return nil, mapStoreError(err)
	}

	entries := make([]domain.StatusHistoryEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *historyModelToDomain(&models[i]))
	}

	return entries, nil
}

// mapStoreError surfaces store timeouts as ErrStoreUnavailable; retrying
// them silently risks duplicate history entries.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ErrStoreUnavailable
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrStoreUnavailable
	}

	return err
}
