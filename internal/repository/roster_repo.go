package repository

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RosterRepository answers the teacher roster of a batch. The lifecycle
// engine only ever consumes the count; assignment endpoints are thin plumbing
// around the same table.
type RosterRepository interface {
	TeacherCount(ctx context.Context, batchID string) (int, error)
	ListTeachers(ctx context.Context, batchID string) ([]string, error)
	AssignTeacher(ctx context.Context, batchID, teacherID string) error
	RemoveTeacher(ctx context.Context, batchID, teacherID string) error
}

type GormRosterRepo struct {
	db *gorm.DB
}

func NewGormRosterRepo(db *gorm.DB) *GormRosterRepo {
	return &GormRosterRepo{db: db}
}

func (r *GormRosterRepo) TeacherCount(ctx context.Context, batchID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&BatchTeacherModel{}).
		Where("batch_id = ?", batchID).
		Count(&count).Error
	if err != nil {
		return 0, mapStoreError(err)
	}
	return int(count), nil
}

func (r *GormRosterRepo) ListTeachers(ctx context.Context, batchID string) ([]string, error) {
	var teacherIDs []string
	err := r.db.WithContext(ctx).
		Model(&BatchTeacherModel{}).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Pluck("teacher_id", &teacherIDs).Error
	if err != nil {
		return nil, mapStoreError(err)
	}
	return teacherIDs, nil
}

func (r *GormRosterRepo) AssignTeacher(ctx context.Context, batchID, teacherID string) error {
	model := BatchTeacherModel{BatchID: batchID, TeacherID: teacherID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
	if err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (r *GormRosterRepo) RemoveTeacher(ctx context.Context, batchID, teacherID string) error {
	result := r.db.WithContext(ctx).
		Where("batch_id = ? AND teacher_id = ?", batchID, teacherID).
		Delete(&BatchTeacherModel{})
	if result.Error != nil {
		return mapStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: teacher not assigned to batch", domain.ErrNotFound)
	}
	return nil
}
