package repository

import (
	"time"

	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
)

// BatchModel is the persistence model for the batches table. Version backs
// the optimistic compare-and-set on every lifecycle mutation.
type BatchModel struct {
	ID                  string        `gorm:"type:uuid;primaryKey"`
	CourseID            string        `gorm:"type:uuid;not null"`
	Name                string        `gorm:"type:varchar(255);not null"`
	Status              domain.Status `gorm:"type:varchar(20);not null"`
	EnrollmentStartDate time.Time     `gorm:"type:timestamptz;not null"`
	EnrollmentEndDate   time.Time     `gorm:"type:timestamptz;not null"`
	BatchStartDate      time.Time     `gorm:"type:timestamptz;not null"`
	BatchEndDate        time.Time     `gorm:"type:timestamptz;not null"`
	MaxStudents         int           `gorm:"not null"`
	EnrollmentCount     int           `gorm:"not null;default:0"`
	IsAutoUpdated       bool          `gorm:"not null;default:true"`
	Version             int64         `gorm:"not null;default:1"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (BatchModel) TableName() string {
	return "batches"
}

// StatusHistoryModel is the persistence model for the append-only status
// history log. Seq is a BIGSERIAL primary key, so commit order is the log
// order regardless of how close the recorded timestamps are.
type StatusHistoryModel struct {
	Seq         int64         `gorm:"primaryKey;autoIncrement"`
	ID          string        `gorm:"type:uuid;not null;uniqueIndex"`
	BatchID     string        `gorm:"type:uuid;not null"`
	Status      domain.Status `gorm:"type:varchar(20);not null"`
	IsAutomatic bool          `gorm:"not null"`
	IsRollback  bool          `gorm:"not null;default:false"`
	RecordedAt  time.Time     `gorm:"type:timestamptz;not null"`
}

func (StatusHistoryModel) TableName() string {
	return "batch_status_history"
}

// BatchTeacherModel is the persistence model for the batch-teacher roster.
type BatchTeacherModel struct {
	BatchID   string `gorm:"type:uuid;primaryKey"`
	TeacherID string `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func (BatchTeacherModel) TableName() string {
	return "batch_teachers"
}

func batchModelFromDomain(b *domain.Batch) *BatchModel {
	if b == nil {
		return nil
	}

	return &BatchModel{
		ID:                  b.ID,
		CourseID:            b.CourseID,
		Name:                b.Name,
		Status:              b.Status,
		EnrollmentStartDate: b.EnrollmentStartDate,
		EnrollmentEndDate:   b.EnrollmentEndDate,
		BatchStartDate:      b.BatchStartDate,
		BatchEndDate:        b.BatchEndDate,
		MaxStudents:         b.MaxStudents,
		EnrollmentCount:     b.EnrollmentCount,
		IsAutoUpdated:       b.IsAutoUpdated,
		Version:             b.Version,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func batchModelToDomain(m *BatchModel) *domain.Batch {
	if m == nil {
		return nil
	}

	return &domain.Batch{
		ID:                  m.ID,
		CourseID:            m.CourseID,
		Name:                m.Name,
		Status:              m.Status,
		EnrollmentStartDate: m.EnrollmentStartDate,
		EnrollmentEndDate:   m.EnrollmentEndDate,
		BatchStartDate:      m.BatchStartDate,
		BatchEndDate:        m.BatchEndDate,
		MaxStudents:         m.MaxStudents,
		EnrollmentCount:     m.EnrollmentCount,
		IsAutoUpdated:       m.IsAutoUpdated,
		Version:             m.Version,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func historyModelFromDomain(e *domain.StatusHistoryEntry) *StatusHistoryModel {
	if e == nil {
		return nil
	}

	return &StatusHistoryModel{
		Seq:         e.Seq,
		ID:          e.ID,
		BatchID:     e.BatchID,
		Status:      e.Status,
		IsAutomatic: e.IsAutomatic,
		IsRollback:  e.IsRollback,
		RecordedAt:  e.RecordedAt,
	}
}

func historyModelToDomain(m *StatusHistoryModel) *domain.StatusHistoryEntry {
	if m == nil {
		return nil
	}

	return &domain.StatusHistoryEntry{
		Seq:         m.Seq,
		ID:          m.ID,
		BatchID:     m.BatchID,
		Status:      m.Status,
		IsAutomatic: m.IsAutomatic,
		IsRollback:  m.IsRollback,
		RecordedAt:  m.RecordedAt,
	}
}
