package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/batch-lifecycle/internal/repository"
	"gorm.io/gorm"
)

func createBatchTeachersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_batch_teachers",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BatchTeacherModel{}); err != nil {
				return err
			}
			return tx.Exec(
				`CREATE INDEX IF NOT EXISTS idx_batch_teachers_teacher_id ON batch_teachers (teacher_id)`,
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BatchTeacherModel{})
		},
	}
}
