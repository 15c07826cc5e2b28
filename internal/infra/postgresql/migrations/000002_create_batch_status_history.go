package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/batch-lifecycle/internal/repository"
	"gorm.io/gorm"
)

func createStatusHistoryTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_batch_status_history",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.StatusHistoryModel{}); err != nil {
				return err
			}
			return tx.Exec(
				`CREATE INDEX IF NOT EXISTS idx_status_history_batch_seq ON batch_status_history (batch_id, seq DESC)`,
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.StatusHistoryModel{})
		},
	}
}
