package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/studentdiary-backend/internal/domain/diary"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&diary.Entry{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Running database migrations")
	return AutoMigrateAll(s.db)
}
