package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&course.Module{},
		&course.ProcessingStatus{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
