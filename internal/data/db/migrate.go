package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
)

// Models lists every table this service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&briefs.BriefVersion{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
