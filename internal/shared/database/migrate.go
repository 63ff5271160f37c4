package database

import (
	"tripstock/internal/capacity"
	"tripstock/internal/holds"
	"tripstock/internal/waitlist"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&capacity.Capacity{},
		&holds.Hold{},
		&waitlist.Entry{},
	); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
