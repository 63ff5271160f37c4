package database

import (
	"fmt"

	"gorm.io/gorm"
)

type checkConstraint struct {
	table string
	name  string
	expr  string
}

var checkConstraints = []checkConstraint{
	{"capacities", "chk_capacities_total_positive", "total_capacity > 0"},
	{"capacities", "chk_capacities_blocked_range", "blocked_seats >= 0 AND blocked_seats < total_capacity"},
	{"capacities", "chk_capacities_overbooking", "overbooking_limit >= 0"},
	{"capacities", "chk_capacities_confirmed", "confirmed_seats >= 0"},
	{"holds", "chk_holds_seat_count", "seat_count > 0"},
	{"waitlist_entries", "chk_waitlist_quantity", "quantity > 0"},
}

// MigrateConstraints adds the database-level guards behind the seat
// arithmetic. Only PostgreSQL gets them; the sqlite test databases rely on
// the version check alone.
func MigrateConstraints(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	for _, c := range checkConstraints {
		var exists bool
		err := db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name).
			Scan(&exists).Error
		if err != nil {
			return fmt.Errorf("failed to look up constraint %s: %w", c.name, err)
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)`, c.table, c.name, c.expr)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add constraint %s: %w", c.name, err)
		}
	}

	// active holds are what every availability query sums
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_holds_active_partial
		ON holds (capacity_id, expires_at)
		WHERE released_at IS NULL;
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create active holds index: %w", err)
	}

	return nil
}
