package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/casehall-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.AllModels()...); err != nil {
		return err
	}
	return EnsureMarketplaceIndexes(db)
}

// EnsureMarketplaceIndexes adds indexes gorm tags cannot express. The statements
// are portable between Postgres and SQLite.
func EnsureMarketplaceIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			// At most one ACCEPTED bid per case, enforced by the database as well.
			name: "idx_bid_one_accepted_per_case",
			sql:  `CREATE UNIQUE INDEX IF NOT EXISTS idx_bid_one_accepted_per_case ON bid(case_id) WHERE status = 'ACCEPTED'`,
		},
		{
			name: "idx_case_posting_feed",
			sql:  `CREATE INDEX IF NOT EXISTS idx_case_posting_feed ON case_posting(status, created_at DESC)`,
		},
		{
			name: "idx_bid_attorney_case",
			sql:  `CREATE INDEX IF NOT EXISTS idx_bid_attorney_case ON bid(attorney_profile_id, case_id)`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
