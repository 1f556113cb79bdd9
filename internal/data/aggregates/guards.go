package aggregates

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
)

// Expect is the row state a guarded write was decided against.
type Expect struct {
	Version int
	// Statuses, when set, must contain the row's current status.
	Statuses []string
}

// VersionGuard advances versioned rows with a single conditional UPDATE.
// A write that matches no row lost a race and surfaces as a stale-state
// conflict, so the surrounding transaction rolls back.
type VersionGuard struct {
	db *gorm.DB
}

func NewVersionGuard(db *gorm.DB) VersionGuard {
	return VersionGuard{db: db}
}

// Advance applies updates and sets version to want.Version+1 when the row
// still matches want.
func (g VersionGuard) Advance(dbc dbctx.Context, table string, id uuid.UUID, want Expect, updates map[string]any) error {
	db := dbc.DB(g.db)
	switch {
	case db == nil:
		return ValidationError("guarded write needs a db handle")
	case strings.TrimSpace(table) == "" || id == uuid.Nil:
		return ValidationError("guarded write needs a table and row id")
	case want.Version < 1:
		return ValidationError(fmt.Sprintf("guarded write on %s: version %d is not valid", table, want.Version))
	}

	set := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		set[k] = v
	}
	set["version"] = want.Version + 1

	q := db.Table(table).Where("id = ? AND version = ?", id, want.Version)
	if len(want.Statuses) > 0 {
		q = q.Where("status IN ?", want.Statuses)
	}
	res := q.Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ConflictError(fmt.Sprintf("%s %s changed concurrently", table, id))
	}
	return nil
}

func oneOf(current string, allowed ...string) bool {
	current = strings.TrimSpace(current)
	for _, s := range allowed {
		if strings.EqualFold(current, s) {
			return true
		}
	}
	return false
}
