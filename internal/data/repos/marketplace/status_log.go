package marketplace

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type CaseStatusLogRepo interface {
	Create(dbc dbctx.Context, rows []*types.CaseStatusLog) ([]*types.CaseStatusLog, error)
	ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.CaseStatusLog, error)
}

type caseStatusLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseStatusLogRepo(db *gorm.DB, log *logger.Logger) CaseStatusLogRepo {
	return &caseStatusLogRepo{db: db, log: log.With("repo", "CaseStatusLogRepo")}
}

func (r *caseStatusLogRepo) Create(dbc dbctx.Context, rows []*types.CaseStatusLog) ([]*types.CaseStatusLog, error) {
	if len(rows) == 0 {
		return []*types.CaseStatusLog{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *caseStatusLogRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.CaseStatusLog, error) {
	if caseID == uuid.Nil {
		return nil, fmt.Errorf("missing case_id")
	}
	var out []*types.CaseStatusLog
	if err := dbc.DB(r.db).
		Where("case_id = ?", caseID).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
