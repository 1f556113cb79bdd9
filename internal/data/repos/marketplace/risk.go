package marketplace

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

// RiskSignalRepo reads trust & safety signals in bulk for a candidate set.
type RiskSignalRepo interface {
	CountsByCaseIDs(dbc dbctx.Context, caseIDs []uuid.UUID) (map[uuid.UUID]types.RiskCounts, error)
}

type riskSignalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRiskSignalRepo(db *gorm.DB, log *logger.Logger) RiskSignalRepo {
	return &riskSignalRepo{db: db, log: log.With("repo", "RiskSignalRepo")}
}

type caseCount struct {
	CaseID uuid.UUID
	N      int64
}

func (r *riskSignalRepo) CountsByCaseIDs(dbc dbctx.Context, caseIDs []uuid.UUID) (map[uuid.UUID]types.RiskCounts, error) {
	out := make(map[uuid.UUID]types.RiskCounts, len(caseIDs))
	if len(caseIDs) == 0 {
		return out, nil
	}
	db := dbc.DB(r.db)

	count := func(model interface{}, extra string, args ...interface{}) ([]caseCount, error) {
		q := db.Model(model).Select("case_id, COUNT(*) AS n").Where("case_id IN ?", caseIDs)
		if extra != "" {
			q = q.Where(extra, args...)
		}
		var rows []caseCount
		err := q.Group("case_id").Scan(&rows).Error
		return rows, err
	}

	hits, err := count(&types.CaseRuleHit{}, "")
	if err != nil {
		return nil, err
	}
	reports, err := count(&types.CaseReport{}, "")
	if err != nil {
		return nil, err
	}
	// Resolved disputes no longer count against a case.
	disputes, err := count(&types.CaseDispute{}, "status <> ?", "RESOLVED")
	if err != nil {
		return nil, err
	}

	for _, h := range hits {
		rc := out[h.CaseID]
		rc.RuleHits = int(h.N)
		out[h.CaseID] = rc
	}
	for _, rp := range reports {
		rc := out[rp.CaseID]
		rc.Reports = int(rp.N)
		out[rp.CaseID] = rc
	}
	for _, d := range disputes {
		rc := out[d.CaseID]
		rc.Disputes = int(d.N)
		out[d.CaseID] = rc
	}
	return out, nil
}
