package marketplace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type BidRepo interface {
	Create(dbc dbctx.Context, rows []*types.Bid) ([]*types.Bid, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Bid, error)
	GetByCaseAndAttorney(dbc dbctx.Context, caseID, attorneyProfileID uuid.UUID) (*types.Bid, error)
	ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.Bid, error)
	ListByCaseIDs(dbc dbctx.Context, caseIDs []uuid.UUID) ([]*types.Bid, error)
	LockByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.Bid, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// RejectByIDs moves the given bids of a case from PENDING/ACCEPTED to REJECTED,
	// bumping each version once, in a single statement.
	RejectByIDs(dbc dbctx.Context, caseID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error)
	CountLiveByCaseIDs(dbc dbctx.Context, caseIDs []uuid.UUID) (map[uuid.UUID]int, error)
	LiveCaseIDsForAttorney(dbc dbctx.Context, attorneyProfileID uuid.UUID, caseIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type bidRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBidRepo(db *gorm.DB, log *logger.Logger) BidRepo {
	return &bidRepo{db: db, log: log.With("repo", "BidRepo")}
}

func (r *bidRepo) Create(dbc dbctx.Context, rows []*types.Bid) ([]*types.Bid, error) {
	if len(rows) == 0 {
		return []*types.Bid{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *bidRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Bid, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing bid id")
	}
	var out []*types.Bid
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *bidRepo) GetByCaseAndAttorney(dbc dbctx.Context, caseID, attorneyProfileID uuid.UUID) (*types.Bid, error) {
	if caseID == uuid.Nil || attorneyProfileID == uuid.Nil {
		return nil, fmt.Errorf("missing case_id or attorney_profile_id")
	}
	var out []*types.Bid
	if err := dbc.DB(r.db).
		Where("case_id = ? AND attorney_profile_id = ?", caseID, attorneyProfileID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *bidRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.Bid, error) {
	if caseID == uuid.Nil {
		return nil, fmt.Errorf("missing case_id")
	}
	var out []*types.Bid
	if err := dbc.DB(r.db).
		Where("case_id = ?", caseID).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bidRepo) ListByCaseIDs(dbc dbctx.Context, caseIDs []uuid.UUID) ([]*types.Bid, error) {
	if len(caseIDs) == 0 {
		return []*types.Bid{}, nil
	}
	var out []*types.Bid
	if err := dbc.DB(r.db).
		Where("case_id IN ?", caseIDs).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LockByCase locks every bid row of the case. Callers hold the case lock first.
func (r *bidRepo) LockByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.Bid, error) {
	if caseID == uuid.Nil {
		return nil, fmt.Errorf("missing case_id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByCase requires dbc.Tx")
	}
	var out []*types.Bid
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("case_id = ?", caseID).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bidRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing bid id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).Model(&types.Bid{}).Where("id = ?", id).Updates(updates).Error
}

func (r *bidRepo) RejectByIDs(dbc dbctx.Context, caseID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Model(&types.Bid{}).
		Where("case_id = ? AND id IN ? AND status IN ?", caseID, ids, []string{types.BidStatusPending, types.BidStatusAccepted}).
		Updates(map[string]interface{}{
			"status":     types.BidStatusRejected,
			"version":    gorm.Expr("version + 1"),
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *bidRepo) CountLiveByCaseIDs(dbc dbctx.Context, caseIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(caseIDs))
	if len(caseIDs) == 0 {
		return out, nil
	}
	type row struct {
		CaseID uuid.UUID
		N      int64
	}
	var rows []row
	if err := dbc.DB(r.db).Model(&types.Bid{}).
		Select("case_id, COUNT(*) AS n").
		Where("case_id IN ? AND status <> ?", caseIDs, types.BidStatusWithdrawn).
		Group("case_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, rr := range rows {
		out[rr.CaseID] = int(rr.N)
	}
	return out, nil
}

func (r *bidRepo) LiveCaseIDsForAttorney(dbc dbctx.Context, attorneyProfileID uuid.UUID, caseIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	if attorneyProfileID == uuid.Nil || len(caseIDs) == 0 {
		return out, nil
	}
	var ids []uuid.UUID
	if err := dbc.DB(r.db).Model(&types.Bid{}).
		Where("attorney_profile_id = ? AND case_id IN ? AND status <> ?", attorneyProfileID, caseIDs, types.BidStatusWithdrawn).
		Pluck("case_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
