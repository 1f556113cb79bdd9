package marketplace

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

// CaseFilter narrows feed candidates. Zero values mean "no constraint".
type CaseFilter struct {
	Statuses  []string
	Category  string
	StateCode string
	ZipPrefix string
	Urgency   string
	FeeMode   string
	BudgetMin *int64
	BudgetMax *int64

	DeadlineAfter  *time.Time
	DeadlineBefore *time.Time
	// QuoteableAt keeps cases with no deadline or a deadline after this instant.
	QuoteableAt *time.Time
	// BidByAttorneyID keeps cases the attorney holds a live bid on.
	BidByAttorneyID *uuid.UUID
}

// SelectionDrift is a case whose denormalized selection disagrees with bid state.
type SelectionDrift struct {
	CaseID        uuid.UUID  `json:"case_id"`
	SelectedBidID *uuid.UUID `json:"selected_bid_id,omitempty"`
	AcceptedBidID *uuid.UUID `json:"accepted_bid_id,omitempty"`
	Problem       string     `json:"problem"`
}

type CaseRepo interface {
	Create(dbc dbctx.Context, rows []*types.Case) ([]*types.Case, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Case, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Case, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Case, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListCandidates(dbc dbctx.Context, f CaseFilter, limit int) ([]*types.Case, error)
	FindSelectionDrift(dbc dbctx.Context, limit int) ([]SelectionDrift, error)
}

type caseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseRepo(db *gorm.DB, log *logger.Logger) CaseRepo {
	return &caseRepo{db: db, log: log.With("repo", "CaseRepo")}
}

func (r *caseRepo) Create(dbc dbctx.Context, rows []*types.Case) ([]*types.Case, error) {
	if len(rows) == 0 {
		return []*types.Case{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *caseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Case, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing case id")
	}
	var out []*types.Case
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *caseRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Case, error) {
	if len(ids) == 0 {
		return []*types.Case{}, nil
	}
	var out []*types.Case
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LockByID takes a row lock on the case; nil when the case does not exist.
func (r *caseRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Case, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing case id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID requires dbc.Tx")
	}
	var out []*types.Case
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *caseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing case id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).Model(&types.Case{}).Where("id = ?", id).Updates(updates).Error
}

// ListCandidates returns filtered cases newest first, bounded by limit.
func (r *caseRepo) ListCandidates(dbc dbctx.Context, f CaseFilter, limit int) ([]*types.Case, error) {
	if limit <= 0 {
		limit = 300
	}
	q := dbc.DB(r.db).Model(&types.Case{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if v := strings.TrimSpace(f.Category); v != "" {
		q = q.Where("category = ?", v)
	}
	if v := strings.TrimSpace(f.StateCode); v != "" {
		q = q.Where("state_code = ?", strings.ToUpper(v))
	}
	if v := strings.TrimSpace(f.ZipPrefix); v != "" {
		q = q.Where("zip LIKE ?", v+"%")
	}
	if v := strings.TrimSpace(f.Urgency); v != "" {
		q = q.Where("urgency = ?", strings.ToUpper(v))
	}
	if v := strings.TrimSpace(f.FeeMode); v != "" {
		q = q.Where("fee_mode = ?", strings.ToUpper(v))
	}
	// Budget ranges overlap when the case max reaches the floor and the case min stays under the ceiling.
	if f.BudgetMin != nil {
		q = q.Where("(budget_max IS NULL OR budget_max >= ?)", *f.BudgetMin)
	}
	if f.BudgetMax != nil {
		q = q.Where("(budget_min IS NULL OR budget_min <= ?)", *f.BudgetMax)
	}
	if f.DeadlineAfter != nil {
		q = q.Where("quote_deadline IS NOT NULL AND quote_deadline > ?", *f.DeadlineAfter)
	}
	if f.DeadlineBefore != nil {
		q = q.Where("quote_deadline IS NOT NULL AND quote_deadline <= ?", *f.DeadlineBefore)
	}
	if f.QuoteableAt != nil {
		q = q.Where("(quote_deadline IS NULL OR quote_deadline > ?)", *f.QuoteableAt)
	}
	if f.BidByAttorneyID != nil && *f.BidByAttorneyID != uuid.Nil {
		sub := dbc.DB(r.db).Model(&types.Bid{}).
			Select("case_id").
			Where("attorney_profile_id = ? AND status <> ?", *f.BidByAttorneyID, types.BidStatusWithdrawn)
		q = q.Where("id IN (?)", sub)
	}
	var out []*types.Case
	if err := q.Order("created_at DESC").Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindSelectionDrift reports cases where selected_bid_id and the ACCEPTED bid disagree.
func (r *caseRepo) FindSelectionDrift(dbc dbctx.Context, limit int) ([]SelectionDrift, error) {
	if limit <= 0 {
		limit = 500
	}
	db := dbc.DB(r.db)

	type danglingRow struct {
		ID            uuid.UUID
		SelectedBidID *uuid.UUID
	}
	var dangling []danglingRow
	if err := db.Raw(`
		SELECT c.id, c.selected_bid_id
		FROM case_posting c
		WHERE c.selected_bid_id IS NOT NULL
		  AND NOT EXISTS (
		    SELECT 1 FROM bid b
		    WHERE b.id = c.selected_bid_id AND b.case_id = c.id AND b.status = ?
		  )
		ORDER BY c.id
		LIMIT ?`, types.BidStatusAccepted, limit).Scan(&dangling).Error; err != nil {
		return nil, err
	}

	type orphanRow struct {
		CaseID        uuid.UUID
		BidID         uuid.UUID
		SelectedBidID *uuid.UUID
	}
	var orphans []orphanRow
	if err := db.Raw(`
		SELECT b.case_id, b.id AS bid_id, c.selected_bid_id
		FROM bid b
		JOIN case_posting c ON c.id = b.case_id
		WHERE b.status = ?
		  AND (c.selected_bid_id IS NULL OR c.selected_bid_id <> b.id)
		ORDER BY b.case_id
		LIMIT ?`, types.BidStatusAccepted, limit).Scan(&orphans).Error; err != nil {
		return nil, err
	}

	out := make([]SelectionDrift, 0, len(dangling)+len(orphans))
	for _, d := range dangling {
		out = append(out, SelectionDrift{
			CaseID:        d.ID,
			SelectedBidID: d.SelectedBidID,
			Problem:       "selected bid is not an accepted bid of this case",
		})
	}
	for _, o := range orphans {
		bidID := o.BidID
		out = append(out, SelectionDrift{
			CaseID:        o.CaseID,
			SelectedBidID: o.SelectedBidID,
			AcceptedBidID: &bidID,
			Problem:       "accepted bid is not the case selection",
		})
	}
	return out, nil
}
