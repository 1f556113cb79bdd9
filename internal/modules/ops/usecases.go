package ops

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/data/repos"
	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/observability"
	"github.com/yungbote/casehall-backend/internal/platform/apierr"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/casehall-backend/internal/modules/ops")

const (
	defaultPageSize    = 25
	maxPageSize        = 100
	defaultFetchWindow = 500
)

// DocumentSource returns the raw config document of a feed key, or nil when
// none is stored.
type DocumentSource interface {
	Document(ctx context.Context, feedKey string) ([]byte, error)
}

type UsecasesDeps struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Metrics *observability.Metrics

	Cases         repos.CaseRepo
	Bids          repos.BidRepo
	Conversations repos.ConversationRepo

	Config      DocumentSource
	FetchWindow int
	Now         func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.FetchWindow <= 0 {
		deps.FetchWindow = defaultFetchWindow
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps}
}

type Query struct {
	Tag      string
	Statuses []string
	Category string
	Page     int
	PageSize int
}

type Item struct {
	Case     *types.Case `json:"case"`
	BidCount int         `json:"bid_count"`
	Priority float64     `json:"priority"`
	Tags     []string    `json:"tags"`
}

type Page struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	HasMore    bool   `json:"has_more"`
	// ConfigActive is false when defaults were used.
	ConfigActive bool `json:"config_active"`
}

func (q Query) normalize() (Query, error) {
	q.Tag = strings.TrimSpace(q.Tag)
	q.Category = strings.TrimSpace(q.Category)
	if len(q.Statuses) == 0 {
		q.Statuses = []string{types.CaseStatusOpen, types.CaseStatusMatching}
	}
	for i, s := range q.Statuses {
		s = strings.ToUpper(strings.TrimSpace(s))
		switch s {
		case types.CaseStatusOpen, types.CaseStatusMatching, types.CaseStatusClosed, types.CaseStatusCancelled:
		default:
			return q, fmt.Errorf("unknown status %q", s)
		}
		q.Statuses[i] = s
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}
	if q.Page < 1 || q.PageSize < 1 || q.PageSize > maxPageSize {
		return q, fmt.Errorf("page must be >= 1 and pageSize between 1 and %d", maxPageSize)
	}
	return q, nil
}

// LoadConfig falls back to defaults on any read or decode problem.
func (u Usecases) LoadConfig(ctx context.Context) (Config, bool) {
	if u.deps.Config == nil {
		return DefaultConfig(), false
	}
	raw, err := u.deps.Config.Document(ctx, types.FeedKeyOpsPriority)
	if err != nil || raw == nil {
		if err != nil {
			u.deps.Log.Warn("ops config read failed; using defaults", "error", err)
		}
		return DefaultConfig(), false
	}
	cfg, err := DecodeConfig(raw, false)
	if err != nil {
		u.deps.Log.Warn("ops config malformed; using defaults", "error", err)
		return DefaultConfig(), false
	}
	return cfg, true
}

// ListPriorities ranks cases for the admin queue.
func (u Usecases) ListPriorities(ctx context.Context, q Query) (page Page, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Ops.ListPriorities")
	defer span.End()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		u.deps.Metrics.ObserveOpsPriority(status, page.Total, time.Since(start))
	}()

	q, err = q.normalize()
	if err != nil {
		return Page{}, apierr.BadRequest("INVALID_OPS_QUERY", err)
	}
	now := u.deps.Now().UTC()
	cfg, active := u.LoadConfig(ctx)

	cases, err := u.deps.Cases.ListCandidates(dbctx.Background(ctx), repos.CaseFilter{
		Statuses: q.Statuses,
		Category: q.Category,
	}, u.deps.FetchWindow)
	if err != nil {
		u.deps.Log.Error("ops candidates failed", "error", err)
		return Page{}, apierr.Internal("OPS_FAILED")
	}
	span.SetAttributes(attribute.Int("ops.candidates", len(cases)))

	ids := make([]uuid.UUID, 0, len(cases))
	var selected []uuid.UUID
	for _, c := range cases {
		ids = append(ids, c.ID)
		if c.SelectedBidID != nil {
			selected = append(selected, *c.SelectedBidID)
		}
	}
	bidCounts := map[uuid.UUID]int{}
	convByBid := map[uuid.UUID]*types.Conversation{}
	if len(ids) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			bidCounts, err = u.deps.Bids.CountLiveByCaseIDs(dbctx.Background(gctx), ids)
			return err
		})
		if len(selected) > 0 {
			g.Go(func() error {
				rows, err := u.deps.Conversations.ListByBidIDs(dbctx.Background(gctx), selected)
				if err != nil {
					return err
				}
				for _, r := range rows {
					convByBid[r.BidID] = r
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			u.deps.Log.Error("ops bulk reads failed", "error", err)
			return Page{}, apierr.Internal("OPS_FAILED")
		}
	}

	items := make([]Item, 0, len(cases))
	for _, c := range cases {
		sig := Signals{Case: c, BidCount: bidCounts[c.ID]}
		if c.SelectedBidID != nil {
			sig.Conversation = convByBid[*c.SelectedBidID]
		}
		score, tags := Priority(sig, cfg, now)
		if q.Tag != "" && !containsTag(tags, q.Tag) {
			continue
		}
		items = append(items, Item{Case: c, BidCount: sig.BidCount, Priority: score, Tags: tags})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		ci, cj := items[i].Case.CreatedAt, items[j].Case.CreatedAt
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return items[i].Case.ID.String() < items[j].Case.ID.String()
	})

	total := len(items)
	from := min((q.Page-1)*q.PageSize, total)
	to := min(from+q.PageSize, total)
	return Page{
		Items:        items[from:to],
		Page:         q.Page,
		PageSize:     q.PageSize,
		Total:        total,
		TotalPages:   (total + q.PageSize - 1) / q.PageSize,
		HasMore:      to < total,
		ConfigActive: active,
	}, nil
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
