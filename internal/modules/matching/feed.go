package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/apierr"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
)

var tracer = otel.Tracer("github.com/yungbote/casehall-backend/internal/modules/matching")

// FeedPage is one page of the case hall.
type FeedPage struct {
	Items      []*ScoredCase `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
	HasMore    bool          `json:"has_more"`

	// Set only for sort=recommended.
	Variant       Variant `json:"variant,omitempty"`
	RankingActive *bool   `json:"ranking_active,omitempty"`
}

// BuildFeed assembles the ranked, filtered and paginated case hall for an attorney.
func (u Usecases) BuildFeed(ctx context.Context, attorneyProfileID uuid.UUID, q FeedQuery) (page FeedPage, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Matching.BuildFeed")
	defer span.End()

	q, err = q.Normalize()
	if err != nil {
		return FeedPage{}, apierr.BadRequest("INVALID_FEED_QUERY", err)
	}
	if attorneyProfileID == uuid.Nil {
		return FeedPage{}, apierr.Forbidden("ATTORNEY_REQUIRED", fmt.Errorf("attorney profile required"))
	}
	span.SetAttributes(attribute.String("feed.sort", q.Sort))

	variant := VariantA
	candidates := 0
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.SetStatus(codes.Error, err.Error())
		}
		u.deps.Metrics.ObserveFeedBuild(string(variant), q.Sort, status, candidates, time.Since(start))
	}()

	now := u.deps.Now().UTC()
	dbc := dbctx.Background(ctx)

	var (
		profile *types.AttorneyProfile
		load    int
		cfg     RankingConfig
		active  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := u.deps.Attorneys.GetByID(dbctx.Background(gctx), attorneyProfileID)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		n, err := u.deps.Conversations.CountOpenByAttorney(dbctx.Background(gctx), attorneyProfileID)
		if err != nil {
			return err
		}
		m, err := u.deps.Engagements.CountPendingByAttorney(dbctx.Background(gctx), attorneyProfileID)
		if err != nil {
			return err
		}
		load = n + m
		return nil
	})
	g.Go(func() error {
		cfg, active = u.LoadRankingConfig(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		u.deps.Log.Error("feed attorney context failed", "attorney_profile_id", attorneyProfileID, "error", err)
		return FeedPage{}, apierr.Internal("FEED_FAILED")
	}
	if profile == nil {
		return FeedPage{}, apierr.NotFound("ATTORNEY_PROFILE_NOT_FOUND", fmt.Errorf("attorney profile not found"))
	}
	ac := NewAttorneyContext(profile, load)
	if q.Sort == SortRecommended {
		variant = AssignVariant(attorneyProfileID, cfg)
	}

	cases, err := u.deps.Cases.ListCandidates(dbc, q.Filter(attorneyProfileID, now), u.deps.FetchWindow)
	if err != nil {
		u.deps.Log.Error("feed candidates failed", "error", err)
		return FeedPage{}, apierr.Internal("FEED_FAILED")
	}
	candidates = len(cases)
	span.SetAttributes(attribute.Int("feed.candidates", candidates))

	ids := make([]uuid.UUID, 0, len(cases))
	for _, c := range cases {
		ids = append(ids, c.ID)
	}
	var (
		bidCounts map[uuid.UUID]int
		mine      map[uuid.UUID]bool
		risk      map[uuid.UUID]types.RiskCounts
	)
	if len(ids) > 0 {
		g, gctx = errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			bidCounts, err = u.deps.Bids.CountLiveByCaseIDs(dbctx.Background(gctx), ids)
			return err
		})
		g.Go(func() (err error) {
			mine, err = u.deps.Bids.LiveCaseIDsForAttorney(dbctx.Background(gctx), attorneyProfileID, ids)
			return err
		})
		g.Go(func() (err error) {
			risk, err = u.deps.Risk.CountsByCaseIDs(dbctx.Background(gctx), ids)
			return err
		})
		if err := g.Wait(); err != nil {
			u.deps.Log.Error("feed bulk reads failed", "candidates", len(ids), "error", err)
			return FeedPage{}, apierr.Internal("FEED_FAILED")
		}
	}

	items := make([]*ScoredCase, 0, len(cases))
	for _, c := range cases {
		cand := Candidate{Case: c, BidCount: bidCounts[c.ID], HasBid: mine[c.ID], Risk: risk[c.ID]}
		score, reasons := Score(cand, ac, cfg, variant, now)
		hints, risky := RiskHints(cand.Risk, cfg)
		items = append(items, &ScoredCase{
			Case:      c,
			BidCount:  cand.BidCount,
			HasBid:    cand.HasBid,
			Score:     score,
			Reasons:   reasons,
			RiskHints: hints,
			risky:     risky,
		})
	}
	SortItems(items, q.Sort)

	if q.Sort == SortRecommended {
		var split int
		items, split = DemoteHighRisk(items, cfg.HighRiskPenalty)
		capped := ApplyExposureCap(items[:split], cfg.ExposureWindow, cfg.MaxPerCategoryInTopN)
		items = append(capped, items[split:]...)
	}

	if len(q.Reasons) > 0 {
		kept := items[:0]
		for _, it := range items {
			if HasAllReasons(it.Reasons, q.Reasons) {
				kept = append(kept, it)
			}
		}
		items = kept
	}

	page = paginate(items, q)
	if q.Sort == SortRecommended {
		page.Variant = variant
		page.RankingActive = &active
		span.SetAttributes(attribute.String("feed.variant", string(variant)), attribute.Bool("feed.ranking_active", active))
	}
	return page, nil
}

func paginate(items []*ScoredCase, q FeedQuery) FeedPage {
	total := len(items)
	if q.All {
		return FeedPage{Items: items, Page: 1, PageSize: total, Total: total, TotalPages: 1}
	}
	totalPages := (total + q.PageSize - 1) / q.PageSize
	from := min((q.Page-1)*q.PageSize, total)
	to := min(from+q.PageSize, total)
	return FeedPage{
		Items:      items[from:to],
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    to < total,
	}
}
