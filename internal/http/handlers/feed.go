package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/casehall-backend/internal/http/response"
	"github.com/yungbote/casehall-backend/internal/modules/matching"
	"github.com/yungbote/casehall-backend/internal/platform/ctxutil"
)

type FeedBuilder interface {
	BuildFeed(ctx context.Context, attorneyProfileID uuid.UUID, q matching.FeedQuery) (matching.FeedPage, error)
}

type FeedHandler struct {
	feed FeedBuilder
}

func NewFeedHandler(feed FeedBuilder) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// GET /api/feed
func (h *FeedHandler) GetFeed(c *gin.Context) {
	id := ctxutil.GetIdentity(c.Request.Context())
	if !id.IsAttorney() {
		response.RespondError(c, http.StatusForbidden, "ATTORNEY_REQUIRED", errors.New("attorney profile required"))
		return
	}
	q, err := feedQueryFromRequest(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_FEED_QUERY", err)
		return
	}
	page, err := h.feed.BuildFeed(c.Request.Context(), id.AttorneyProfileID, q)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, page)
}

func feedQueryFromRequest(c *gin.Context) (matching.FeedQuery, error) {
	q := matching.FeedQuery{
		Category:       c.Query("category"),
		StateCode:      c.Query("stateCode"),
		ZipPrefix:      c.Query("zipPrefix"),
		Urgency:        c.Query("urgency"),
		FeeMode:        c.Query("feeMode"),
		DeadlineWindow: c.Query("deadlineWindow"),
		Sort:           c.Query("sort"),
		Reasons:        queryCSV(c, "recommendationReasons"),
	}
	var err error
	if q.BudgetMin, err = queryInt64Ptr(c, "budgetMin"); err != nil {
		return q, err
	}
	if q.BudgetMax, err = queryInt64Ptr(c, "budgetMax"); err != nil {
		return q, err
	}
	if q.MineBidOnly, err = queryBool(c, "mineBidOnly"); err != nil {
		return q, err
	}
	if q.QuoteableOnly, err = queryBool(c, "quoteableOnly"); err != nil {
		return q, err
	}
	if q.All, err = queryBool(c, "all"); err != nil {
		return q, err
	}
	if q.Page, err = queryPositiveInt(c, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = queryPositiveInt(c, "pageSize"); err != nil {
		return q, err
	}
	return q, nil
}
