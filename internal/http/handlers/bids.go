package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/http/response"
	"github.com/yungbote/casehall-backend/internal/modules/bids"
)

type BidService interface {
	SubmitBid(ctx context.Context, in bids.SubmitInput) (domainagg.SubmitBidResult, error)
	WithdrawBid(ctx context.Context, bidID uuid.UUID) (domainagg.WithdrawBidResult, error)
	SelectBid(ctx context.Context, in bids.SelectInput) (domainagg.SelectBidResult, error)
}

type BidHandler struct {
	bids BidService
}

func NewBidHandler(svc BidService) *BidHandler {
	return &BidHandler{bids: svc}
}

type submitBidRequest struct {
	FeeMode      string `json:"feeMode"`
	FeeMin       *int64 `json:"feeMin"`
	FeeMax       *int64 `json:"feeMax"`
	ServiceScope string `json:"serviceScope"`
	Message      string `json:"message"`
}

type bidResponse struct {
	BidID   uuid.UUID `json:"bid_id"`
	CaseID  uuid.UUID `json:"case_id"`
	Status  string    `json:"status"`
	Version int       `json:"version"`
}

// POST /api/cases/:caseId/bids
func (h *BidHandler) SubmitBid(c *gin.Context) {
	caseID, err := pathUUID(c, "caseId")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_CASE_ID", err)
		return
	}
	var req submitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	res, err := h.bids.SubmitBid(c.Request.Context(), bids.SubmitInput{
		CaseID:       caseID,
		FeeMode:      req.FeeMode,
		FeeMin:       req.FeeMin,
		FeeMax:       req.FeeMax,
		ServiceScope: req.ServiceScope,
		Message:      req.Message,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out := bidResponse{BidID: res.BidID, CaseID: res.CaseID, Status: res.Status, Version: res.Version}
	if res.Created {
		response.RespondCreated(c, gin.H{"bid": out})
		return
	}
	response.RespondOK(c, gin.H{"bid": out})
}

// POST /api/bids/:bidId/withdraw
func (h *BidHandler) WithdrawBid(c *gin.Context) {
	bidID, err := pathUUID(c, "bidId")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_BID_ID", err)
		return
	}
	res, err := h.bids.WithdrawBid(c.Request.Context(), bidID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"bid": bidResponse{BidID: res.BidID, CaseID: res.CaseID, Status: res.Status, Version: res.Version}})
}

type selectBidRequest struct {
	BidID              string `json:"bidId"`
	CreateConversation *bool  `json:"createConversation"`
}

type selectionResponse struct {
	CaseID            uuid.UUID   `json:"case_id"`
	CaseStatus        string      `json:"case_status"`
	SelectedBidID     uuid.UUID   `json:"selected_bid_id"`
	AttorneyProfileID uuid.UUID   `json:"attorney_profile_id"`
	ConversationID    *uuid.UUID  `json:"conversation_id,omitempty"`
	EngagementID      uuid.UUID   `json:"engagement_id"`
	RejectedBidIDs    []uuid.UUID `json:"rejected_bid_ids"`
	Reselected        bool        `json:"reselected"`
	SelectedAt        time.Time   `json:"selected_at"`
}

// POST /api/cases/:caseId/select
func (h *BidHandler) SelectBid(c *gin.Context) {
	caseID, err := pathUUID(c, "caseId")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_CASE_ID", err)
		return
	}
	var req selectBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	bidID, err := uuid.Parse(req.BidID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_BID_ID", err)
		return
	}
	res, err := h.bids.SelectBid(c.Request.Context(), bids.SelectInput{
		CaseID:             caseID,
		BidID:              bidID,
		CreateConversation: req.CreateConversation,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	rejected := res.RejectedBidIDs
	if rejected == nil {
		rejected = []uuid.UUID{}
	}
	response.RespondOK(c, gin.H{"selection": selectionResponse{
		CaseID:            res.CaseID,
		CaseStatus:        res.CaseStatus,
		SelectedBidID:     res.SelectedBidID,
		AttorneyProfileID: res.AttorneyProfileID,
		ConversationID:    res.ConversationID,
		EngagementID:      res.EngagementID,
		RejectedBidIDs:    rejected,
		Reselected:        res.Reselected,
		SelectedAt:        res.SelectedAt,
	}})
}
