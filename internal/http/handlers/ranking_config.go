package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/http/response"
	"github.com/yungbote/casehall-backend/internal/platform/ctxutil"
)

const maxConfigDocBytes = 64 << 10

type RankingConfigAdmin interface {
	Get(ctx context.Context, feedKey string) (*types.RankingConfigRow, error)
	Apply(ctx context.Context, feedKey string, doc []byte, actor string) (*types.RankingConfigRow, error)
}

type RankingConfigHandler struct {
	store RankingConfigAdmin
}

func NewRankingConfigHandler(store RankingConfigAdmin) *RankingConfigHandler {
	return &RankingConfigHandler{store: store}
}

type rankingConfigResponse struct {
	FeedKey   string          `json:"feed_key"`
	Document  json.RawMessage `json:"document"`
	UpdatedBy string          `json:"updated_by,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toRankingConfigResponse(row *types.RankingConfigRow) rankingConfigResponse {
	return rankingConfigResponse{
		FeedKey:   row.FeedKey,
		Document:  json.RawMessage(row.Document),
		UpdatedBy: row.UpdatedBy,
		UpdatedAt: row.UpdatedAt,
	}
}

// GET /api/admin/ranking-config/:feedKey
func (h *RankingConfigHandler) Get(c *gin.Context) {
	feedKey := strings.TrimSpace(c.Param("feedKey"))
	row, err := h.store.Get(c.Request.Context(), feedKey)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "RANKING_CONFIG_READ_FAILED", errors.New("internal error"))
		return
	}
	if row == nil {
		response.RespondError(c, http.StatusNotFound, "RANKING_CONFIG_NOT_FOUND", fmt.Errorf("no config for %q", feedKey))
		return
	}
	response.RespondOK(c, gin.H{"config": toRankingConfigResponse(row)})
}

// PUT /api/admin/ranking-config/:feedKey
func (h *RankingConfigHandler) Put(c *gin.Context) {
	feedKey := strings.TrimSpace(c.Param("feedKey"))
	doc, err := io.ReadAll(io.LimitReader(c.Request.Body, maxConfigDocBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	if len(doc) > maxConfigDocBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE", errors.New("document too large"))
		return
	}
	actor := ""
	if id := ctxutil.GetIdentity(c.Request.Context()); id != nil {
		actor = id.UserID.String()
	}
	row, err := h.store.Apply(c.Request.Context(), feedKey, doc, actor)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_RANKING_CONFIG", err)
		return
	}
	response.RespondOK(c, gin.H{"config": toRankingConfigResponse(row)})
}
