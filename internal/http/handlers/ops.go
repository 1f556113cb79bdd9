package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/casehall-backend/internal/http/response"
	"github.com/yungbote/casehall-backend/internal/modules/ops"
)

type PriorityLister interface {
	ListPriorities(ctx context.Context, q ops.Query) (ops.Page, error)
}

type OpsHandler struct {
	ops PriorityLister
}

func NewOpsHandler(l PriorityLister) *OpsHandler {
	return &OpsHandler{ops: l}
}

// GET /api/admin/ops/priorities
func (h *OpsHandler) ListPriorities(c *gin.Context) {
	q := ops.Query{
		Tag:      c.Query("tag"),
		Category: c.Query("category"),
		Statuses: queryCSV(c, "status"),
	}
	var err error
	if q.Page, err = queryPositiveInt(c, "page"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_OPS_QUERY", err)
		return
	}
	if q.PageSize, err = queryPositiveInt(c, "pageSize"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID_OPS_QUERY", err)
		return
	}
	page, err := h.ops.ListPriorities(c.Request.Context(), q)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, page)
}
