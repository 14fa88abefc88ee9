package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/pkg/response"
)

type groupService interface {
	Get(ctx context.Context, id string) (*models.Group, error)
	Invalidate(ctx context.Context, id string)
}

// GroupHandler exposes the group pricing snapshot used by billing.
type GroupHandler struct {
	groups groupService
}

// NewGroupHandler constructs GroupHandler.
func NewGroupHandler(groups groupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// Get godoc
// @Summary Get group pricing snapshot
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.groups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, group)
}

// InvalidateCache godoc
// @Summary Drop the cached group snapshot
// @Tags Groups
// @Param id path string true "Group ID"
// @Success 204
// @Router /groups/{id}/cache [delete]
func (h *GroupHandler) InvalidateCache(c *gin.Context) {
	h.groups.Invalidate(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}
