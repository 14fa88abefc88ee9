package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-billing-api/internal/dto"
	"github.com/noah-isme/edu-billing-api/internal/middleware"
	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/pkg/response"
)

type freezeService interface {
	Create(ctx context.Context, enrollmentID string, req dto.CreateFreezeRequest, claims *models.JWTClaims) (*models.StudentFreeze, error)
	End(ctx context.Context, id string) (*models.StudentFreeze, error)
	Cancel(ctx context.Context, id string) (*models.StudentFreeze, error)
	Get(ctx context.Context, id string) (*models.StudentFreeze, error)
	List(ctx context.Context, enrollmentID string) ([]models.StudentFreeze, error)
}

// FreezeHandler exposes freeze endpoints.
type FreezeHandler struct {
	freezes freezeService
}

// NewFreezeHandler constructs FreezeHandler.
func NewFreezeHandler(freezes freezeService) *FreezeHandler {
	return &FreezeHandler{freezes: freezes}
}

// Create godoc
// @Summary Freeze an enrollment
// @Tags Freezes
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.CreateFreezeRequest true "Freeze payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/freezes [post]
func (h *FreezeHandler) Create(c *gin.Context) {
	var req dto.CreateFreezeRequest
	if !bindJSON(c, &req) {
		return
	}
	freeze, err := h.freezes.Create(c.Request.Context(), c.Param("id"), req, middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, freeze)
}

// List godoc
// @Summary List enrollment freezes
// @Tags Freezes
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/freezes [get]
func (h *FreezeHandler) List(c *gin.Context) {
	freezes, err := h.freezes.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, freezes)
}

// Get godoc
// @Summary Get freeze
// @Tags Freezes
// @Produce json
// @Param id path string true "Freeze ID"
// @Success 200 {object} response.Envelope
// @Router /freezes/{id} [get]
func (h *FreezeHandler) Get(c *gin.Context) {
	freeze, err := h.freezes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, freeze)
}

// End godoc
// @Summary End a freeze
// @Tags Freezes
// @Produce json
// @Param id path string true "Freeze ID"
// @Success 200 {object} response.Envelope
// @Router /freezes/{id}/end [post]
func (h *FreezeHandler) End(c *gin.Context) {
	freeze, err := h.freezes.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, freeze)
}

// Cancel godoc
// @Summary Cancel a freeze
// @Tags Freezes
// @Produce json
// @Param id path string true "Freeze ID"
// @Success 200 {object} response.Envelope
// @Router /freezes/{id}/cancel [post]
func (h *FreezeHandler) Cancel(c *gin.Context) {
	freeze, err := h.freezes.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, freeze)
}
