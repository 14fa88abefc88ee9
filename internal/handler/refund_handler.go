package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-billing-api/internal/dto"
	"github.com/noah-isme/edu-billing-api/internal/middleware"
	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/internal/service"
	"github.com/noah-isme/edu-billing-api/pkg/response"
)

type refundService interface {
	Preview(ctx context.Context, enrollmentID string) (*dto.RefundPreview, error)
	Create(ctx context.Context, enrollmentID string, req dto.CreateRefundRequest) (*models.RefundRequest, error)
	Process(ctx context.Context, refundID string, req dto.ProcessRefundRequest, claims *models.JWTClaims) (*models.RefundRequest, error)
	Get(ctx context.Context, id string) (*models.RefundRequest, error)
	ExportStatement(ctx context.Context, id string) (*service.ExportedFile, error)
}

// RefundHandler exposes refund endpoints.
type RefundHandler struct {
	refunds refundService
}

// NewRefundHandler constructs RefundHandler.
func NewRefundHandler(refunds refundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// Preview godoc
// @Summary Preview refund amount
// @Tags Refunds
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/refund-preview [get]
func (h *RefundHandler) Preview(c *gin.Context) {
	preview, err := h.refunds.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, preview)
}

// Create godoc
// @Summary Request a refund
// @Tags Refunds
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.CreateRefundRequest true "Refund payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/refunds [post]
func (h *RefundHandler) Create(c *gin.Context) {
	var req dto.CreateRefundRequest
	if !bindJSON(c, &req) {
		return
	}
	refund, err := h.refunds.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, refund)
}

// Get godoc
// @Summary Get refund request
// @Tags Refunds
// @Produce json
// @Param id path string true "Refund ID"
// @Success 200 {object} response.Envelope
// @Router /refunds/{id} [get]
func (h *RefundHandler) Get(c *gin.Context) {
	refund, err := h.refunds.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, refund)
}

// Process godoc
// @Summary Approve or reject a refund
// @Tags Refunds
// @Accept json
// @Produce json
// @Param id path string true "Refund ID"
// @Param payload body dto.ProcessRefundRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /refunds/{id}/process [post]
func (h *RefundHandler) Process(c *gin.Context) {
	var req dto.ProcessRefundRequest
	if !bindJSON(c, &req) {
		return
	}
	refund, err := h.refunds.Process(c.Request.Context(), c.Param("id"), req, middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, refund)
}

// Statement godoc
// @Summary Download refund statement
// @Tags Refunds
// @Produce application/pdf
// @Param id path string true "Refund ID"
// @Success 200 {file} file
// @Router /refunds/{id}/statement [get]
func (h *RefundHandler) Statement(c *gin.Context) {
	file, err := h.refunds.ExportStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
