package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-billing-api/internal/dto"
	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/internal/service"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
	"github.com/noah-isme/edu-billing-api/pkg/response"
)

type enrollmentService interface {
	ActivationPreview(ctx context.Context, id, lessonStartDate string) (*dto.ActivationPreview, error)
	Activate(ctx context.Context, id string, req dto.ActivateEnrollmentRequest) (*dto.ActivationResult, error)
	AssignDiscount(ctx context.Context, id string, req dto.AssignDiscountRequest) (*models.Enrollment, error)
	QuotePrepayment(ctx context.Context, id, months string) (*dto.PrepaymentQuoteResponse, error)
	ListPayments(ctx context.Context, id string) ([]models.Payment, error)
	ExportPayments(ctx context.Context, id, format string) (*service.ExportedFile, error)
}

// EnrollmentHandler exposes enrollment billing endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return false
	}
	return true
}

// ActivationPreview godoc
// @Summary Preview activation billing
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param lessonStartDate query string true "First lesson date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/activation-preview [get]
func (h *EnrollmentHandler) ActivationPreview(c *gin.Context) {
	preview, err := h.enrollments.ActivationPreview(c.Request.Context(), c.Param("id"), c.Query("lessonStartDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, preview)
}

// Activate godoc
// @Summary Activate a lead enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.ActivateEnrollmentRequest true "Activation payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/activate [post]
func (h *EnrollmentHandler) Activate(c *gin.Context) {
	var req dto.ActivateEnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.enrollments.Activate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// AssignDiscount godoc
// @Summary Assign individual discount
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.AssignDiscountRequest true "Discount payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/discount [post]
func (h *EnrollmentHandler) AssignDiscount(c *gin.Context) {
	var req dto.AssignDiscountRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.AssignDiscount(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// PrepaymentQuote godoc
// @Summary Quote a multi-month prepayment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param months query int true "Months paid upfront"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/prepayment-quote [get]
func (h *EnrollmentHandler) PrepaymentQuote(c *gin.Context) {
	quote, err := h.enrollments.QuotePrepayment(c.Request.Context(), c.Param("id"), c.Query("months"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quote)
}

// ListPayments godoc
// @Summary List enrollment payments
// @Tags Payments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/payments [get]
func (h *EnrollmentHandler) ListPayments(c *gin.Context) {
	payments, err := h.enrollments.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, map[string]interface{}{"count": len(payments)})
}

// ExportPayments godoc
// @Summary Download the payment ledger
// @Tags Payments
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Enrollment ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /enrollments/{id}/payments/export [get]
func (h *EnrollmentHandler) ExportPayments(c *gin.Context) {
	file, err := h.enrollments.ExportPayments(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
