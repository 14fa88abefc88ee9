package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/edu-billing-api/internal/billing"
	"github.com/noah-isme/edu-billing-api/internal/models"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ActivateEnrollmentRequest moves a lead to ACTIVE from the given first lesson.
type ActivateEnrollmentRequest struct {
	LessonStartDate string `json:"lessonStartDate" validate:"required,datetime=2006-01-02"`
}

// AssignDiscountRequest sets the individual monthly discount of an enrollment.
type AssignDiscountRequest struct {
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	IsRecurring    bool            `json:"isRecurring"`
	ValidUntil     *string         `json:"validUntil,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Reason         *string         `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ActivationPreview is the read-only outcome of activating on a given date.
type ActivationPreview struct {
	EnrollmentID     string                  `json:"enrollmentId"`
	LessonStartDate  string                  `json:"lessonStartDate"`
	IsFreeEnrollment bool                    `json:"isFreeEnrollment"`
	PaymentRequired  bool                    `json:"paymentRequired"`
	Proration        billing.ProrationResult `json:"proration"`
}

// ActivationResult is returned after a successful activation.
type ActivationResult struct {
	Enrollment *models.Enrollment      `json:"enrollment"`
	Payment    *models.Payment         `json:"payment,omitempty"`
	Proration  billing.ProrationResult `json:"proration"`
}

// PrepaymentQuoteResponse prices paying several months upfront.
type PrepaymentQuoteResponse struct {
	EnrollmentID string                  `json:"enrollmentId"`
	Quote        billing.PrepaymentQuote `json:"quote"`
}
