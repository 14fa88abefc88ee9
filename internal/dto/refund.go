package dto

import (
	"github.com/noah-isme/edu-billing-api/internal/billing"
)

// CreateRefundRequest asks for the unused part of what the student paid.
type CreateRefundRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// ProcessRefundRequest approves or rejects a pending refund.
type ProcessRefundRequest struct {
	Decision string  `json:"decision" validate:"required"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// RefundPreview shows the refund a request would be created with.
type RefundPreview struct {
	EnrollmentID string                    `json:"enrollmentId"`
	Breakdown    billing.RefundBreakdown `json:"breakdown"`
}
