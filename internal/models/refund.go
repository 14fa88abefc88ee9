package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundStatus captures workflow states for refund requests.
type RefundStatus string

// Refund statuses.
const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusApproved  RefundStatus = "APPROVED"
	RefundStatusRejected  RefundStatus = "REJECTED"
	RefundStatusCompleted RefundStatus = "COMPLETED"
)

// RefundRemovalReason is stored on the enrollment when an approved refund drops it.
const RefundRemovalReason = "refund approved"

// RefundRequest stores a refund computation awaiting review.
type RefundRequest struct {
	ID              string          `db:"id" json:"id"`
	EnrollmentID    string          `db:"enrollment_id" json:"enrollmentId"`
	GroupID         string          `db:"group_id" json:"groupId"`
	StudentID       string          `db:"student_id" json:"studentId"`
	RequestReason   string          `db:"request_reason" json:"requestReason"`
	TotalPaid       decimal.Decimal `db:"total_paid" json:"totalPaid"`
	LessonsAttended int             `db:"lessons_attended" json:"lessonsAttended"`
	TotalLessons    int             `db:"total_lessons" json:"totalLessons"`
	PricePerLesson  decimal.Decimal `db:"price_per_lesson" json:"pricePerLesson"`
	RefundAmount    decimal.Decimal `db:"refund_amount" json:"refundAmount"`
	Status          RefundStatus    `db:"status" json:"status"`
	ProcessedBy     *string         `db:"processed_by" json:"processedBy,omitempty"`
	ProcessingNotes *string         `db:"processing_notes" json:"processingNotes,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	CompletedAt     *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
}
