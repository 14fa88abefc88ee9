package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus captures the settlement state of a payment row.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Payment is the immutable charge for one billing period.
type Payment struct {
	ID              string          `db:"id" json:"id"`
	EnrollmentID    string          `db:"enrollment_id" json:"enrollmentId"`
	GroupID         string          `db:"group_id" json:"groupId"`
	StudentID       string          `db:"student_id" json:"studentId"`
	PeriodStart     time.Time       `db:"period_start" json:"periodStart"`
	PeriodEnd       time.Time       `db:"period_end" json:"periodEnd"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	LessonsInPeriod int             `db:"lessons_in_period" json:"lessonsInPeriod"`
	LessonsMissed   int             `db:"lessons_missed" json:"lessonsMissed"`
	LessonsIncluded int             `db:"lessons_included" json:"lessonsIncluded"`
	LessonPrice     decimal.Decimal `db:"lesson_price" json:"lessonPrice"`
	DiscountApplied decimal.Decimal `db:"discount_applied" json:"discountApplied"`
	IsProrated      bool            `db:"is_prorated" json:"isProrated"`
	Status          PaymentStatus   `db:"status" json:"status"`
	DueDate         time.Time       `db:"due_date" json:"dueDate"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}
