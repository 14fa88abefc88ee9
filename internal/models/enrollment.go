package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentStatus represents the billing lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusLead    EnrollmentStatus = "LEAD"
	EnrollmentStatusActive  EnrollmentStatus = "ACTIVE"
	EnrollmentStatusFrozen  EnrollmentStatus = "FROZEN"
	EnrollmentStatusDropped EnrollmentStatus = "DROPPED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s EnrollmentStatus) IsTerminal() bool {
	return s == EnrollmentStatusDropped
}

// Enrollment is a student's billing relationship to one group.
type Enrollment struct {
	ID                       string           `db:"id" json:"id"`
	GroupID                  string           `db:"group_id" json:"groupId"`
	StudentID                string           `db:"student_id" json:"studentId"`
	Status                   EnrollmentStatus `db:"status" json:"status"`
	LessonStartDate          *time.Time       `db:"lesson_start_date" json:"lessonStartDate,omitempty"`
	BaseLessonPrice          decimal.Decimal  `db:"base_lesson_price" json:"baseLessonPrice"`
	PerLessonPrice           decimal.Decimal  `db:"per_lesson_price" json:"perLessonPrice"`
	IndividualDiscountAmount decimal.Decimal  `db:"individual_discount_amount" json:"individualDiscountAmount"`
	IsRecurringDiscount      bool             `db:"is_recurring_discount" json:"isRecurringDiscount"`
	DiscountValidUntil       *time.Time       `db:"discount_valid_until" json:"discountValidUntil,omitempty"`
	DiscountReason           *string          `db:"discount_reason" json:"discountReason,omitempty"`
	IsFreeEnrollment         bool             `db:"is_free_enrollment" json:"isFreeEnrollment"`
	NextPaymentDate          *time.Time       `db:"next_payment_date" json:"nextPaymentDate,omitempty"`
	RemovalReason            *string          `db:"removal_reason" json:"removalReason,omitempty"`
	RemovedAt                *time.Time       `db:"removed_at" json:"removedAt,omitempty"`
	CreatedAt                time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time        `db:"updated_at" json:"updatedAt"`
	DeletedAt                *time.Time       `db:"deleted_at" json:"-"`
}

// DiscountOn returns the individual discount in force on day. A one-time discount stops
// applying after its valid-until date; recurring discounts never expire.
func (e *Enrollment) DiscountOn(day time.Time) decimal.Decimal {
	if e.IsRecurringDiscount || e.DiscountValidUntil == nil {
		return e.IndividualDiscountAmount
	}
	y, m, d := e.DiscountValidUntil.Date()
	until := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = day.Date()
	if time.Date(y, m, d, 0, 0, 0, 0, time.UTC).After(until) {
		return decimal.Zero
	}
	return e.IndividualDiscountAmount
}
