package models

import "time"

// FreezeStatus captures the lifecycle of a student freeze.
type FreezeStatus string

// Freeze statuses.
const (
	FreezeStatusActive    FreezeStatus = "ACTIVE"
	FreezeStatusEnded     FreezeStatus = "ENDED"
	FreezeStatusCancelled FreezeStatus = "CANCELLED"
)

// StudentFreeze suspends billing of an enrollment without forfeiting prepaid lessons.
// A nil FreezeEndDate means the freeze is open-ended.
type StudentFreeze struct {
	ID              string       `db:"id" json:"id"`
	EnrollmentID    string       `db:"enrollment_id" json:"enrollmentId"`
	Reason          string       `db:"reason" json:"reason"`
	FreezeStartDate time.Time    `db:"freeze_start_date" json:"freezeStartDate"`
	FreezeEndDate   *time.Time   `db:"freeze_end_date" json:"freezeEndDate,omitempty"`
	Status          FreezeStatus `db:"status" json:"status"`
	ActualEndDate   *time.Time   `db:"actual_end_date" json:"actualEndDate,omitempty"`
	CreatedBy       string       `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
}
