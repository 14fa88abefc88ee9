package repository

import "errors"

// Sentinel errors returned when a guarded write loses a race with another writer.
var (
	// ErrStateChanged means the locked row no longer satisfies the transition precondition.
	ErrStateChanged = errors.New("row state changed")
	// ErrActiveFreezeExists means the enrollment already has an ACTIVE freeze.
	ErrActiveFreezeExists = errors.New("active freeze already exists")
	// ErrPendingRefundExists means the student already has a PENDING refund for the group.
	ErrPendingRefundExists = errors.New("pending refund already exists")
)

// Partial unique indexes declared in migrations/0001_billing.sql.
const (
	constraintActiveFreeze  = "uq_student_freezes_active"
	constraintPendingRefund = "uq_refund_requests_pending"
)
