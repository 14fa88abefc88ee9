package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/pkg/database"
)

const refundColumns = `id, enrollment_id, group_id, student_id, request_reason, total_paid, lessons_attended, total_lessons,
price_per_lesson, refund_amount, status, processed_by, processing_notes, created_at, completed_at`

// RefundRepository persists refund requests and the enrollment drop an approval causes.
type RefundRepository struct {
	db *sqlx.DB
}

// NewRefundRepository constructs the repository.
func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// FindByID returns a refund request or sql.ErrNoRows.
func (r *RefundRepository) FindByID(ctx context.Context, id string) (*models.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE id = $1`
	var refund models.RefundRequest
	if err := r.db.GetContext(ctx, &refund, query, id); err != nil {
		return nil, err
	}
	return &refund, nil
}

// Create stores a PENDING refund request. The enrollment row is locked first so two
// concurrent requests for the same student and group serialise on it; the second one
// gets ErrPendingRefundExists. ErrStateChanged is returned when the enrollment has
// fallen back to LEAD in the meantime.
func (r *RefundRepository) Create(ctx context.Context, refund *models.RefundRequest) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin refund transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	enrollment, err := lockEnrollment(ctx, tx, refund.EnrollmentID)
	if err != nil {
		return err
	}
	if enrollment.Status == models.EnrollmentStatusLead {
		err = ErrStateChanged
		return err
	}

	var pending int
	const countQuery = `SELECT COUNT(1) FROM refund_requests WHERE student_id = $1 AND group_id = $2 AND status = $3`
	if err = tx.GetContext(ctx, &pending, countQuery, refund.StudentID, refund.GroupID, models.RefundStatusPending); err != nil {
		return fmt.Errorf("count pending refunds: %w", err)
	}
	if pending > 0 {
		err = ErrPendingRefundExists
		return err
	}

	const insertQuery = `INSERT INTO refund_requests (id, enrollment_id, group_id, student_id, request_reason, total_paid,
lessons_attended, total_lessons, price_per_lesson, refund_amount, status, created_at)
VALUES (:id, :enrollment_id, :group_id, :student_id, :request_reason, :total_paid,
:lessons_attended, :total_lessons, :price_per_lesson, :refund_amount, :status, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, refund); err != nil {
		if database.IsUniqueViolation(err, constraintPendingRefund) {
			err = ErrPendingRefundExists
			return err
		}
		return fmt.Errorf("insert refund request: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit refund request: %w", err)
	}
	return nil
}

// Decision records who processed a refund and when.
type Decision struct {
	RefundID    string
	ProcessedBy string
	Notes       *string
	At          time.Time
}

// Approve marks a PENDING refund APPROVED, drops its enrollment and ends any ACTIVE
// freeze in one transaction.
func (r *RefundRepository) Approve(ctx context.Context, d Decision) (*models.RefundRequest, error) {
	return r.process(ctx, d, models.RefundStatusApproved)
}

// Reject marks a PENDING refund REJECTED and leaves the enrollment untouched.
func (r *RefundRepository) Reject(ctx context.Context, d Decision) (*models.RefundRequest, error) {
	return r.process(ctx, d, models.RefundStatusRejected)
}

func (r *RefundRepository) process(ctx context.Context, d Decision, status models.RefundStatus) (refund *models.RefundRequest, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin refund transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	refund = &models.RefundRequest{}
	lockQuery := `SELECT ` + refundColumns + ` FROM refund_requests WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, refund, lockQuery, d.RefundID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock refund request: %w", err)
	}
	if refund.Status != models.RefundStatusPending {
		err = ErrStateChanged
		return nil, err
	}

	var completedAt *time.Time
	if status == models.RefundStatusApproved {
		completedAt = &d.At
	}

	const updateRefund = `UPDATE refund_requests SET status = $1, processed_by = $2, processing_notes = $3, completed_at = $4 WHERE id = $5`
	if _, err = tx.ExecContext(ctx, updateRefund, status, d.ProcessedBy, d.Notes, completedAt, d.RefundID); err != nil {
		return nil, fmt.Errorf("update refund request: %w", err)
	}

	if status == models.RefundStatusApproved {
		const dropEnrollment = `UPDATE enrollments SET status = $1, removal_reason = $2, removed_at = $3, updated_at = $3 WHERE id = $4`
		if _, err = tx.ExecContext(ctx, dropEnrollment, models.EnrollmentStatusDropped, models.RefundRemovalReason, d.At, refund.EnrollmentID); err != nil {
			return nil, fmt.Errorf("drop enrollment: %w", err)
		}
		const endFreezes = `UPDATE student_freezes SET status = $1, actual_end_date = $2 WHERE enrollment_id = $3 AND status = $4`
		if _, err = tx.ExecContext(ctx, endFreezes, models.FreezeStatusEnded, d.At, refund.EnrollmentID, models.FreezeStatusActive); err != nil {
			return nil, fmt.Errorf("end active freezes: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit refund decision: %w", err)
	}

	processedBy := d.ProcessedBy
	refund.Status = status
	refund.ProcessedBy = &processedBy
	refund.ProcessingNotes = d.Notes
	refund.CompletedAt = completedAt
	return refund, nil
}
