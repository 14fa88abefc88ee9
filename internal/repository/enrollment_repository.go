package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/edu-billing-api/internal/models"
)

const enrollmentColumns = `id, group_id, student_id, status, lesson_start_date, base_lesson_price, per_lesson_price,
individual_discount_amount, is_recurring_discount, discount_valid_until, discount_reason, is_free_enrollment,
next_payment_date, removal_reason, removed_at, created_at, updated_at, deleted_at`

// EnrollmentRepository persists enrollment lifecycle transitions.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns a non-deleted enrollment or sql.ErrNoRows.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 AND deleted_at IS NULL`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// lockEnrollment re-reads the enrollment inside tx and holds its row lock until commit.
func lockEnrollment(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	var enrollment models.Enrollment
	if err := tx.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}
	return &enrollment, nil
}

func setEnrollmentStatus(ctx context.Context, tx *sqlx.Tx, id string, status models.EnrollmentStatus, now time.Time) error {
	const query = `UPDATE enrollments SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, status, now, id); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// ActivateParams carries the priced activation of a LEAD enrollment.
type ActivateParams struct {
	EnrollmentID    string
	LessonStartDate time.Time
	BaseLessonPrice decimal.Decimal
	PerLessonPrice  decimal.Decimal
	NextPaymentDate time.Time
	// Payment is inserted in the same transaction when non-nil.
	Payment *models.Payment
	Now     time.Time
}

// Activate moves a LEAD enrollment to ACTIVE and records its first payment atomically.
// ErrStateChanged is returned when the locked row is no longer a LEAD.
func (r *EnrollmentRepository) Activate(ctx context.Context, params ActivateParams) (enrollment *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin activation transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	enrollment, err = lockEnrollment(ctx, tx, params.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusLead {
		err = ErrStateChanged
		return nil, err
	}

	const updateQuery = `UPDATE enrollments
SET status = $1, lesson_start_date = $2, base_lesson_price = $3, per_lesson_price = $4, next_payment_date = $5, updated_at = $6
WHERE id = $7`
	if _, err = tx.ExecContext(ctx, updateQuery,
		models.EnrollmentStatusActive,
		params.LessonStartDate,
		params.BaseLessonPrice,
		params.PerLessonPrice,
		params.NextPaymentDate,
		params.Now,
		params.EnrollmentID,
	); err != nil {
		return nil, fmt.Errorf("activate enrollment: %w", err)
	}

	if params.Payment != nil {
		if err = insertPayment(ctx, tx, params.Payment); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit activation: %w", err)
	}

	start := params.LessonStartDate
	next := params.NextPaymentDate
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.LessonStartDate = &start
	enrollment.BaseLessonPrice = params.BaseLessonPrice
	enrollment.PerLessonPrice = params.PerLessonPrice
	enrollment.NextPaymentDate = &next
	enrollment.UpdatedAt = params.Now
	return enrollment, nil
}

// DiscountMutator inspects the locked enrollment and applies discount changes to it.
// Returning an error aborts the transaction.
type DiscountMutator func(e *models.Enrollment) error

// UpdateDiscount locks the enrollment, lets mutate apply the discount and persists the
// discount and per-lesson price columns.
func (r *EnrollmentRepository) UpdateDiscount(ctx context.Context, id string, now time.Time, mutate DiscountMutator) (enrollment *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin discount transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	enrollment, err = lockEnrollment(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err = mutate(enrollment); err != nil {
		return nil, err
	}
	enrollment.UpdatedAt = now

	const updateQuery = `UPDATE enrollments
SET individual_discount_amount = $1, is_recurring_discount = $2, discount_valid_until = $3, discount_reason = $4,
	is_free_enrollment = $5, per_lesson_price = $6, updated_at = $7
WHERE id = $8`
	if _, err = tx.ExecContext(ctx, updateQuery,
		enrollment.IndividualDiscountAmount,
		enrollment.IsRecurringDiscount,
		enrollment.DiscountValidUntil,
		enrollment.DiscountReason,
		enrollment.IsFreeEnrollment,
		enrollment.PerLessonPrice,
		now,
		id,
	); err != nil {
		return nil, fmt.Errorf("update enrollment discount: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit discount: %w", err)
	}
	return enrollment, nil
}
