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

const freezeColumns = `id, enrollment_id, reason, freeze_start_date, freeze_end_date, status, actual_end_date, created_by, created_at`

// FreezeRepository persists student freezes together with the enrollment status they drive.
type FreezeRepository struct {
	db *sqlx.DB
}

// NewFreezeRepository constructs the repository.
func NewFreezeRepository(db *sqlx.DB) *FreezeRepository {
	return &FreezeRepository{db: db}
}

// FindByID returns a freeze or sql.ErrNoRows.
func (r *FreezeRepository) FindByID(ctx context.Context, id string) (*models.StudentFreeze, error) {
	query := `SELECT ` + freezeColumns + ` FROM student_freezes WHERE id = $1`
	var freeze models.StudentFreeze
	if err := r.db.GetContext(ctx, &freeze, query, id); err != nil {
		return nil, err
	}
	return &freeze, nil
}

// ListByEnrollment returns every freeze of an enrollment, newest first.
func (r *FreezeRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.StudentFreeze, error) {
	query := `SELECT ` + freezeColumns + ` FROM student_freezes WHERE enrollment_id = $1 ORDER BY freeze_start_date DESC, created_at DESC`
	freezes := []models.StudentFreeze{}
	if err := r.db.SelectContext(ctx, &freezes, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list freezes: %w", err)
	}
	return freezes, nil
}

// Create inserts an ACTIVE freeze and moves the enrollment to FROZEN. The enrollment
// must still be ACTIVE once locked (ErrStateChanged) and must not hold another ACTIVE
// freeze (ErrActiveFreezeExists).
func (r *FreezeRepository) Create(ctx context.Context, freeze *models.StudentFreeze) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin freeze transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	enrollment, err := lockEnrollment(ctx, tx, freeze.EnrollmentID)
	if err != nil {
		return err
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		err = ErrStateChanged
		return err
	}

	var active int
	const countQuery = `SELECT COUNT(1) FROM student_freezes WHERE enrollment_id = $1 AND status = $2`
	if err = tx.GetContext(ctx, &active, countQuery, freeze.EnrollmentID, models.FreezeStatusActive); err != nil {
		return fmt.Errorf("count active freezes: %w", err)
	}
	if active > 0 {
		err = ErrActiveFreezeExists
		return err
	}

	const insertQuery = `INSERT INTO student_freezes (id, enrollment_id, reason, freeze_start_date, freeze_end_date, status, created_by, created_at)
VALUES (:id, :enrollment_id, :reason, :freeze_start_date, :freeze_end_date, :status, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, freeze); err != nil {
		if database.IsUniqueViolation(err, constraintActiveFreeze) {
			err = ErrActiveFreezeExists
			return err
		}
		return fmt.Errorf("insert freeze: %w", err)
	}

	if err = setEnrollmentStatus(ctx, tx, freeze.EnrollmentID, models.EnrollmentStatusFrozen, freeze.CreatedAt); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit freeze: %w", err)
	}
	return nil
}

// End closes an ACTIVE freeze and reactivates its FROZEN enrollment.
func (r *FreezeRepository) End(ctx context.Context, id string, now time.Time) (*models.StudentFreeze, error) {
	return r.close(ctx, id, models.FreezeStatusEnded, now)
}

// Cancel withdraws an ACTIVE freeze and reactivates its enrollment if it is still FROZEN.
func (r *FreezeRepository) Cancel(ctx context.Context, id string, now time.Time) (*models.StudentFreeze, error) {
	return r.close(ctx, id, models.FreezeStatusCancelled, now)
}

// close moves an ACTIVE freeze to a final status. ErrStateChanged is returned when the
// freeze is no longer ACTIVE once locked. A DROPPED enrollment is never reactivated.
func (r *FreezeRepository) close(ctx context.Context, id string, status models.FreezeStatus, now time.Time) (freeze *models.StudentFreeze, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin freeze transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	freeze = &models.StudentFreeze{}
	lockQuery := `SELECT ` + freezeColumns + ` FROM student_freezes WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, freeze, lockQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock freeze: %w", err)
	}
	if freeze.Status != models.FreezeStatusActive {
		err = ErrStateChanged
		return nil, err
	}

	const updateFreeze = `UPDATE student_freezes SET status = $1, actual_end_date = $2 WHERE id = $3`
	if _, err = tx.ExecContext(ctx, updateFreeze, status, now, id); err != nil {
		return nil, fmt.Errorf("update freeze: %w", err)
	}

	const reactivate = `UPDATE enrollments SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	if _, err = tx.ExecContext(ctx, reactivate, models.EnrollmentStatusActive, now, freeze.EnrollmentID, models.EnrollmentStatusFrozen); err != nil {
		return nil, fmt.Errorf("reactivate enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit freeze: %w", err)
	}

	freeze.Status = status
	freeze.ActualEndDate = &now
	return freeze, nil
}
