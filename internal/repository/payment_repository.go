package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/edu-billing-api/internal/models"
)

// PaymentRepository reads the payment ledger. Payments are written only as part of
// lifecycle transactions.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// SumPaid totals PAID payments of a student in a group.
func (r *PaymentRepository) SumPaid(ctx context.Context, studentID, groupID string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE student_id = $1 AND group_id = $2 AND status = $3`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, studentID, groupID, models.PaymentStatusPaid); err != nil {
		return decimal.Zero, fmt.Errorf("sum paid payments: %w", err)
	}
	return total, nil
}

// ListByEnrollment returns the enrollment's payments, oldest period first.
func (r *PaymentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Payment, error) {
	const query = `SELECT id, enrollment_id, group_id, student_id, period_start, period_end, amount, lessons_in_period,
lessons_missed, lessons_included, lesson_price, discount_applied, is_prorated, status, due_date, created_at
FROM payments WHERE enrollment_id = $1 ORDER BY period_start ASC, created_at ASC`
	payments := []models.Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func insertPayment(ctx context.Context, tx *sqlx.Tx, p *models.Payment) error {
	const query = `INSERT INTO payments (id, enrollment_id, group_id, student_id, period_start, period_end, amount,
lessons_in_period, lessons_missed, lessons_included, lesson_price, discount_applied, is_prorated, status, due_date, created_at)
VALUES (:id, :enrollment_id, :group_id, :student_id, :period_start, :period_end, :amount,
:lessons_in_period, :lessons_missed, :lessons_included, :lesson_price, :discount_applied, :is_prorated, :status, :due_date, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}
