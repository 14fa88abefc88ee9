package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-billing-api/internal/models"
)

func TestPaymentRepositorySumPaid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments")).
		WithArgs("student-1", "group-1", models.PaymentStatusPaid).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("900000"))

	total, err := repo.SumPaid(context.Background(), "student-1", "group-1")
	require.NoError(t, err)
	assert.Equal(t, "900000", total.String())
}

func TestPaymentRepositoryListByEnrollment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE enrollment_id = $1")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "enrollment_id", "group_id", "student_id", "period_start", "period_end", "amount", "lessons_in_period",
			"lessons_missed", "lessons_included", "lesson_price", "discount_applied", "is_prorated", "status", "due_date", "created_at"}).
			AddRow("pay-1", "enr-1", "group-1", "student-1", jan, jan.AddDate(0, 0, 30), "214290", 14, 4, 10, "21429", "0", true, "PENDING", jan, jan))

	payments, err := repo.ListByEnrollment(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, 10, payments[0].LessonsIncluded)
	assert.True(t, payments[0].IsProrated)
	assert.Equal(t, models.PaymentStatusPending, payments[0].Status)
}

func TestPaymentRepositoryListByEnrollmentEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE enrollment_id = $1")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	payments, err := repo.ListByEnrollment(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.NotNil(t, payments)
	assert.Empty(t, payments)
}
