package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlxDB.Close()
	})
	return sqlxDB, mock
}

var enrollmentRowColumns = []string{
	"id", "group_id", "student_id", "status", "lesson_start_date", "base_lesson_price", "per_lesson_price",
	"individual_discount_amount", "is_recurring_discount", "discount_valid_until", "discount_reason", "is_free_enrollment",
	"next_payment_date", "removal_reason", "removed_at", "created_at", "updated_at", "deleted_at",
}

func enrollmentRow(id, status string) *sqlmock.Rows {
	created := time.Date(2023, time.December, 20, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(enrollmentRowColumns).AddRow(
		id, "group-1", "student-1", status, nil, "0", "0",
		"0", false, nil, nil, false,
		nil, nil, nil, created, created, nil,
	)
}
