package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-billing-api/internal/dto"
	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/internal/repository"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
)

func newEnrollmentFixture(items ...*models.Enrollment) (*EnrollmentService, *stubEnrollments, *stubPayments) {
	enrollments := newStubEnrollments(items...)
	payments := &stubPayments{}
	groups := &stubGroups{groups: map[string]*models.Group{"grp-1": januaryGroup()}}
	svc := NewEnrollmentService(enrollments, groups, payments, NewMetricsService(), nil, zap.NewNop()).WithClock(fixedClock)
	return svc, enrollments, payments
}

func TestEnrollmentServiceActivateProratesFirstMonth(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(enrollmentWith("enr-1", models.EnrollmentStatusLead))

	result, err := svc.Activate(context.Background(), "enr-1", dto.ActivateEnrollmentRequest{LessonStartDate: "2024-01-10"})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusActive, result.Enrollment.Status)
	require.NotNil(t, result.Enrollment.LessonStartDate)
	assert.Equal(t, day(2024, time.January, 10), *result.Enrollment.LessonStartDate)
	assert.True(t, result.Enrollment.BaseLessonPrice.Equal(decimal.NewFromInt(21429)))
	assert.True(t, result.Enrollment.PerLessonPrice.Equal(decimal.NewFromInt(21429)))

	require.NotNil(t, result.Payment)
	assert.Equal(t, models.PaymentStatusPending, result.Payment.Status)
	assert.True(t, result.Payment.Amount.Equal(decimal.NewFromInt(214290)))
	assert.Equal(t, 14, result.Payment.LessonsInPeriod)
	assert.Equal(t, 4, result.Payment.LessonsMissed)
	assert.Equal(t, 10, result.Payment.LessonsIncluded)
	assert.True(t, result.Payment.IsProrated)
	assert.Equal(t, day(2024, time.January, 1), result.Payment.PeriodStart)
	assert.Equal(t, day(2024, time.January, 31), result.Payment.PeriodEnd)
	assert.Equal(t, "stu-1", result.Payment.StudentID)

	require.NotNil(t, enrollments.activated)
	assert.Same(t, result.Payment, enrollments.activated.Payment)
	assert.Equal(t, day(2024, time.January, 31), enrollments.activated.NextPaymentDate)
	assert.Equal(t, fixedNow, enrollments.activated.Now)
}

func TestEnrollmentServiceActivateFreeEnrollmentCreatesNoPayment(t *testing.T) {
	lead := enrollmentWith("enr-1", models.EnrollmentStatusLead)
	lead.IndividualDiscountAmount = decimal.NewFromInt(300000)
	svc, enrollments, _ := newEnrollmentFixture(lead)

	result, err := svc.Activate(context.Background(), "enr-1", dto.ActivateEnrollmentRequest{LessonStartDate: "2024-01-10"})
	require.NoError(t, err)

	assert.Nil(t, result.Payment)
	assert.Nil(t, enrollments.activated.Payment)
	assert.Equal(t, models.EnrollmentStatusActive, result.Enrollment.Status)
	assert.True(t, result.Enrollment.PerLessonPrice.IsZero())
}

func TestEnrollmentServiceActivateIgnoresExpiredOneTimeDiscount(t *testing.T) {
	expired := enrollmentWith("enr-expired", models.EnrollmentStatusLead)
	expired.IndividualDiscountAmount = decimal.NewFromInt(300000)
	expiredOn := day(2024, time.January, 5)
	expired.DiscountValidUntil = &expiredOn

	lastDay := enrollmentWith("enr-last-day", models.EnrollmentStatusLead)
	lastDay.IndividualDiscountAmount = decimal.NewFromInt(300000)
	until := day(2024, time.January, 10)
	lastDay.DiscountValidUntil = &until

	svc, _, _ := newEnrollmentFixture(expired, lastDay)

	preview, err := svc.ActivationPreview(context.Background(), "enr-expired", "2024-01-10")
	require.NoError(t, err)
	assert.False(t, preview.IsFreeEnrollment)
	assert.True(t, preview.Proration.ProratedAmount.Equal(decimal.NewFromInt(214290)))

	result, err := svc.Activate(context.Background(), "enr-expired", dto.ActivateEnrollmentRequest{LessonStartDate: "2024-01-10"})
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.True(t, result.Payment.Amount.Equal(decimal.NewFromInt(214290)))
	assert.True(t, result.Payment.DiscountApplied.IsZero())

	result, err = svc.Activate(context.Background(), "enr-last-day", dto.ActivateEnrollmentRequest{LessonStartDate: "2024-01-10"})
	require.NoError(t, err)
	assert.Nil(t, result.Payment)
	assert.True(t, result.Proration.ProratedAmount.IsZero())
}

func TestEnrollmentServiceActivateRejectsNonLead(t *testing.T) {
	active := enrollmentWith("enr-1", models.EnrollmentStatusActive)
	start := day(2024, time.January, 3)
	active.LessonStartDate = &start
	active.PerLessonPrice = decimal.NewFromInt(21429)
	svc, enrollments, _ := newEnrollmentFixture(active)

	_, err := svc.Activate(context.Background(), "enr-1", dto.ActivateEnrollmentRequest{LessonStartDate: "2024-01-10"})
	requireAppError(t, err, appErrors.ErrInvalidState)

	stored := enrollments.items["enr-1"]
	assert.Nil(t, enrollments.activated)
	assert.Equal(t, start, *stored.LessonStartDate)
	assert.True(t, stored.PerLessonPrice.Equal(decimal.NewFromInt(21429)))
}

func TestEnrollmentServiceActivateValidation(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(enrollmentWith("enr-1", models.EnrollmentStatusLead))

	cases := []struct {
		name   string
		id     string
		date   string
		target *appErrors.Error
	}{
		{"missing date", "enr-1", "", appErrors.ErrValidation},
		{"malformed date", "enr-1", "10/01/2024", appErrors.ErrValidation},
		{"before course start", "enr-1", "2023-12-29", appErrors.ErrOutOfRange},
		{"after course end", "enr-1", "2024-04-01", appErrors.ErrOutOfRange},
		{"unknown enrollment", "missing", "2024-01-10", appErrors.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Activate(context.Background(), tc.id, dto.ActivateEnrollmentRequest{LessonStartDate: tc.date})
			requireAppError(t, err, tc.target)
		})
	}
	assert.Nil(t, enrollments.activated)
}

func TestEnrollmentServiceActivateLostRace(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(enrollmentWith("enr-1", models.EnrollmentStatusLead))
	enrollments.activateErr = repository.ErrStateChanged

	_, err := svc.Activate(context.Background(), "enr-1", dto.ActivateEnrollmentRequest{LessonStartDate: "2024-01-10"})
	requireAppError(t, err, appErrors.ErrInvalidState)

	enrollments.activateErr = errors.New("connection reset")
	_, err = svc.Activate(context.Background(), "enr-1", dto.ActivateEnrollmentRequest{LessonStartDate: "2024-01-10"})
	requireAppError(t, err, appErrors.ErrInternal)
}

func TestEnrollmentServiceActivationPreviewWritesNothing(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(enrollmentWith("enr-1", models.EnrollmentStatusLead))

	preview, err := svc.ActivationPreview(context.Background(), "enr-1", "2024-01-10")
	require.NoError(t, err)

	assert.True(t, preview.PaymentRequired)
	assert.False(t, preview.IsFreeEnrollment)
	assert.Equal(t, "2024-01-10", preview.LessonStartDate)
	assert.True(t, preview.Proration.ProratedAmount.Equal(decimal.NewFromInt(214290)))
	assert.Nil(t, enrollments.activated)
	assert.Equal(t, models.EnrollmentStatusLead, enrollments.items["enr-1"].Status)

	_, err = svc.ActivationPreview(context.Background(), "enr-1", "not-a-date")
	requireAppError(t, err, appErrors.ErrInvalidInput)
}

func TestEnrollmentServiceAssignDiscount(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(enrollmentWith("enr-1", models.EnrollmentStatusLead))

	updated, err := svc.AssignDiscount(context.Background(), "enr-1", dto.AssignDiscountRequest{
		DiscountAmount: decimal.NewFromInt(300000),
		IsRecurring:    true,
		Reason:         strPtr("scholarship"),
	})
	require.NoError(t, err)

	assert.True(t, updated.IsFreeEnrollment)
	assert.True(t, updated.IsRecurringDiscount)
	assert.Nil(t, updated.DiscountValidUntil)
	assert.Equal(t, "scholarship", *updated.DiscountReason)
	assert.Equal(t, fixedNow, updated.UpdatedAt)
	assert.Equal(t, 1, enrollments.updated)
}

func TestEnrollmentServiceAssignDiscountRepricesActiveEnrollment(t *testing.T) {
	active := enrollmentWith("enr-1", models.EnrollmentStatusActive)
	start := day(2024, time.January, 10)
	active.LessonStartDate = &start
	active.BaseLessonPrice = decimal.NewFromInt(21429)
	active.PerLessonPrice = decimal.NewFromInt(21429)
	svc, _, _ := newEnrollmentFixture(active)

	updated, err := svc.AssignDiscount(context.Background(), "enr-1", dto.AssignDiscountRequest{
		DiscountAmount: decimal.NewFromInt(70000),
		ValidUntil:     strPtr("2024-02-29"),
	})
	require.NoError(t, err)

	// 70000 over 14 lessons is 5000 per lesson.
	assert.True(t, updated.PerLessonPrice.Equal(decimal.NewFromInt(16429)))
	assert.False(t, updated.IsFreeEnrollment)
	require.NotNil(t, updated.DiscountValidUntil)
	assert.Equal(t, day(2024, time.February, 29), *updated.DiscountValidUntil)
}

func TestEnrollmentServiceAssignDiscountRules(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(
		enrollmentWith("enr-1", models.EnrollmentStatusLead),
		enrollmentWith("enr-dropped", models.EnrollmentStatusDropped),
	)

	_, err := svc.AssignDiscount(context.Background(), "enr-1", dto.AssignDiscountRequest{DiscountAmount: decimal.NewFromInt(-1), IsRecurring: true})
	requireAppError(t, err, appErrors.ErrInvalidInput)

	_, err = svc.AssignDiscount(context.Background(), "enr-1", dto.AssignDiscountRequest{DiscountAmount: decimal.NewFromInt(1000)})
	requireAppError(t, err, appErrors.ErrInvalidInput)

	_, err = svc.AssignDiscount(context.Background(), "enr-dropped", dto.AssignDiscountRequest{DiscountAmount: decimal.NewFromInt(1000), IsRecurring: true})
	requireAppError(t, err, appErrors.ErrInvalidState)

	_, err = svc.AssignDiscount(context.Background(), "enr-1", dto.AssignDiscountRequest{
		DiscountAmount: decimal.NewFromInt(1000),
		IsRecurring:    true,
		Reason:         strPtr(strings.Repeat("x", 501)),
	})
	requireAppError(t, err, appErrors.ErrValidation)

	assert.Zero(t, enrollments.updated)
}

func TestEnrollmentServiceQuotePrepayment(t *testing.T) {
	lead := enrollmentWith("enr-1", models.EnrollmentStatusLead)
	lead.IndividualDiscountAmount = decimal.NewFromInt(10000)
	svc, _, _ := newEnrollmentFixture(lead, enrollmentWith("enr-dropped", models.EnrollmentStatusDropped))

	quote, err := svc.QuotePrepayment(context.Background(), "enr-1", "3")
	require.NoError(t, err)
	assert.True(t, quote.Quote.GrossAmount.Equal(decimal.NewFromInt(900000)))
	assert.True(t, quote.Quote.GroupDiscount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, quote.Quote.TotalAmount.Equal(decimal.NewFromInt(820000)))

	_, err = svc.QuotePrepayment(context.Background(), "enr-1", "0")
	requireAppError(t, err, appErrors.ErrInvalidInput)
	_, err = svc.QuotePrepayment(context.Background(), "enr-1", "three")
	requireAppError(t, err, appErrors.ErrInvalidInput)
	_, err = svc.QuotePrepayment(context.Background(), "enr-dropped", "3")
	requireAppError(t, err, appErrors.ErrInvalidState)
}

func TestEnrollmentServiceExportPayments(t *testing.T) {
	svc, _, payments := newEnrollmentFixture(enrollmentWith("enr-1", models.EnrollmentStatusActive))
	payments.payments = []models.Payment{{
		ID:              "pay-1",
		EnrollmentID:    "enr-1",
		PeriodStart:     day(2024, time.January, 1),
		PeriodEnd:       day(2024, time.January, 31),
		Amount:          decimal.NewFromInt(214290),
		LessonsInPeriod: 14,
		LessonsMissed:   4,
		LessonsIncluded: 10,
		LessonPrice:     decimal.NewFromInt(21429),
		DiscountApplied: decimal.Zero,
		Status:          models.PaymentStatusPending,
		DueDate:         day(2024, time.January, 10),
	}}

	file, err := svc.ExportPayments(context.Background(), "enr-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "payments-enr-1.csv", file.Filename)
	assert.Contains(t, file.ContentType, "text/csv")
	assert.Contains(t, string(file.Body), "2024-01-01 - 2024-01-31,14,4,10,21429,0,214290,PENDING,2024-01-10")

	pdf, err := svc.ExportPayments(context.Background(), "enr-1", "pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf.Body), "%PDF"))

	_, err = svc.ExportPayments(context.Background(), "enr-1", "xlsx")
	requireAppError(t, err, appErrors.ErrInvalidInput)

	_, err = svc.ExportPayments(context.Background(), "missing", "csv")
	requireAppError(t, err, appErrors.ErrNotFound)
}
