package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-billing-api/internal/billing"
	"github.com/noah-isme/edu-billing-api/internal/dto"
	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/internal/repository"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
	"github.com/noah-isme/edu-billing-api/pkg/export"
)

type enrollmentStore interface {
	enrollmentReader
	Activate(ctx context.Context, params repository.ActivateParams) (*models.Enrollment, error)
	UpdateDiscount(ctx context.Context, id string, now time.Time, mutate repository.DiscountMutator) (*models.Enrollment, error)
}

type paymentLedger interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Payment, error)
}

// EnrollmentService drives the LEAD to ACTIVE transition, individual discounts and the
// payment ledger of an enrollment.
type EnrollmentService struct {
	enrollments enrollmentStore
	groups      groupReader
	payments    paymentLedger
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         Clock
}

// NewEnrollmentService wires the enrollment lifecycle.
func NewEnrollmentService(
	enrollments enrollmentStore,
	groups groupReader,
	payments paymentLedger,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		groups:      groups,
		payments:    payments,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         utcNow,
	}
}

// WithClock overrides the time source.
func (s *EnrollmentService) WithClock(now Clock) *EnrollmentService {
	s.now = now
	return s
}

// leadWithGroup loads a LEAD enrollment, its group, and checks that start falls inside the course.
func (s *EnrollmentService) leadWithGroup(ctx context.Context, id string, start time.Time) (*models.Enrollment, *models.Group, error) {
	enrollment, err := loadEnrollment(ctx, s.enrollments, id)
	if err != nil {
		return nil, nil, err
	}
	if enrollment.Status != models.EnrollmentStatusLead {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("enrollment is %s, only a LEAD can be activated", enrollment.Status))
	}
	group, err := s.groups.Get(ctx, enrollment.GroupID)
	if err != nil {
		return nil, nil, err
	}
	if err := ensureWithinCourse(group, start, "lessonStartDate"); err != nil {
		return nil, nil, err
	}
	return enrollment, group, nil
}

// ActivationPreview returns what Activate would charge without writing anything.
func (s *EnrollmentService) ActivationPreview(ctx context.Context, id, lessonStartDate string) (*dto.ActivationPreview, error) {
	start, err := parseDate(lessonStartDate, "lessonStartDate")
	if err != nil {
		return nil, err
	}
	enrollment, group, err := s.leadWithGroup(ctx, id, start)
	if err != nil {
		return nil, err
	}

	discount := enrollment.DiscountOn(start)
	result := prorationFor(group, start, discount)
	free := billing.IsFreeEnrollment(group.MonthlyPrice, discount)
	return &dto.ActivationPreview{
		EnrollmentID:     enrollment.ID,
		LessonStartDate:  start.Format(dto.DateLayout),
		IsFreeEnrollment: free,
		PaymentRequired:  !free && result.ProratedAmount.IsPositive(),
		Proration:        result,
	}, nil
}

// Activate moves a LEAD to ACTIVE from lessonStartDate and bills the first, possibly
// prorated, period. No payment is created for free enrollments or zero amounts.
func (s *EnrollmentService) Activate(ctx context.Context, id string, req dto.ActivateEnrollmentRequest) (*dto.ActivationResult, error) {
	if err := validatePayload(s.validator, req); err != nil {
		return nil, err
	}
	start, err := parseDate(req.LessonStartDate, "lessonStartDate")
	if err != nil {
		return nil, err
	}
	enrollment, group, err := s.leadWithGroup(ctx, id, start)
	if err != nil {
		return nil, err
	}

	now := s.now()
	discount := enrollment.DiscountOn(start)
	result := prorationFor(group, start, discount)
	free := billing.IsFreeEnrollment(group.MonthlyPrice, discount)

	var payment *models.Payment
	if !free && result.ProratedAmount.IsPositive() {
		payment = &models.Payment{
			ID:              uuid.NewString(),
			EnrollmentID:    enrollment.ID,
			GroupID:         group.ID,
			StudentID:       enrollment.StudentID,
			PeriodStart:     result.PeriodStart,
			PeriodEnd:       result.PeriodEnd,
			Amount:          result.ProratedAmount,
			LessonsInPeriod: result.TotalLessonsInPeriod,
			LessonsMissed:   result.LessonsMissed,
			LessonsIncluded: result.LessonsIncluded,
			LessonPrice:     result.EffectiveLessonPrice,
			DiscountApplied: result.DiscountApplied(),
			IsProrated:      result.IsProrated,
			Status:          models.PaymentStatusPending,
			DueDate:         now,
			CreatedAt:       now,
		}
	}

	activated, err := s.enrollments.Activate(ctx, repository.ActivateParams{
		EnrollmentID:    enrollment.ID,
		LessonStartDate: start,
		BaseLessonPrice: result.BaseLessonPrice,
		PerLessonPrice:  result.EffectiveLessonPrice,
		NextPaymentDate: result.PeriodEnd,
		Payment:         payment,
		Now:             now,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStateChanged):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "enrollment is no longer a LEAD")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		default:
			return nil, internalError(err, "failed to activate enrollment")
		}
	}

	if payment != nil {
		s.metrics.RecordActivation(result.IsProrated, &payment.Amount)
	} else {
		s.metrics.RecordActivation(result.IsProrated, nil)
	}
	s.logger.Info("enrollment activated",
		zap.String("enrollment_id", activated.ID),
		zap.String("lesson_start_date", start.Format(dto.DateLayout)),
		zap.Bool("prorated", result.IsProrated),
		zap.Bool("payment_created", payment != nil),
	)
	return &dto.ActivationResult{Enrollment: activated, Payment: payment, Proration: result}, nil
}

// AssignDiscount sets the individual monthly discount. A non-recurring discount needs an
// expiry date. For an ACTIVE enrollment the per-lesson price is repriced from its lesson
// start date; existing payments are never touched.
func (s *EnrollmentService) AssignDiscount(ctx context.Context, id string, req dto.AssignDiscountRequest) (*models.Enrollment, error) {
	if err := validatePayload(s.validator, req); err != nil {
		return nil, err
	}
	if req.DiscountAmount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "discountAmount must not be negative")
	}
	if !req.IsRecurring && req.ValidUntil == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "validUntil is required for a one-off discount")
	}
	var validUntil *time.Time
	if req.ValidUntil != nil {
		d, err := parseDate(*req.ValidUntil, "validUntil")
		if err != nil {
			return nil, err
		}
		validUntil = &d
	}

	current, err := loadEnrollment(ctx, s.enrollments, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "discount cannot be assigned to a dropped enrollment")
	}
	group, err := s.groups.Get(ctx, current.GroupID)
	if err != nil {
		return nil, err
	}

	updated, err := s.enrollments.UpdateDiscount(ctx, id, s.now(), func(e *models.Enrollment) error {
		if e.Status.IsTerminal() {
			return appErrors.Clone(appErrors.ErrInvalidState, "discount cannot be assigned to a dropped enrollment")
		}
		e.IndividualDiscountAmount = req.DiscountAmount
		e.IsRecurringDiscount = req.IsRecurring
		e.DiscountValidUntil = validUntil
		e.DiscountReason = req.Reason
		e.IsFreeEnrollment = billing.IsFreeEnrollment(group.MonthlyPrice, req.DiscountAmount)
		if e.Status == models.EnrollmentStatusActive && e.LessonStartDate != nil {
			e.PerLessonPrice = prorationFor(group, *e.LessonStartDate, req.DiscountAmount).EffectiveLessonPrice
		}
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		default:
			return nil, internalError(err, "failed to assign discount")
		}
	}

	s.logger.Info("discount assigned",
		zap.String("enrollment_id", id),
		zap.String("amount", req.DiscountAmount.String()),
		zap.Bool("recurring", req.IsRecurring),
		zap.Bool("free", updated.IsFreeEnrollment),
	)
	return updated, nil
}

// QuotePrepayment prices paying months months upfront using the group's tiers and the
// individual discount in force today.
func (s *EnrollmentService) QuotePrepayment(ctx context.Context, id, months string) (*dto.PrepaymentQuoteResponse, error) {
	n, err := strconv.Atoi(months)
	if err != nil || n < 1 {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "months must be a positive integer")
	}
	enrollment, err := loadEnrollment(ctx, s.enrollments, id)
	if err != nil {
		return nil, err
	}
	if enrollment.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "enrollment is dropped")
	}
	group, err := s.groups.Get(ctx, enrollment.GroupID)
	if err != nil {
		return nil, err
	}

	tiers := make([]billing.DiscountTier, 0, len(group.Discounts))
	for _, d := range group.Discounts {
		tiers = append(tiers, billing.DiscountTier{Months: d.Months, Amount: d.DiscountAmount})
	}
	quote, err := billing.QuotePrepayment(group.MonthlyPrice, n, tiers, enrollment.DiscountOn(s.now()))
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInvalidInput, err.Error())
	}
	return &dto.PrepaymentQuoteResponse{EnrollmentID: enrollment.ID, Quote: quote}, nil
}

// ListPayments returns the enrollment's payment ledger.
func (s *EnrollmentService) ListPayments(ctx context.Context, id string) ([]models.Payment, error) {
	if _, err := loadEnrollment(ctx, s.enrollments, id); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByEnrollment(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to list payments")
	}
	return payments, nil
}

// ExportedFile is a rendered document ready for download.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportPayments renders the payment ledger as CSV or PDF.
func (s *EnrollmentService) ExportPayments(ctx context.Context, id, format string) (*ExportedFile, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "format must be csv or pdf")
	}
	payments, err := s.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}

	doc := export.Document{
		Title:   "Payment ledger",
		Summary: []export.Field{{Label: "Enrollment", Value: id}, {Label: "Payments", Value: strconv.Itoa(len(payments))}},
		Headers: []string{"Period", "Lessons", "Missed", "Included", "Lesson price", "Discount", "Amount", "Status", "Due"},
	}
	for _, p := range payments {
		doc.Rows = append(doc.Rows, []string{
			p.PeriodStart.Format(dto.DateLayout) + " - " + p.PeriodEnd.Format(dto.DateLayout),
			strconv.Itoa(p.LessonsInPeriod),
			strconv.Itoa(p.LessonsMissed),
			strconv.Itoa(p.LessonsIncluded),
			p.LessonPrice.String(),
			p.DiscountApplied.String(),
			p.Amount.String(),
			string(p.Status),
			p.DueDate.Format(dto.DateLayout),
		})
	}

	renderer, err := export.RendererFor(f)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, err.Error())
	}
	body, err := renderer.Render(doc)
	if err != nil {
		return nil, internalError(err, "failed to render payment ledger")
	}
	return &ExportedFile{
		Filename:    fmt.Sprintf("payments-%s.%s", id, f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}
