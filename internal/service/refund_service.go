package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-billing-api/internal/billing"
	"github.com/noah-isme/edu-billing-api/internal/dto"
	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/internal/repository"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
	"github.com/noah-isme/edu-billing-api/pkg/export"
)

type refundStore interface {
	FindByID(ctx context.Context, id string) (*models.RefundRequest, error)
	Create(ctx context.Context, refund *models.RefundRequest) error
	Approve(ctx context.Context, d repository.Decision) (*models.RefundRequest, error)
	Reject(ctx context.Context, d repository.Decision) (*models.RefundRequest, error)
}

type paidTotaler interface {
	SumPaid(ctx context.Context, studentID, groupID string) (decimal.Decimal, error)
}

// RefundService computes, records and decides refund requests.
//
// Attendance is not tracked: every lesson held between the course start and today
// (capped at the course end) counts as attended.
type RefundService struct {
	refunds     refundStore
	enrollments enrollmentReader
	groups      groupReader
	payments    paidTotaler
	notifier    Notifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         Clock
}

// NewRefundService wires the refund workflow. notifier may be nil.
func NewRefundService(
	refunds refundStore,
	enrollments enrollmentReader,
	groups groupReader,
	payments paidTotaler,
	notifier Notifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *RefundService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefundService{
		refunds:     refunds,
		enrollments: enrollments,
		groups:      groups,
		payments:    payments,
		notifier:    notifier,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         utcNow,
	}
}

// WithClock overrides the time source.
func (s *RefundService) WithClock(now Clock) *RefundService {
	s.now = now
	return s
}

func refundable(status models.EnrollmentStatus) bool {
	switch status {
	case models.EnrollmentStatusActive, models.EnrollmentStatusFrozen, models.EnrollmentStatusDropped:
		return true
	default:
		return false
	}
}

// breakdown loads the enrollment and prices its refund as of now.
func (s *RefundService) breakdown(ctx context.Context, enrollmentID string) (*models.Enrollment, billing.RefundBreakdown, error) {
	enrollment, err := loadEnrollment(ctx, s.enrollments, enrollmentID)
	if err != nil {
		return nil, billing.RefundBreakdown{}, err
	}
	if !refundable(enrollment.Status) {
		return nil, billing.RefundBreakdown{}, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("enrollment is %s, a refund needs an activated enrollment", enrollment.Status))
	}
	group, err := s.groups.Get(ctx, enrollment.GroupID)
	if err != nil {
		return nil, billing.RefundBreakdown{}, err
	}
	totalPaid, err := s.payments.SumPaid(ctx, enrollment.StudentID, enrollment.GroupID)
	if err != nil {
		return nil, billing.RefundBreakdown{}, internalError(err, "failed to sum payments")
	}

	held := billing.ElapsedLessons(group.ScheduleDays(), group.CourseStartDate, group.CourseEndDate, s.now())
	return enrollment, billing.CalculateRefund(totalPaid, held, held), nil
}

// Preview returns the refund a request would carry right now without recording it.
func (s *RefundService) Preview(ctx context.Context, enrollmentID string) (*dto.RefundPreview, error) {
	enrollment, breakdown, err := s.breakdown(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	return &dto.RefundPreview{EnrollmentID: enrollment.ID, Breakdown: breakdown}, nil
}

// Create records a PENDING refund request for the enrollment's student and group.
func (s *RefundService) Create(ctx context.Context, enrollmentID string, req dto.CreateRefundRequest) (*models.RefundRequest, error) {
	if err := validatePayload(s.validator, req); err != nil {
		return nil, err
	}
	enrollment, breakdown, err := s.breakdown(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if !breakdown.TotalPaid.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "student has no paid payments for this group")
	}

	refund := &models.RefundRequest{
		ID:              uuid.NewString(),
		EnrollmentID:    enrollment.ID,
		GroupID:         enrollment.GroupID,
		StudentID:       enrollment.StudentID,
		RequestReason:   req.Reason,
		TotalPaid:       breakdown.TotalPaid,
		LessonsAttended: breakdown.LessonsAttended,
		TotalLessons:    breakdown.TotalLessons,
		PricePerLesson:  breakdown.PricePerLesson,
		RefundAmount:    breakdown.RefundAmount,
		Status:          models.RefundStatusPending,
		CreatedAt:       s.now(),
	}
	if err := s.refunds.Create(ctx, refund); err != nil {
		switch {
		case errors.Is(err, repository.ErrPendingRefundExists):
			return nil, appErrors.Clone(appErrors.ErrConflict, "a pending refund already exists for this student and group")
		case errors.Is(err, repository.ErrStateChanged):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "enrollment is no longer refundable")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		default:
			return nil, internalError(err, "failed to create refund request")
		}
	}

	s.metrics.RecordRefund(string(refund.Status), refund.RefundAmount)
	s.logger.Info("refund requested",
		zap.String("refund_id", refund.ID),
		zap.String("enrollment_id", enrollment.ID),
		zap.String("amount", refund.RefundAmount.String()),
	)
	s.notify(ctx, models.EventRefundCreated, refund)
	return refund, nil
}

// Process approves or rejects a PENDING refund. Approval drops the enrollment in the same transaction.
func (s *RefundService) Process(ctx context.Context, refundID string, req dto.ProcessRefundRequest, claims *models.JWTClaims) (*models.RefundRequest, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validatePayload(s.validator, req); err != nil {
		return nil, err
	}
	decision := models.RefundStatus(strings.ToUpper(strings.TrimSpace(req.Decision)))
	if decision != models.RefundStatusApproved && decision != models.RefundStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "decision must be APPROVED or REJECTED")
	}

	current, err := s.Get(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.RefundStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("refund is already %s", current.Status))
	}

	d := repository.Decision{RefundID: refundID, ProcessedBy: claims.Actor(), Notes: req.Notes, At: s.now()}
	var refund *models.RefundRequest
	event := models.EventRefundRejected
	if decision == models.RefundStatusApproved {
		refund, err = s.refunds.Approve(ctx, d)
		event = models.EventRefundApproved
	} else {
		refund, err = s.refunds.Reject(ctx, d)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStateChanged):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "refund is no longer PENDING")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "refund not found")
		default:
			return nil, internalError(err, "failed to process refund")
		}
	}

	s.metrics.RecordRefund(string(refund.Status), refund.RefundAmount)
	s.logger.Info("refund processed",
		zap.String("refund_id", refund.ID),
		zap.String("decision", string(refund.Status)),
		zap.String("processed_by", claims.Actor()),
	)
	s.notify(ctx, event, refund)
	return refund, nil
}

// Get returns a refund request by id.
func (s *RefundService) Get(ctx context.Context, id string) (*models.RefundRequest, error) {
	refund, err := s.refunds.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "refund not found")
		}
		return nil, internalError(err, "failed to load refund")
	}
	return refund, nil
}

// ExportStatement renders a PDF statement of a refund request.
func (s *RefundService) ExportStatement(ctx context.Context, id string) (*ExportedFile, error) {
	refund, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	processed := "-"
	if refund.ProcessedBy != nil {
		processed = *refund.ProcessedBy
	}
	completed := "-"
	if refund.CompletedAt != nil {
		completed = refund.CompletedAt.Format(time.RFC3339)
	}
	doc := export.Document{
		Title: "Refund statement",
		Summary: []export.Field{
			{Label: "Refund", Value: refund.ID},
			{Label: "Enrollment", Value: refund.EnrollmentID},
			{Label: "Student", Value: refund.StudentID},
			{Label: "Status", Value: string(refund.Status)},
			{Label: "Requested", Value: refund.CreatedAt.Format(time.RFC3339)},
			{Label: "Processed by", Value: processed},
			{Label: "Completed", Value: completed},
			{Label: "Reason", Value: refund.RequestReason},
		},
		Headers: []string{"Total paid", "Lessons attended", "Total lessons", "Price per lesson", "Refund amount"},
		Rows: [][]string{{
			refund.TotalPaid.String(),
			strconv.Itoa(refund.LessonsAttended),
			strconv.Itoa(refund.TotalLessons),
			refund.PricePerLesson.StringFixed(2),
			refund.RefundAmount.String(),
		}},
	}
	body, err := export.NewPDFExporter().Render(doc)
	if err != nil {
		return nil, internalError(err, "failed to render refund statement")
	}
	return &ExportedFile{
		Filename:    fmt.Sprintf("refund-%s.pdf", refund.ID),
		ContentType: export.FormatPDF.ContentType(),
		Body:        body,
	}, nil
}

func (s *RefundService) notify(ctx context.Context, event models.NotificationEvent, refund *models.RefundRequest) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, event, map[string]interface{}{
		"refundId":     refund.ID,
		"enrollmentId": refund.EnrollmentID,
		"studentId":    refund.StudentID,
		"groupId":      refund.GroupID,
		"status":       refund.Status,
		"refundAmount": refund.RefundAmount.String(),
	})
}
