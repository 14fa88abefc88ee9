package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-billing-api/internal/dto"
	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/internal/repository"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
)

type freezeStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentFreeze, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.StudentFreeze, error)
	Create(ctx context.Context, freeze *models.StudentFreeze) error
	End(ctx context.Context, id string, now time.Time) (*models.StudentFreeze, error)
	Cancel(ctx context.Context, id string, now time.Time) (*models.StudentFreeze, error)
}

// Notifier receives billing events once their transaction has committed.
type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent, payload map[string]interface{})
}

// FreezeService pauses and resumes enrollments. Prepaid lessons and balances are left as they are.
type FreezeService struct {
	freezes     freezeStore
	enrollments enrollmentReader
	notifier    Notifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         Clock
}

// NewFreezeService wires the freeze workflow. notifier may be nil.
func NewFreezeService(
	freezes freezeStore,
	enrollments enrollmentReader,
	notifier Notifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *FreezeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FreezeService{
		freezes:     freezes,
		enrollments: enrollments,
		notifier:    notifier,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         utcNow,
	}
}

// WithClock overrides the time source.
func (s *FreezeService) WithClock(now Clock) *FreezeService {
	s.now = now
	return s
}

// Create freezes an ACTIVE enrollment. Only one ACTIVE freeze may exist per enrollment.
func (s *FreezeService) Create(ctx context.Context, enrollmentID string, req dto.CreateFreezeRequest, claims *models.JWTClaims) (*models.StudentFreeze, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validatePayload(s.validator, req); err != nil {
		return nil, err
	}
	start, err := parseDate(req.FreezeStartDate, "freezeStartDate")
	if err != nil {
		return nil, err
	}
	var end *time.Time
	if req.FreezeEndDate != nil {
		d, err := parseDate(*req.FreezeEndDate, "freezeEndDate")
		if err != nil {
			return nil, err
		}
		if !d.After(start) {
			return nil, appErrors.Clone(appErrors.ErrInvalidInput, "freezeEndDate must be after freezeStartDate")
		}
		end = &d
	}

	enrollment, err := loadEnrollment(ctx, s.enrollments, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("enrollment is %s, only an ACTIVE enrollment can be frozen", enrollment.Status))
	}

	freeze := &models.StudentFreeze{
		ID:              uuid.NewString(),
		EnrollmentID:    enrollmentID,
		Reason:          req.Reason,
		FreezeStartDate: start,
		FreezeEndDate:   end,
		Status:          models.FreezeStatusActive,
		CreatedBy:       claims.Actor(),
		CreatedAt:       s.now(),
	}
	if err := s.freezes.Create(ctx, freeze); err != nil {
		switch {
		case errors.Is(err, repository.ErrActiveFreezeExists):
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment already has an active freeze")
		case errors.Is(err, repository.ErrStateChanged):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "enrollment is no longer ACTIVE")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		default:
			return nil, internalError(err, "failed to create freeze")
		}
	}

	s.metrics.RecordFreeze(string(freeze.Status))
	s.logger.Info("enrollment frozen", zap.String("enrollment_id", enrollmentID), zap.String("freeze_id", freeze.ID))
	s.notify(ctx, models.EventFreezeCreated, freeze)
	return freeze, nil
}

// End closes an ACTIVE freeze and reactivates the enrollment.
func (s *FreezeService) End(ctx context.Context, id string) (*models.StudentFreeze, error) {
	return s.close(ctx, id, s.freezes.End, models.EventFreezeEnded)
}

// Cancel withdraws an ACTIVE freeze; the enrollment is reactivated only if it is still FROZEN.
func (s *FreezeService) Cancel(ctx context.Context, id string) (*models.StudentFreeze, error) {
	return s.close(ctx, id, s.freezes.Cancel, models.EventFreezeCancelled)
}

type freezeCloser func(ctx context.Context, id string, now time.Time) (*models.StudentFreeze, error)

func (s *FreezeService) close(ctx context.Context, id string, closeFn freezeCloser, event models.NotificationEvent) (*models.StudentFreeze, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.FreezeStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("freeze is already %s", current.Status))
	}

	freeze, err := closeFn(ctx, id, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStateChanged):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "freeze is no longer ACTIVE")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "freeze not found")
		default:
			return nil, internalError(err, "failed to update freeze")
		}
	}

	s.metrics.RecordFreeze(string(freeze.Status))
	s.logger.Info("freeze closed", zap.String("freeze_id", id), zap.String("status", string(freeze.Status)))
	s.notify(ctx, event, freeze)
	return freeze, nil
}

// Get returns a freeze by id.
func (s *FreezeService) Get(ctx context.Context, id string) (*models.StudentFreeze, error) {
	freeze, err := s.freezes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "freeze not found")
		}
		return nil, internalError(err, "failed to load freeze")
	}
	return freeze, nil
}

// List returns the freeze history of an enrollment.
func (s *FreezeService) List(ctx context.Context, enrollmentID string) ([]models.StudentFreeze, error) {
	if _, err := loadEnrollment(ctx, s.enrollments, enrollmentID); err != nil {
		return nil, err
	}
	freezes, err := s.freezes.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, internalError(err, "failed to list freezes")
	}
	return freezes, nil
}

func (s *FreezeService) notify(ctx context.Context, event models.NotificationEvent, freeze *models.StudentFreeze) {
	if s.notifier == nil {
		return
	}
	payload := map[string]interface{}{
		"freezeId":        freeze.ID,
		"enrollmentId":    freeze.EnrollmentID,
		"status":          freeze.Status,
		"freezeStartDate": freeze.FreezeStartDate.Format(dto.DateLayout),
	}
	if freeze.FreezeEndDate != nil {
		payload["freezeEndDate"] = freeze.FreezeEndDate.Format(dto.DateLayout)
	}
	if freeze.ActualEndDate != nil {
		payload["actualEndDate"] = freeze.ActualEndDate
	}
	s.notifier.Notify(ctx, event, payload)
}
