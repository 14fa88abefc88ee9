package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/edu-billing-api/internal/billing"
	"github.com/noah-isme/edu-billing-api/internal/dto"
	"github.com/noah-isme/edu-billing-api/internal/models"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
)

// Clock returns the current instant. Services default to UTC wall time.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

type groupReader interface {
	Get(ctx context.Context, id string) (*models.Group, error)
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

func validatePayload(v *validator.Validate, payload interface{}) error {
	if err := v.Struct(payload); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload")
	}
	return nil
}

func parseDate(raw, field string) (time.Time, error) {
	t, err := time.Parse(dto.DateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
	}
	return t, nil
}

func internalError(err error, message string) error {
	return appErrors.WrapAs(err, appErrors.ErrInternal, message)
}

func loadEnrollment(ctx context.Context, repo enrollmentReader, id string) (*models.Enrollment, error) {
	enrollment, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, internalError(err, "failed to load enrollment")
	}
	return enrollment, nil
}

// ensureWithinCourse rejects dates outside the inclusive course window.
func ensureWithinCourse(group *models.Group, date time.Time, field string) error {
	d := billing.DateOf(date)
	if d.Before(billing.DateOf(group.CourseStartDate)) || d.After(billing.DateOf(group.CourseEndDate)) {
		return appErrors.Clone(appErrors.ErrOutOfRange, fmt.Sprintf("%s must be between %s and %s",
			field, group.CourseStartDate.Format(dto.DateLayout), group.CourseEndDate.Format(dto.DateLayout)))
	}
	return nil
}

func prorationFor(group *models.Group, lessonStart time.Time, discount decimal.Decimal) billing.ProrationResult {
	return billing.CalculateProration(billing.ProrationInput{
		MonthlyPrice:       group.MonthlyPrice,
		CourseStart:        group.CourseStartDate,
		CourseEnd:          group.CourseEndDate,
		ScheduleDays:       group.ScheduleDays(),
		LessonStartDate:    lessonStart,
		IndividualDiscount: discount,
	})
}
