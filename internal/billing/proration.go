package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProrationInput carries the group pricing data needed to bill the first period.
type ProrationInput struct {
	MonthlyPrice       decimal.Decimal
	CourseStart        time.Time
	CourseEnd          time.Time
	ScheduleDays       []int
	LessonStartDate    time.Time
	IndividualDiscount decimal.Decimal
}

// ProrationResult is the breakdown of the billing period containing the lesson start date.
type ProrationResult struct {
	PeriodStart          time.Time       `json:"periodStart"`
	PeriodEnd            time.Time       `json:"periodEnd"`
	TotalLessonsInPeriod int             `json:"totalLessonsInPeriod"`
	LessonsMissed        int             `json:"lessonsMissed"`
	LessonsIncluded      int             `json:"lessonsIncluded"`
	BaseLessonPrice      decimal.Decimal `json:"baseLessonPrice"`
	DiscountPerLesson    decimal.Decimal `json:"discountPerLesson"`
	EffectiveLessonPrice decimal.Decimal `json:"effectiveLessonPrice"`
	ProratedAmount       decimal.Decimal `json:"proratedAmount"`
	IsProrated           bool            `json:"isProrated"`
}

// DiscountApplied is the total individual discount granted on the included lessons.
func (r ProrationResult) DiscountApplied() decimal.Decimal {
	return r.BaseLessonPrice.Sub(r.EffectiveLessonPrice).Mul(decimal.NewFromInt(int64(r.LessonsIncluded)))
}

// CalculateProration bills the calendar month of the lesson start date, clipped to the
// course window. Lessons held in the period before the start date are not charged.
func CalculateProration(in ProrationInput) ProrationResult {
	start := DateOf(in.LessonStartDate)
	monthStart, monthEnd := MonthBounds(start)
	periodStart := maxDate(monthStart, DateOf(in.CourseStart))
	periodEnd := minDate(monthEnd, DateOf(in.CourseEnd))

	result := ProrationResult{
		PeriodStart:          periodStart,
		PeriodEnd:            periodEnd,
		BaseLessonPrice:      decimal.Zero,
		DiscountPerLesson:    decimal.Zero,
		EffectiveLessonPrice: decimal.Zero,
		ProratedAmount:       decimal.Zero,
	}
	if periodStart.After(periodEnd) {
		return result
	}

	total := CountLessons(in.ScheduleDays, periodStart, periodEnd)
	missed := 0
	if start.After(periodStart) {
		missed = CountLessons(in.ScheduleDays, periodStart, start.AddDate(0, 0, -1))
	}
	if missed > total {
		missed = total
	}
	included := total - missed

	price := ResolveLessonPrice(in.MonthlyPrice, total, in.IndividualDiscount)

	result.TotalLessonsInPeriod = total
	result.LessonsMissed = missed
	result.LessonsIncluded = included
	result.BaseLessonPrice = price.Base
	result.DiscountPerLesson = price.DiscountPerLesson
	result.EffectiveLessonPrice = price.Effective
	result.ProratedAmount = price.Effective.Mul(decimal.NewFromInt(int64(included)))
	result.IsProrated = missed > 0
	return result
}
