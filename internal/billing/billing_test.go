package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monWedFri = []int{1, 3, 5}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestISOWeekday(t *testing.T) {
	assert.Equal(t, 1, ISOWeekday(date(2024, time.January, 1)))
	assert.Equal(t, 6, ISOWeekday(date(2024, time.January, 6)))
	assert.Equal(t, 7, ISOWeekday(date(2024, time.January, 7)))
}

func TestCountLessons(t *testing.T) {
	cases := []struct {
		name  string
		days  []int
		start time.Time
		end   time.Time
		want  int
	}{
		{"january mon-wed-fri", monWedFri, date(2024, time.January, 1), date(2024, time.January, 31), 14},
		{"single matching day", monWedFri, date(2024, time.January, 3), date(2024, time.January, 3), 1},
		{"single non matching day", monWedFri, date(2024, time.January, 2), date(2024, time.January, 2), 0},
		{"start after end", monWedFri, date(2024, time.February, 1), date(2024, time.January, 1), 0},
		{"sunday only", []int{7}, date(2024, time.January, 1), date(2024, time.January, 31), 4},
		{"empty schedule", nil, date(2024, time.January, 1), date(2024, time.January, 31), 0},
		{"out of range days ignored", []int{0, 8, 1}, date(2024, time.January, 1), date(2024, time.January, 7), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CountLessons(tc.days, tc.start, tc.end))
		})
	}
}

func TestCountLessonsIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2024, time.January, 3, 23, 59, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 3, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, CountLessons(monWedFri, start, end))
}

func TestCountLessonsStartAfterEndIsZero(t *testing.T) {
	base := date(2024, time.March, 15)
	for offset := 1; offset <= 60; offset++ {
		assert.Zero(t, CountLessons([]int{1, 2, 3, 4, 5, 6, 7}, base, base.AddDate(0, 0, -offset)))
	}
}

func TestResolveLessonPrice(t *testing.T) {
	price := ResolveLessonPrice(decimal.NewFromInt(300000), 13, decimal.Zero)
	assert.True(t, price.Base.Equal(decimal.NewFromInt(23077)))
	assert.True(t, price.Effective.Equal(decimal.NewFromInt(23077)))

	discounted := ResolveLessonPrice(decimal.NewFromInt(300000), 12, decimal.NewFromInt(60000))
	assert.True(t, discounted.Base.Equal(decimal.NewFromInt(25000)))
	assert.True(t, discounted.DiscountPerLesson.Equal(decimal.NewFromInt(5000)))
	assert.True(t, discounted.Effective.Equal(decimal.NewFromInt(20000)))

	empty := ResolveLessonPrice(decimal.NewFromInt(300000), 0, decimal.NewFromInt(1000))
	assert.True(t, empty.Base.IsZero())
	assert.True(t, empty.Effective.IsZero())
}

func TestResolveLessonPriceNeverNegative(t *testing.T) {
	for _, discount := range []int64{0, 299999, 300000, 300001, 10_000_000} {
		price := ResolveLessonPrice(decimal.NewFromInt(300000), 13, decimal.NewFromInt(discount))
		assert.False(t, price.Effective.IsNegative(), "discount %d", discount)
	}
}

func TestCalculateProrationMidMonthStart(t *testing.T) {
	result := CalculateProration(ProrationInput{
		MonthlyPrice:       decimal.NewFromInt(300000),
		CourseStart:        date(2024, time.January, 1),
		CourseEnd:          date(2024, time.March, 31),
		ScheduleDays:       monWedFri,
		LessonStartDate:    date(2024, time.January, 10),
		IndividualDiscount: decimal.Zero,
	})

	assert.Equal(t, date(2024, time.January, 1), result.PeriodStart)
	assert.Equal(t, date(2024, time.January, 31), result.PeriodEnd)
	// Jan 2024 starts on a Monday: 5 Mondays, 5 Wednesdays, 4 Fridays.
	assert.Equal(t, 14, result.TotalLessonsInPeriod)
	// Jan 1, 3, 5 and 8 are before the 10th.
	assert.Equal(t, 4, result.LessonsMissed)
	assert.Equal(t, 10, result.LessonsIncluded)
	assert.True(t, result.BaseLessonPrice.Equal(decimal.NewFromInt(21429)))
	assert.True(t, result.ProratedAmount.Equal(decimal.NewFromInt(214290)))
	assert.True(t, result.IsProrated)
}

func TestCalculateProrationClipsToCourseWindow(t *testing.T) {
	result := CalculateProration(ProrationInput{
		MonthlyPrice:    decimal.NewFromInt(300000),
		CourseStart:     date(2024, time.January, 15),
		CourseEnd:       date(2024, time.January, 26),
		ScheduleDays:    monWedFri,
		LessonStartDate: date(2024, time.January, 15),
	})

	assert.Equal(t, date(2024, time.January, 15), result.PeriodStart)
	assert.Equal(t, date(2024, time.January, 26), result.PeriodEnd)
	assert.Equal(t, 6, result.TotalLessonsInPeriod)
	assert.Zero(t, result.LessonsMissed)
	assert.False(t, result.IsProrated)
	assert.True(t, result.ProratedAmount.Equal(decimal.NewFromInt(300000)))
}

func TestCalculateProrationNoOverlap(t *testing.T) {
	result := CalculateProration(ProrationInput{
		MonthlyPrice:    decimal.NewFromInt(300000),
		CourseStart:     date(2024, time.March, 1),
		CourseEnd:       date(2024, time.March, 31),
		ScheduleDays:    monWedFri,
		LessonStartDate: date(2024, time.January, 10),
	})

	assert.Zero(t, result.TotalLessonsInPeriod)
	assert.Zero(t, result.LessonsIncluded)
	assert.True(t, result.ProratedAmount.IsZero())
	assert.True(t, result.EffectiveLessonPrice.IsZero())
}

func TestCalculateProrationFreeEnrollment(t *testing.T) {
	monthly := decimal.NewFromInt(300000)
	require.True(t, IsFreeEnrollment(monthly, monthly))

	result := CalculateProration(ProrationInput{
		MonthlyPrice:       monthly,
		CourseStart:        date(2024, time.January, 1),
		CourseEnd:          date(2024, time.March, 31),
		ScheduleDays:       monWedFri,
		LessonStartDate:    date(2024, time.January, 10),
		IndividualDiscount: monthly,
	})

	assert.True(t, result.EffectiveLessonPrice.IsZero())
	assert.True(t, result.ProratedAmount.IsZero())
	assert.True(t, result.DiscountApplied().Equal(decimal.NewFromInt(214290)))
}

func TestCalculateProrationInvariants(t *testing.T) {
	monthly := decimal.NewFromInt(450000)
	discounts := []int64{0, 50000, 450000, 900000}
	for day := 1; day <= 29; day++ {
		for _, discount := range discounts {
			result := CalculateProration(ProrationInput{
				MonthlyPrice:       monthly,
				CourseStart:        date(2024, time.February, 1),
				CourseEnd:          date(2024, time.June, 30),
				ScheduleDays:       []int{2, 4, 6},
				LessonStartDate:    date(2024, time.February, day),
				IndividualDiscount: decimal.NewFromInt(discount),
			})
			assert.Equal(t, result.TotalLessonsInPeriod, result.LessonsIncluded+result.LessonsMissed)
			assert.False(t, result.EffectiveLessonPrice.IsNegative())
			want := result.EffectiveLessonPrice.Mul(decimal.NewFromInt(int64(result.LessonsIncluded)))
			assert.True(t, result.ProratedAmount.Equal(want))
		}
	}
}

func TestQuotePrepayment(t *testing.T) {
	tiers := []DiscountTier{
		{Months: 3, Amount: decimal.NewFromInt(50000)},
		{Months: 6, Amount: decimal.NewFromInt(150000)},
	}

	quote, err := QuotePrepayment(decimal.NewFromInt(300000), 3, tiers, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, quote.GrossAmount.Equal(decimal.NewFromInt(900000)))
	assert.True(t, quote.GroupDiscount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, quote.TotalAmount.Equal(decimal.NewFromInt(850000)))

	noTier, err := QuotePrepayment(decimal.NewFromInt(300000), 4, tiers, decimal.NewFromInt(10000))
	require.NoError(t, err)
	assert.True(t, noTier.GroupDiscount.IsZero())
	assert.True(t, noTier.TotalAmount.Equal(decimal.NewFromInt(1160000)))

	clamped, err := QuotePrepayment(decimal.NewFromInt(300000), 6, tiers, decimal.NewFromInt(400000))
	require.NoError(t, err)
	assert.True(t, clamped.TotalAmount.IsZero())

	_, err = QuotePrepayment(decimal.NewFromInt(300000), 0, tiers, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidMonths)
}

func TestCalculateRefund(t *testing.T) {
	paid := decimal.NewFromInt(900000)

	full := CalculateRefund(paid, 30, 30)
	assert.True(t, full.RefundAmount.IsZero())

	partial := CalculateRefund(paid, 10, 30)
	assert.True(t, partial.PricePerLesson.Equal(decimal.NewFromInt(30000)))
	assert.True(t, partial.RefundAmount.Equal(decimal.NewFromInt(600000)))

	none := CalculateRefund(paid, 0, 0)
	assert.True(t, none.RefundAmount.IsZero())

	over := CalculateRefund(paid, 45, 30)
	assert.True(t, over.RefundAmount.IsZero())
}

func TestCalculateRefundWithinBounds(t *testing.T) {
	paid := decimal.NewFromInt(100)
	for total := 0; total <= 13; total++ {
		for attended := 0; attended <= total+2; attended++ {
			out := CalculateRefund(paid, attended, total)
			assert.False(t, out.RefundAmount.IsNegative())
			assert.True(t, out.RefundAmount.LessThanOrEqual(paid))
		}
	}
}

func TestElapsedLessons(t *testing.T) {
	courseStart := date(2024, time.January, 1)
	courseEnd := date(2024, time.January, 31)

	assert.Equal(t, 3, ElapsedLessons(monWedFri, courseStart, courseEnd, date(2024, time.January, 6)))
	assert.Equal(t, 14, ElapsedLessons(monWedFri, courseStart, courseEnd, date(2024, time.May, 1)))
	assert.Zero(t, ElapsedLessons(monWedFri, courseStart, courseEnd, date(2023, time.December, 1)))
}
