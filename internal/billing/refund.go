package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundBreakdown records how a refund amount was reached.
type RefundBreakdown struct {
	TotalPaid       decimal.Decimal `json:"totalPaid"`
	LessonsAttended int             `json:"lessonsAttended"`
	TotalLessons    int             `json:"totalLessons"`
	PricePerLesson  decimal.Decimal `json:"pricePerLesson"`
	RefundAmount    decimal.Decimal `json:"refundAmount"`
}

// CalculateRefund returns the unused part of totalPaid, rounded to whole units and
// clamped to [0, totalPaid].
func CalculateRefund(totalPaid decimal.Decimal, lessonsAttended, totalLessons int) RefundBreakdown {
	out := RefundBreakdown{
		TotalPaid:       totalPaid,
		LessonsAttended: lessonsAttended,
		TotalLessons:    totalLessons,
		PricePerLesson:  decimal.Zero,
		RefundAmount:    decimal.Zero,
	}
	if totalLessons <= 0 {
		return out
	}
	out.PricePerLesson = totalPaid.Div(decimal.NewFromInt(int64(totalLessons)))
	consumed := out.PricePerLesson.Mul(decimal.NewFromInt(int64(lessonsAttended)))

	refund := RoundCurrency(totalPaid.Sub(consumed))
	if refund.IsNegative() {
		refund = decimal.Zero
	}
	if refund.GreaterThan(totalPaid) {
		refund = totalPaid
	}
	out.RefundAmount = refund
	return out
}

// ElapsedLessons counts lessons held from the course start up to asOf, never past the course end.
func ElapsedLessons(days []int, courseStart, courseEnd, asOf time.Time) int {
	return CountLessons(days, courseStart, minDate(DateOf(asOf), DateOf(courseEnd)))
}
