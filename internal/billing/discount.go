package billing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidMonths is returned when a prepayment quote is requested for less than one month.
var ErrInvalidMonths = errors.New("months must be at least 1")

// LessonPrice is the per-lesson price split for one billing period.
type LessonPrice struct {
	Base              decimal.Decimal `json:"baseLessonPrice"`
	DiscountPerLesson decimal.Decimal `json:"discountPerLesson"`
	Effective         decimal.Decimal `json:"effectiveLessonPrice"`
}

// RoundCurrency rounds to whole currency units, half away from zero.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// ResolveLessonPrice spreads the monthly price and the monthly individual discount over
// the lessons of the period. Both shares are 0 when the period has no lessons and the
// effective price never drops below zero.
func ResolveLessonPrice(monthlyPrice decimal.Decimal, totalLessons int, individualDiscount decimal.Decimal) LessonPrice {
	if totalLessons <= 0 {
		return LessonPrice{Base: decimal.Zero, DiscountPerLesson: decimal.Zero, Effective: decimal.Zero}
	}
	lessons := decimal.NewFromInt(int64(totalLessons))
	base := RoundCurrency(monthlyPrice.Div(lessons))
	perLesson := RoundCurrency(individualDiscount.Div(lessons))

	effective := base.Sub(perLesson)
	if effective.IsNegative() {
		effective = decimal.Zero
	}
	return LessonPrice{Base: base, DiscountPerLesson: perLesson, Effective: effective}
}

// IsFreeEnrollment reports whether the individual discount covers the whole monthly price.
func IsFreeEnrollment(monthlyPrice, individualDiscount decimal.Decimal) bool {
	return individualDiscount.GreaterThanOrEqual(monthlyPrice)
}

// DiscountTier is a lump discount granted when exactly Months months are paid at once.
type DiscountTier struct {
	Months int
	Amount decimal.Decimal
}

// PrepaymentQuote is the price of paying several months in advance.
type PrepaymentQuote struct {
	Months             int             `json:"months"`
	GrossAmount        decimal.Decimal `json:"grossAmount"`
	GroupDiscount      decimal.Decimal `json:"groupDiscount"`
	IndividualDiscount decimal.Decimal `json:"individualDiscount"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
}

// QuotePrepayment prices a multi-month prepayment. Only a tier whose month count matches
// exactly applies; the individual discount is taken once per month.
func QuotePrepayment(monthlyPrice decimal.Decimal, months int, tiers []DiscountTier, individualDiscount decimal.Decimal) (PrepaymentQuote, error) {
	if months < 1 {
		return PrepaymentQuote{}, ErrInvalidMonths
	}
	m := decimal.NewFromInt(int64(months))
	quote := PrepaymentQuote{
		Months:             months,
		GrossAmount:        monthlyPrice.Mul(m),
		GroupDiscount:      decimal.Zero,
		IndividualDiscount: individualDiscount.Mul(m),
	}
	for _, tier := range tiers {
		if tier.Months == months {
			quote.GroupDiscount = tier.Amount
			break
		}
	}
	total := quote.GrossAmount.Sub(quote.GroupDiscount).Sub(quote.IndividualDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	quote.TotalAmount = RoundCurrency(total)
	return quote, nil
}
