package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType selects how a group bills its students.
type PaymentType string

// Supported payment types.
const (
	PaymentTypeMonthly     PaymentType = "MONTHLY"
	PaymentTypeSameDate    PaymentType = "SAME_DATE"
	PaymentTypeLessonCount PaymentType = "LESSON_COUNT"
)

// Group is a course offering with its price, course window and weekly timetable.
type Group struct {
	ID                      string           `db:"id" json:"id"`
	TenantID                string           `db:"tenant_id" json:"tenantId"`
	Name                    string           `db:"name" json:"name"`
	MonthlyPrice            decimal.Decimal  `db:"monthly_price" json:"monthlyPrice"`
	CourseStartDate         time.Time        `db:"course_start_date" json:"courseStartDate"`
	CourseEndDate           time.Time        `db:"course_end_date" json:"courseEndDate"`
	PaymentType             PaymentType      `db:"payment_type" json:"paymentType"`
	LessonsPerPaymentPeriod *int             `db:"lessons_per_payment_period" json:"lessonsPerPaymentPeriod,omitempty"`
	Schedules               []LessonSchedule `db:"-" json:"schedules"`
	Discounts               []GroupDiscount  `db:"-" json:"discounts"`
}

// ScheduleDays returns the ISO weekdays (1=Monday..7=Sunday) the group meets on.
func (g *Group) ScheduleDays() []int {
	days := make([]int, 0, len(g.Schedules))
	for _, s := range g.Schedules {
		days = append(days, s.DayOfWeek)
	}
	return days
}

// LessonSchedule is one weekly lesson slot. DayOfWeek uses ISO numbering.
type LessonSchedule struct {
	ID        string `db:"id" json:"id"`
	GroupID   string `db:"group_id" json:"groupId"`
	DayOfWeek int    `db:"day_of_week" json:"dayOfWeek"`
	StartTime string `db:"start_time" json:"startTime"`
	EndTime   string `db:"end_time" json:"endTime"`
}

// GroupDiscount is a lump discount for prepaying exactly Months months.
type GroupDiscount struct {
	ID             string          `db:"id" json:"id"`
	GroupID        string          `db:"group_id" json:"groupId"`
	Months         int             `db:"months" json:"months"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discountAmount"`
}
