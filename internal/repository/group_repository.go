package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-billing-api/internal/models"
)

// GroupRepository reads group pricing, timetable and discount tiers.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID loads a group together with its weekly schedule and prepayment tiers.
// sql.ErrNoRows is returned when the group does not exist.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const groupQuery = `SELECT id, tenant_id, name, monthly_price, course_start_date, course_end_date, payment_type, lessons_per_payment_period
FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, groupQuery, id); err != nil {
		return nil, err
	}

	const scheduleQuery = `SELECT id, group_id, day_of_week, start_time, end_time
FROM lesson_schedules WHERE group_id = $1 ORDER BY day_of_week ASC`
	if err := r.db.SelectContext(ctx, &group.Schedules, scheduleQuery, id); err != nil {
		return nil, fmt.Errorf("list lesson schedules: %w", err)
	}

	const discountQuery = `SELECT id, group_id, months, discount_amount
FROM group_discounts WHERE group_id = $1 ORDER BY months ASC`
	if err := r.db.SelectContext(ctx, &group.Discounts, discountQuery, id); err != nil {
		return nil, fmt.Errorf("list group discounts: %w", err)
	}

	return &group, nil
}
