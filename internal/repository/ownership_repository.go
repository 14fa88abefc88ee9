package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-billing-api/internal/models"
)

// tenantQueries resolves the owning tenant of each guarded resource kind through its group.
var tenantQueries = map[models.ResourceKind]string{
	models.ResourceEnrollment: `SELECT g.tenant_id FROM enrollments e JOIN groups g ON g.id = e.group_id WHERE e.id = $1 AND e.deleted_at IS NULL`,
	models.ResourceFreeze: `SELECT g.tenant_id FROM student_freezes f
JOIN enrollments e ON e.id = f.enrollment_id
JOIN groups g ON g.id = e.group_id WHERE f.id = $1`,
	models.ResourceRefund: `SELECT g.tenant_id FROM refund_requests r JOIN groups g ON g.id = r.group_id WHERE r.id = $1`,
	models.ResourceGroup:  `SELECT tenant_id FROM groups WHERE id = $1`,
}

// OwnershipRepository answers which tenant a billing resource belongs to.
type OwnershipRepository struct {
	db *sqlx.DB
}

// NewOwnershipRepository constructs the repository.
func NewOwnershipRepository(db *sqlx.DB) *OwnershipRepository {
	return &OwnershipRepository{db: db}
}

// TenantOf returns the tenant id owning ref, or sql.ErrNoRows when the resource is unknown.
func (r *OwnershipRepository) TenantOf(ctx context.Context, ref models.ResourceRef) (string, error) {
	query, ok := tenantQueries[ref.Kind]
	if !ok {
		return "", fmt.Errorf("unknown resource kind %q", ref.Kind)
	}
	var tenantID string
	if err := r.db.GetContext(ctx, &tenantID, query, ref.ID); err != nil {
		return "", err
	}
	return tenantID, nil
}
