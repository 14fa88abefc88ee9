package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/internal/repository"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
)

var fixedNow = time.Date(2024, time.February, 15, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func requireAppError(t *testing.T, err error, target *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, appErrors.Is(err, target), "expected %s, got %v", target.Code, err)
}

// januaryGroup meets Mon/Wed/Fri from January to March 2024 at 300000 per month.
func januaryGroup() *models.Group {
	return &models.Group{
		ID:              "grp-1",
		TenantID:        "tenant-1",
		Name:            "English A1",
		MonthlyPrice:    decimal.NewFromInt(300000),
		CourseStartDate: day(2024, time.January, 1),
		CourseEndDate:   day(2024, time.March, 31),
		PaymentType:     models.PaymentTypeMonthly,
		Schedules: []models.LessonSchedule{
			{ID: "s1", GroupID: "grp-1", DayOfWeek: 1},
			{ID: "s3", GroupID: "grp-1", DayOfWeek: 3},
			{ID: "s5", GroupID: "grp-1", DayOfWeek: 5},
		},
		Discounts: []models.GroupDiscount{
			{ID: "d3", GroupID: "grp-1", Months: 3, DiscountAmount: decimal.NewFromInt(50000)},
		},
	}
}

func enrollmentWith(id string, status models.EnrollmentStatus) *models.Enrollment {
	return &models.Enrollment{
		ID:                       id,
		GroupID:                  "grp-1",
		StudentID:                "stu-1",
		Status:                   status,
		BaseLessonPrice:          decimal.Zero,
		PerLessonPrice:           decimal.Zero,
		IndividualDiscountAmount: decimal.Zero,
	}
}

type stubGroups struct {
	groups map[string]*models.Group
}

func (s *stubGroups) Get(_ context.Context, id string) (*models.Group, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	return g, nil
}

type stubEnrollments struct {
	mu          sync.Mutex
	items       map[string]*models.Enrollment
	findErr     error
	activateErr error
	activated   *repository.ActivateParams
	updated     int
}

func newStubEnrollments(items ...*models.Enrollment) *stubEnrollments {
	s := &stubEnrollments{items: map[string]*models.Enrollment{}}
	for _, e := range items {
		s.items[e.ID] = e
	}
	return s
}

func (s *stubEnrollments) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	e, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *e
	return &clone, nil
}

func (s *stubEnrollments) Activate(_ context.Context, params repository.ActivateParams) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activateErr != nil {
		return nil, s.activateErr
	}
	e, ok := s.items[params.EnrollmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if e.Status != models.EnrollmentStatusLead {
		return nil, repository.ErrStateChanged
	}
	s.activated = &params
	start := params.LessonStartDate
	next := params.NextPaymentDate
	e.Status = models.EnrollmentStatusActive
	e.LessonStartDate = &start
	e.BaseLessonPrice = params.BaseLessonPrice
	e.PerLessonPrice = params.PerLessonPrice
	e.NextPaymentDate = &next
	e.UpdatedAt = params.Now
	clone := *e
	return &clone, nil
}

func (s *stubEnrollments) UpdateDiscount(_ context.Context, id string, now time.Time, mutate repository.DiscountMutator) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *e
	if err := mutate(&clone); err != nil {
		return nil, err
	}
	clone.UpdatedAt = now
	s.items[id] = &clone
	s.updated++
	out := clone
	return &out, nil
}

type stubPayments struct {
	payments []models.Payment
	paid     decimal.Decimal
	err      error
}

func (s *stubPayments) ListByEnrollment(_ context.Context, enrollmentID string) ([]models.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := []models.Payment{}
	for _, p := range s.payments {
		if p.EnrollmentID == enrollmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPayments) SumPaid(context.Context, string, string) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.paid, nil
}

type sentNotification struct {
	event   models.NotificationEvent
	payload map[string]interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, event models.NotificationEvent, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{event: event, payload: payload})
}

func (n *recordingNotifier) events() []models.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.NotificationEvent, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.event)
	}
	return out
}

// stubFreezes mimics the locking rules of the freeze repository against stubEnrollments.
type stubFreezes struct {
	mu          sync.Mutex
	enrollments *stubEnrollments
	items       map[string]*models.StudentFreeze
	createErr   error
}

func newStubFreezes(enrollments *stubEnrollments) *stubFreezes {
	return &stubFreezes{enrollments: enrollments, items: map[string]*models.StudentFreeze{}}
}

func (s *stubFreezes) FindByID(_ context.Context, id string) (*models.StudentFreeze, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *f
	return &clone, nil
}

func (s *stubFreezes) ListByEnrollment(_ context.Context, enrollmentID string) ([]models.StudentFreeze, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.StudentFreeze{}
	for _, f := range s.items {
		if f.EnrollmentID == enrollmentID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *stubFreezes) Create(_ context.Context, freeze *models.StudentFreeze) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, f := range s.items {
		if f.EnrollmentID == freeze.EnrollmentID && f.Status == models.FreezeStatusActive {
			return repository.ErrActiveFreezeExists
		}
	}
	s.enrollments.mu.Lock()
	defer s.enrollments.mu.Unlock()
	e, ok := s.enrollments.items[freeze.EnrollmentID]
	if !ok {
		return sql.ErrNoRows
	}
	if e.Status != models.EnrollmentStatusActive {
		return repository.ErrStateChanged
	}
	e.Status = models.EnrollmentStatusFrozen
	clone := *freeze
	s.items[freeze.ID] = &clone
	return nil
}

func (s *stubFreezes) End(ctx context.Context, id string, now time.Time) (*models.StudentFreeze, error) {
	return s.close(id, models.FreezeStatusEnded, now)
}

func (s *stubFreezes) Cancel(ctx context.Context, id string, now time.Time) (*models.StudentFreeze, error) {
	return s.close(id, models.FreezeStatusCancelled, now)
}

func (s *stubFreezes) close(id string, status models.FreezeStatus, now time.Time) (*models.StudentFreeze, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if f.Status != models.FreezeStatusActive {
		return nil, repository.ErrStateChanged
	}
	f.Status = status
	f.ActualEndDate = &now
	s.enrollments.mu.Lock()
	if e, ok := s.enrollments.items[f.EnrollmentID]; ok && e.Status == models.EnrollmentStatusFrozen {
		e.Status = models.EnrollmentStatusActive
	}
	s.enrollments.mu.Unlock()
	clone := *f
	return &clone, nil
}

// stubRefunds mimics the refund repository against stubEnrollments.
type stubRefunds struct {
	mu          sync.Mutex
	enrollments *stubEnrollments
	items       map[string]*models.RefundRequest
}

func newStubRefunds(enrollments *stubEnrollments) *stubRefunds {
	return &stubRefunds{enrollments: enrollments, items: map[string]*models.RefundRequest{}}
}

func (s *stubRefunds) FindByID(_ context.Context, id string) (*models.RefundRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *r
	return &clone, nil
}

func (s *stubRefunds) Create(_ context.Context, refund *models.RefundRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.items {
		if r.StudentID == refund.StudentID && r.GroupID == refund.GroupID && r.Status == models.RefundStatusPending {
			return repository.ErrPendingRefundExists
		}
	}
	clone := *refund
	s.items[refund.ID] = &clone
	return nil
}

func (s *stubRefunds) Approve(_ context.Context, d repository.Decision) (*models.RefundRequest, error) {
	return s.process(d, models.RefundStatusApproved)
}

func (s *stubRefunds) Reject(_ context.Context, d repository.Decision) (*models.RefundRequest, error) {
	return s.process(d, models.RefundStatusRejected)
}

func (s *stubRefunds) process(d repository.Decision, status models.RefundStatus) (*models.RefundRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[d.RefundID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if r.Status != models.RefundStatusPending {
		return nil, repository.ErrStateChanged
	}
	r.Status = status
	r.ProcessedBy = &d.ProcessedBy
	r.ProcessingNotes = d.Notes
	if status == models.RefundStatusApproved {
		at := d.At
		r.CompletedAt = &at
		s.enrollments.mu.Lock()
		if e, ok := s.enrollments.items[r.EnrollmentID]; ok {
			reason := models.RefundRemovalReason
			e.Status = models.EnrollmentStatusDropped
			e.RemovalReason = &reason
			e.RemovedAt = &at
		}
		s.enrollments.mu.Unlock()
	}
	clone := *r
	return &clone, nil
}
