package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/pkg/jobs"
	"github.com/noah-isme/edu-billing-api/pkg/middleware/requestid"
)

const notificationJobType = "billing.notification"

// Publisher delivers an encoded message on a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// NotificationService publishes billing events after their transaction commits. Delivery
// runs on a worker queue with retries; failures are logged and counted, never surfaced.
type NotificationService struct {
	publisher Publisher
	channel   string
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NotificationConfig tunes the delivery queue.
type NotificationConfig struct {
	Channel    string
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NewNotificationService builds the notifier and its queue. Start must be called before events flow.
func NewNotificationService(publisher Publisher, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		publisher: publisher,
		channel:   cfg.Channel,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDead:     s.deadLetter,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the delivery workers to exit.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues an event for delivery. It never blocks the caller on the broker and
// never returns an error; a full queue drops the event and counts the failure.
func (s *NotificationService) Notify(ctx context.Context, event models.NotificationEvent, payload map[string]interface{}) {
	if s == nil {
		return
	}
	n := models.Notification{
		ID:         uuid.NewString(),
		Event:      event,
		Payload:    payload,
		OccurredAt: s.now(),
	}
	logger := s.logger.With(zap.String("event", string(event)), zap.String("notification_id", n.ID))
	if reqID := requestid.FromContext(ctx); reqID != "" {
		logger = logger.With(zap.String("request_id", reqID))
	}

	if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: notificationJobType, Payload: n}); err != nil {
		s.metrics.RecordNotificationFailure(string(event))
		logger.Warn("notification dropped", zap.Error(err))
		return
	}
	logger.Debug("notification queued")
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if s.publisher == nil {
		return fmt.Errorf("no publisher configured")
	}
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.publisher.Publish(pubCtx, s.channel, n)
}

func (s *NotificationService) deadLetter(job jobs.Job, err error) {
	event := job.Type
	if n, ok := job.Payload.(models.Notification); ok {
		event = string(n.Event)
	}
	s.metrics.RecordNotificationFailure(event)
	s.logger.Error("notification undeliverable", zap.String("notification_id", job.ID), zap.String("event", event), zap.Error(err))
}
