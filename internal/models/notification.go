package models

import "time"

// NotificationEvent names a billing event delivered to the messaging channel.
type NotificationEvent string

// Events emitted after a successful commit.
const (
	EventFreezeCreated   NotificationEvent = "FREEZE_CREATED"
	EventFreezeEnded     NotificationEvent = "FREEZE_ENDED"
	EventFreezeCancelled NotificationEvent = "FREEZE_CANCELLED"
	EventRefundCreated   NotificationEvent = "REFUND_CREATED"
	EventRefundApproved  NotificationEvent = "REFUND_APPROVED"
	EventRefundRejected  NotificationEvent = "REFUND_REJECTED"
)

// Notification is the envelope published for the bot and other listeners.
type Notification struct {
	ID         string                 `json:"id"`
	Event      NotificationEvent      `json:"event"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurredAt"`
}
