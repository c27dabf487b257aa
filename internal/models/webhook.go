package models

import (
	"encoding/json"
	"time"
)

// Webhook event types emitted by the system.
const (
	EventBriefingReceived = "briefing.received"
	EventProjectCreated   = "project.created"
	EventVersionAdded     = "version.added"
	EventDeadlineExtended = "deadline.extended"
	EventFeedbackReceived = "feedback.received"
	EventProjectApproved  = "project.approved"
	EventTest             = "webhook.test"

	// EventGeneric is the fallback type for payloads emitted without one.
	EventGeneric = "notification"
)

// DeliveryStatus makes the outcome of a webhook POST explicit instead of
// assuming success after send.
type DeliveryStatus string

const (
	DeliveryPending         DeliveryStatus = "pending"
	DeliveryConfirmed       DeliveryStatus = "confirmed"
	DeliverySentUnconfirmed DeliveryStatus = "sent_unconfirmed"
	DeliveryFailed          DeliveryStatus = "failed"
)

// WebhookDelivery is a persisted outbound notification and its fate.
type WebhookDelivery struct {
	ID        string          `db:"id" json:"id"`
	EventType string          `db:"event_type" json:"event_type"`
	URL       string          `db:"url" json:"url"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	Attempts  int             `db:"attempts" json:"attempts"`
	Status    DeliveryStatus  `db:"status" json:"status"`
	LastError *string         `db:"last_error" json:"last_error,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// WebhookEvent is the outbound wire contract:
// { "type": string, "data": object, "timestamp": ISO8601 }.
type WebhookEvent struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
