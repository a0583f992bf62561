// Package events publishes domain events after the state change they
// describe has been committed.
//
// Publishing is best effort: a broker outage is logged by the caller and
// never rolls back an order. Three transports exist, selected by
// EVENTS_DRIVER:
//
//	none  → LogPublisher (events go to the application log)
//	kafka → KafkaPublisher (one topic, keyed by aggregate id)
//	nats  → NATSPublisher (one subject per event type)
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// Event types. They double as NATS subject suffixes.
const (
	TypeOrderCreated        = "order.created"
	TypeOrderStatusChanged  = "order.status_changed"
	TypeNotificationCreated = "notification.created"
)

const envelopeVersion = 1

// Envelope wraps every payload with routing and tracing metadata.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // aggregate id, also the Kafka key
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and stamps a fresh event id.
func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: encoding %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       xid.New().String(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      "storefront",
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// ---- Payloads ----

type OrderLine struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderCreated struct {
	OrderID     int64       `json:"order_id"`
	CustomerRUT string      `json:"rut"`
	UserID      int64       `json:"user_id"`
	Total       string      `json:"total"`
	Lines       []OrderLine `json:"lines"`
}

type OrderStatusChanged struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

type NotificationCreated struct {
	NotificationID int64  `json:"notification_id"`
	CustomerRUT    string `json:"rut"`
	ChannelID      int64  `json:"channel_id"`
}

// UnwrapPayload decodes an envelope payload into T.
func UnwrapPayload[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("events: decoding payload: %w", err)
	}
	return t, nil
}
