package event

import (
	"encoding/json"
	"fmt"
	"time"
)

type wireEvent struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	Origin     string            `json:"origin"`
	ActorID    string            `json:"actor_id,omitempty"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Payload    json.RawMessage   `json:"payload"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Marshal encodes e for broadcast.
func Marshal(e Event) ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event %s has no payload", e.ID)
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Type, err)
	}
	return json.Marshal(wireEvent{
		ID:         e.ID,
		Type:       e.Payload.EventType(),
		Origin:     e.Origin,
		ActorID:    e.ActorID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Payload:    payload,
		Metadata:   e.Metadata,
		OccurredAt: e.OccurredAt,
	})
}

// Unmarshal decodes a broadcast message back into a typed event.
func Unmarshal(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	p, err := decodePayload(w.Type, w.Payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         w.ID,
		Type:       w.Type,
		Origin:     w.Origin,
		ActorID:    w.ActorID,
		EntityType: w.EntityType,
		EntityID:   w.EntityID,
		Payload:    p,
		Metadata:   w.Metadata,
		OccurredAt: w.OccurredAt,
	}, nil
}

func decodePayload(t Type, raw json.RawMessage) (Payload, error) {
	switch t {
	case TypeBookingCreated:
		return decodeAs[BookingCreated](raw)
	case TypeBookingCancelled:
		return decodeAs[BookingCancelled](raw)
	case TypeBookingConfirmed:
		return decodeAs[BookingConfirmed](raw)
	case TypePaymentRecorded:
		return decodeAs[PaymentRecorded](raw)
	case TypeSuspiciousActivity:
		return decodeAs[SuspiciousActivity](raw)
	case TypePayoutCreated:
		return decodeAs[PayoutCreated](raw)
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", p.EventType(), err)
	}
	return p, nil
}
