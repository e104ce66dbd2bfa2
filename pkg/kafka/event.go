package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// envelopeVersion is bumped only when the envelope shape itself changes.
// Payload evolution is the producers' concern.
const envelopeVersion = 1

// Event is the envelope every published message is wrapped in. Consumers can
// route on the envelope without decoding Data.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Source        string          `json:"source"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`

	// Metadata carries free-form context (actor, client, trigger). Nil until
	// the first WithMetadata call.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewEvent wraps data in a fresh envelope. The payload is serialized eagerly
// so a marshal failure surfaces here, before anything touches the broker.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Source:        source,
		Version:       envelopeVersion,
		Timestamp:     time.Now().UTC(),
		Data:          payload,
	}, nil
}

// WithCorrelationID stamps the request correlation ID onto the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithMetadata attaches one metadata key-value pair.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, 1)
	}
	e.Metadata[key] = value
	return e
}

// Marshal serializes the whole envelope.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent parses an envelope from raw message bytes.
func UnmarshalEvent(raw []byte) (*Event, error) {
	e := new(Event)
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	return e, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
