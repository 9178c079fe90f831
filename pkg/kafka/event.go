package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the envelope version this build writes and the newest it reads.
const SchemaVersion = 1

// ErrMalformedEvent is returned by UnmarshalEvent for payloads no handler can use.
var ErrMalformedEvent = errors.New("kafka: malformed event")

// Event is the envelope of every storefront message. Data holds the
// topic-specific payload.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ActorID       string          `json:"actor_id,omitempty"`
	ActorRole     string          `json:"actor_role,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent builds an envelope with a fresh id, stamped now in UTC.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       SchemaVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          raw,
	}, nil
}

func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithActor records who caused the event. Empty values are left unset.
func (e *Event) WithActor(id, role string) *Event {
	e.ActorID = id
	e.ActorRole = role
	return e
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent decodes an envelope. Envelopes without an id or type, or
// written by a newer schema, are rejected with ErrMalformedEvent.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	switch {
	case e.EventID == "" || e.EventType == "":
		return nil, fmt.Errorf("%w: missing event_id or event_type", ErrMalformedEvent)
	case e.Version > SchemaVersion:
		return nil, fmt.Errorf("%w: version %d is newer than %d", ErrMalformedEvent, e.Version, SchemaVersion)
	}
	return &e, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
