package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is an immutable record of something that happened in the platform.
// It is created once by a producer, appended to the event store, and fanned
// out to every processor whose pattern matches Type.
type Event struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	AggregateID   string                 `json:"aggregate_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"-"`
	Version       string                 `json:"version,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	CausationID   string                 `json:"causation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// DefaultVersion is assigned when a producer does not set a payload schema version.
const DefaultVersion = "1"

type eventJSON struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	AggregateID   string                 `json:"aggregate_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     int64                  `json:"timestamp"`
	Version       string                 `json:"version,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	CausationID   string                 `json:"causation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// MarshalJSON encodes Timestamp as epoch milliseconds on the wire.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:            e.ID,
		Type:          e.Type,
		AggregateID:   e.AggregateID,
		Payload:       e.Payload,
		Timestamp:     e.Timestamp.UnixMilli(),
		Version:       e.Version,
		CorrelationID: e.CorrelationID,
		CausationID:   e.CausationID,
		Metadata:      e.Metadata,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.ID = raw.ID
	e.Type = raw.Type
	e.AggregateID = raw.AggregateID
	e.Payload = raw.Payload
	e.Version = raw.Version
	e.CorrelationID = raw.CorrelationID
	e.CausationID = raw.CausationID
	e.Metadata = raw.Metadata
	if raw.Timestamp != 0 {
		e.Timestamp = time.UnixMilli(raw.Timestamp).UTC()
	}
	return nil
}

// Validate checks the fields every event must carry before it may be
// published. A malformed event is rejected at publish time and never
// reaches a processor.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if !strings.Contains(strings.Trim(e.Type, "."), ".") {
		return fmt.Errorf("event type %q must be dot-namespaced (<aggregate>.<verb>)", e.Type)
	}
	if strings.Contains(e.Type, "*") {
		return fmt.Errorf("event type %q must not contain wildcards", e.Type)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event timestamp is required")
	}
	return nil
}

// PayloadString returns a string payload field, or "" when absent.
func (e Event) PayloadString(key string) string {
	if e.Payload == nil {
		return ""
	}
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}

// PayloadFloat returns a numeric payload field, or 0 when absent. JSON
// decoding yields float64 for all numbers, so int64 producers go through
// the same path.
func (e Event) PayloadFloat(key string) float64 {
	if e.Payload == nil {
		return 0
	}
	switch v := e.Payload[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
