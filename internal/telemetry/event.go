// Package telemetry carries operational events (HTTP requests, message
// sends, session transitions) out of the process, via Kafka into Loki.
package telemetry

import (
	"context"
	"encoding/json"
	"time"
)

// Event is a single telemetry event. Metadata is event-type specific JSON.
type Event struct {
	OwnerID   string          `json:"owner_id,omitempty"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// EventEmitter emits telemetry events. Best-effort; callers log and ignore
// errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
