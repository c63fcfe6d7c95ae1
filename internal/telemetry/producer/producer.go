// Package producer defines the interface for emitting telemetry events to
// Kafka.
package producer

import (
	"context"

	"gymdesk/backend/internal/telemetry"
)

// Producer emits telemetry events. Callers use it best-effort: log and
// ignore errors.
type Producer interface {
	Emit(ctx context.Context, event *telemetry.Event) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}
