package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (e *captureEmitter) Emit(_ context.Context, ev *Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, ev)
	return nil
}

func (e *captureEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func TestEmitAsync(t *testing.T) {
	emitter := &captureEmitter{}
	EmitAsync(emitter, &Event{EventType: "http_request", Source: "test", CreatedAt: time.Now()})

	deadline := time.Now().Add(2 * time.Second)
	for emitter.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event never emitted")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEmitAsyncNilSafe(t *testing.T) {
	// Neither call may panic.
	EmitAsync(nil, &Event{EventType: "x"})
	EmitAsync(&captureEmitter{}, nil)
}

func TestEmitAsyncSwallowsError(t *testing.T) {
	emitter := &captureEmitter{err: errors.New("kafka down")}
	EmitAsync(emitter, &Event{EventType: "http_request"})
	time.Sleep(10 * time.Millisecond)
}
