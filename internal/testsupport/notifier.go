package testsupport

import (
	"context"
	"slices"
	"sync"

	"concierge/internal/notifications"
)

// RecordingNotifier captures published events.
type RecordingNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads []notifications.Payload
}

func (r *RecordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.payloads = append(r.payloads, payload)
	return nil
}

// Events returns the published events in order.
func (r *RecordingNotifier) Events() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Payloads returns the published payloads in order.
func (r *RecordingNotifier) Payloads() []notifications.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.payloads)
}

var _ notifications.Service = (*RecordingNotifier)(nil)
