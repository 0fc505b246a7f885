// Package events publishes workflow status changes to RabbitMQ so other
// services (mailers, analytics) can react without polling the database.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"InternHub-backend/internal/model"
)

// Event is the JSON body of one published message.
type Event struct {
	Type      string         `json:"type"`
	OwnerType string         `json:"owner_type"`
	OwnerID   uint           `json:"owner_id"`
	From      string         `json:"from,omitempty"`
	To        string         `json:"to"`
	Code      int            `json:"status_code"`
	By        *uuid.UUID     `json:"by,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data,omitempty"`
}

// RoutingKey is "<owner_type>.<status>", e.g. "application.accepted".
func (e Event) RoutingKey() string { return e.Type }

// FromChange converts a committed status change into an event.
func FromChange(change model.StatusChange) Event {
	return Event{
		Type:      change.OwnerType + "." + change.To,
		OwnerType: change.OwnerType,
		OwnerID:   change.OwnerID,
		From:      change.From,
		To:        change.To,
		Code:      change.Code,
		By:        change.ChangedBy,
		Reason:    change.Reason,
		At:        change.ChangedAt,
	}
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// PublishChanges publishes one event per change. Failures are logged and
// never returned: the database already committed the transitions.
func PublishChanges(ctx context.Context, p Publisher, changes ...model.StatusChange) {
	if p == nil {
		return
	}
	for _, change := range changes {
		event := FromChange(change)
		if err := p.Publish(ctx, event); err != nil {
			slog.Warn("failed to publish event",
				slog.String("routing_key", event.RoutingKey()),
				slog.Uint64("owner_id", uint64(event.OwnerID)),
				slog.String("error", err.Error()))
		}
	}
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the routing keys published so far, in order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
