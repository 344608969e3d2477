package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	CellCreated              Type = "cell.created"
	CellStatusChanged        Type = "cell.status_changed"
	CellDeleted              Type = "cell.deleted"
	ReservationCreated       Type = "reservation.created"
	ReservationStatusChanged Type = "reservation.status_changed"
	ReservationCancelled     Type = "reservation.cancelled"
	ReservationRescheduled   Type = "reservation.rescheduled"
	DayBlocked               Type = "day.blocked"
	DayUnblocked             Type = "day.unblocked"
)

// Event is emitted after a committed write for audit and notification subscribers.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       Type           `json:"type"`
	FacilityID uuid.UUID      `json:"facilityId"`
	EntityID   uuid.UUID      `json:"entityId"`
	Actor      string         `json:"actor"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(t Type, facilityID, entityID uuid.UUID, actor string, data map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		FacilityID: facilityID,
		EntityID:   entityID,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher hands events to whatever sits behind the engine boundary.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}

// Recorder keeps published events in memory. Intended for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	events := r.Events()
	types := make([]Type, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
