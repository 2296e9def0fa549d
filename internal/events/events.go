// Package events publishes domain events. Publishing is best effort: callers
// log failures and carry on.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	UserRegistered       Type = "user.registered"
	LeadCaptured         Type = "lead.captured"
	ApplicationSubmitted Type = "application.submitted"
	ApplicationReviewed  Type = "application.reviewed"
)

// Event is the envelope written to every sink.
type Event struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// New stamps an event with a fresh ID.
func New(t Type, aggregateID string, at time.Time, payload map[string]any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		AggregateID: aggregateID,
		OccurredAt:  at.UTC(),
		Payload:     payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
