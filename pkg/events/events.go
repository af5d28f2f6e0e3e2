package events

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the interface implemented by all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
}

// BaseDomainEvent contains common event fields
type BaseDomainEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateId string    `json:"aggregateId"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseDomainEvent) EventType() string     { return e.Type }
func (e BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseDomainEvent) AggregateID() string   { return e.AggregateId }

// NewBase builds the common fields for a domain event
func NewBase(eventType, aggregateID string) BaseDomainEvent {
	return BaseDomainEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateId: aggregateID,
		Timestamp:   time.Now().UTC(),
	}
}

// TriggerContext carries the causal chain of an event for audit
// reconstruction. Business logic never reads it.
type TriggerContext struct {
	TriggerSource string    `bson:"triggerSource" json:"triggerSource"`
	CorrelationID string    `bson:"correlationId" json:"correlationId"`
	CausationID   string    `bson:"causationId,omitempty" json:"causationId,omitempty"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
}

// Manual returns a trigger context for operator-initiated actions
func Manual() TriggerContext {
	return TriggerContext{
		TriggerSource: "manual",
		CorrelationID: uuid.New().String(),
		Timestamp:     time.Now().UTC(),
	}
}

// Scheduled returns a trigger context for scheduler-initiated actions
func Scheduled(schedulerName string) TriggerContext {
	return TriggerContext{
		TriggerSource: "scheduled:" + schedulerName,
		CorrelationID: uuid.New().String(),
		Timestamp:     time.Now().UTC(),
	}
}

// Next derives the trigger context for events published while handling
// the event identified by causingEventType/causationID. The correlation id
// is copied so the whole saga shares one id.
func (t TriggerContext) Next(causingEventType, causationID string) TriggerContext {
	correlationID := t.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	return TriggerContext{
		TriggerSource: causingEventType,
		CorrelationID: correlationID,
		CausationID:   causationID,
		Timestamp:     time.Now().UTC(),
	}
}
