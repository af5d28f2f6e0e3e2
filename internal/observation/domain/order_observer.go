package domain

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/levijcl/Wei-sub000/pkg/events"
)

// OrderObserver polls an external order source and raises a
// NewOrderObservedEvent for every order it has not seen before.
// Observers hold only polling state; the orders themselves live in
// the order context.
type OrderObserver struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ObserverID          string             `bson:"observerId" json:"observerId"`
	SourceEndpoint      SourceEndpoint     `bson:"sourceEndpoint" json:"sourceEndpoint"`
	PollingInterval     PollingInterval    `bson:"pollingInterval" json:"pollingInterval"`
	LastPolledTimestamp *time.Time         `bson:"lastPolledTimestamp,omitempty" json:"lastPolledTimestamp,omitempty"`
	Active              bool               `bson:"active" json:"active"`

	domainEvents []events.DomainEvent `bson:"-" json:"-"`
}

// NewOrderObserver builds an active observer with no polling history
func NewOrderObserver(observerID string, endpoint SourceEndpoint, interval PollingInterval) (*OrderObserver, error) {
	if observerID == "" {
		return nil, ErrBlankObserverID
	}
	return &OrderObserver{
		ID:              primitive.NewObjectID(),
		ObserverID:      observerID,
		SourceEndpoint:  endpoint,
		PollingInterval: interval,
		Active:          true,
	}, nil
}

// ShouldPoll reports whether the interval has elapsed since the last poll
func (o *OrderObserver) ShouldPoll(now time.Time) bool {
	if !o.Active {
		return false
	}
	if o.LastPolledTimestamp == nil {
		return true
	}
	return now.After(o.LastPolledTimestamp.Add(o.PollingInterval.Duration()))
}

// PollOrderSource fetches orders created since the last poll and raises
// a NewOrderObservedEvent per valid result. Invalid results are skipped
// so one malformed source row cannot block the rest of the batch.
func (o *OrderObserver) PollOrderSource(ctx context.Context, source OrderSourcePort) error {
	now := time.Now().UTC()
	if !o.ShouldPoll(now) {
		return nil
	}

	results, err := source.FetchNewOrders(ctx, o.SourceEndpoint, o.LastPolledTimestamp)
	if err != nil {
		return fmt.Errorf("fetching new orders for observer %s: %w", o.ObserverID, err)
	}
	o.LastPolledTimestamp = &now

	for _, result := range results {
		if err := result.Validate(); err != nil {
			continue
		}
		o.addDomainEvent(NewNewOrderObservedEvent(o.ObserverID, result))
	}
	return nil
}

// Activate enables polling
func (o *OrderObserver) Activate() {
	o.Active = true
}

// Deactivate disables polling
func (o *OrderObserver) Deactivate() {
	o.Active = false
}

// GetDomainEvents returns the accumulated domain events
func (o *OrderObserver) GetDomainEvents() []events.DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (o *OrderObserver) ClearDomainEvents() {
	o.domainEvents = nil
}

func (o *OrderObserver) addDomainEvent(event events.DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}
