package domain

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	invdomain "github.com/levijcl/Wei-sub000/internal/inventory/domain"
	"github.com/levijcl/Wei-sub000/pkg/events"
)

// InventoryObserver polls the inventory system's stock view and
// publishes the full snapshot for discrepancy detection against the
// WES's stock counts.
type InventoryObserver struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ObserverID          string             `bson:"observerId" json:"observerId"`
	ObservationRule     ObservationRule    `bson:"observationRule" json:"observationRule"`
	PollingInterval     PollingInterval    `bson:"pollingInterval" json:"pollingInterval"`
	LastPolledTimestamp *time.Time         `bson:"lastPolledTimestamp,omitempty" json:"lastPolledTimestamp,omitempty"`
	Active              bool               `bson:"active" json:"active"`

	domainEvents []events.DomainEvent `bson:"-" json:"-"`
}

// NewInventoryObserver builds an active observer with no polling history
func NewInventoryObserver(observerID string, rule ObservationRule, interval PollingInterval) (*InventoryObserver, error) {
	if observerID == "" {
		return nil, ErrBlankObserverID
	}
	return &InventoryObserver{
		ID:              primitive.NewObjectID(),
		ObserverID:      observerID,
		ObservationRule: rule,
		PollingInterval: interval,
		Active:          true,
	}, nil
}

// ShouldPoll reports whether the interval has elapsed since the last poll
func (o *InventoryObserver) ShouldPoll(now time.Time) bool {
	if !o.Active {
		return false
	}
	if o.LastPolledTimestamp == nil {
		return true
	}
	return now.After(o.LastPolledTimestamp.Add(o.PollingInterval.Duration()))
}

// PollInventorySnapshot takes a stock snapshot from the inventory
// system and raises a single InventorySnapshotObservedEvent carrying
// the whole batch
func (o *InventoryObserver) PollInventorySnapshot(ctx context.Context, inventory invdomain.InventoryPort) error {
	now := time.Now().UTC()
	if !o.ShouldPoll(now) {
		return nil
	}

	snapshots, err := inventory.GetInventorySnapshot(ctx)
	if err != nil {
		return fmt.Errorf("polling inventory snapshot for observer %s: %w", o.ObserverID, err)
	}
	o.LastPolledTimestamp = &now

	o.addDomainEvent(NewInventorySnapshotObservedEvent(o.ObserverID, snapshots))
	return nil
}

// Activate enables polling
func (o *InventoryObserver) Activate() {
	o.Active = true
}

// Deactivate disables polling
func (o *InventoryObserver) Deactivate() {
	o.Active = false
}

// GetDomainEvents returns the accumulated domain events
func (o *InventoryObserver) GetDomainEvents() []events.DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (o *InventoryObserver) ClearDomainEvents() {
	o.domainEvents = nil
}

func (o *InventoryObserver) addDomainEvent(event events.DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}
