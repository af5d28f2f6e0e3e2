package domain

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	wesdomain "github.com/levijcl/Wei-sub000/internal/wes/domain"
	"github.com/levijcl/Wei-sub000/pkg/events"
)

// WesObserver polls the warehouse execution system and compares its
// task list against the locally known picking tasks. Tasks the
// coordinator has no record of raise WesTaskDiscoveredEvent; known
// tasks whose external status changed raise WesTaskStatusUpdatedEvent.
// Unchanged tasks raise nothing, so re-polling is naturally idempotent.
type WesObserver struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ObserverID          string             `bson:"observerId" json:"observerId"`
	TaskEndpoint        TaskEndpoint       `bson:"taskEndpoint" json:"taskEndpoint"`
	PollingInterval     PollingInterval    `bson:"pollingInterval" json:"pollingInterval"`
	LastPolledTimestamp *time.Time         `bson:"lastPolledTimestamp,omitempty" json:"lastPolledTimestamp,omitempty"`
	Active              bool               `bson:"active" json:"active"`

	domainEvents []events.DomainEvent `bson:"-" json:"-"`
}

// NewWesObserver builds an active observer with no polling history
func NewWesObserver(observerID string, endpoint TaskEndpoint, interval PollingInterval) (*WesObserver, error) {
	if observerID == "" {
		return nil, ErrBlankObserverID
	}
	return &WesObserver{
		ID:              primitive.NewObjectID(),
		ObserverID:      observerID,
		TaskEndpoint:    endpoint,
		PollingInterval: interval,
		Active:          true,
	}, nil
}

// ShouldPoll reports whether the interval has elapsed since the last poll
func (o *WesObserver) ShouldPoll(now time.Time) bool {
	if !o.Active {
		return false
	}
	if o.LastPolledTimestamp == nil {
		return true
	}
	return now.After(o.LastPolledTimestamp.Add(o.PollingInterval.Duration()))
}

// PollWesTasks fetches the WES's task list and diffs it against the
// known picking tasks. Externally reported statuses that fail to parse
// are skipped rather than aborting the whole batch.
func (o *WesObserver) PollWesTasks(ctx context.Context, wes wesdomain.WesPort, knownTasks []*wesdomain.PickingTask) error {
	now := time.Now().UTC()
	if !o.ShouldPoll(now) {
		return nil
	}

	externalTasks, err := wes.PollAllTasks(ctx)
	if err != nil {
		return fmt.Errorf("polling wes tasks for observer %s: %w", o.ObserverID, err)
	}
	o.LastPolledTimestamp = &now

	byWesTaskID := make(map[string]*wesdomain.PickingTask, len(knownTasks))
	for _, task := range knownTasks {
		if task.WesTaskID != "" {
			byWesTaskID[task.WesTaskID] = task
		}
	}

	for _, external := range externalTasks {
		status, err := wesdomain.ParseTaskStatus(external.Status)
		if err != nil {
			continue
		}

		known, ok := byWesTaskID[external.WesTaskID]
		if !ok {
			o.addDomainEvent(wesdomain.NewWesTaskDiscoveredEvent(
				external.WesTaskID, status, external.Items, external.Priority))
			continue
		}
		if known.Status != status {
			o.addDomainEvent(wesdomain.NewWesTaskStatusUpdatedEvent(external.WesTaskID, external.Status))
		}
	}
	return nil
}

// Activate enables polling
func (o *WesObserver) Activate() {
	o.Active = true
}

// Deactivate disables polling
func (o *WesObserver) Deactivate() {
	o.Active = false
}

// GetDomainEvents returns the accumulated domain events
func (o *WesObserver) GetDomainEvents() []events.DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (o *WesObserver) ClearDomainEvents() {
	o.domainEvents = nil
}

func (o *WesObserver) addDomainEvent(event events.DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}
