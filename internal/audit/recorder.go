package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/kafka"
	"github.com/levijcl/Wei-sub000/pkg/logging"
)

const source = "fulfillment-orchestrator"

// Recorder subscribes to domain events and writes the audit trail:
// every delivered event lands in MongoDB and, when a producer is
// configured, is forwarded to Kafka for downstream consumers.
type Recorder struct {
	store    *Store
	producer *kafka.Producer
	logger   *logging.Logger
}

// NewRecorder creates a Recorder. The producer may be nil when Kafka
// forwarding is disabled.
func NewRecorder(store *Store, producer *kafka.Producer, logger *logging.Logger) *Recorder {
	return &Recorder{
		store:    store,
		producer: producer,
		logger:   logger.WithComponent("audit"),
	}
}

// Register subscribes the recorder for the given event types.
func (r *Recorder) Register(bus *eventbus.Bus, eventTypes ...string) {
	for _, eventType := range eventTypes {
		bus.Subscribe(eventType, "audit.recorder", r.record)
	}
}

// record persists the audit entry, then forwards it. A Mongo failure is
// returned so the bus retries; a Kafka failure only logs because the
// durable copy already exists.
func (r *Recorder) record(ctx context.Context, env eventbus.Envelope) error {
	record := &Record{
		EnvelopeID:    env.ID,
		EventType:     env.Event.EventType(),
		AggregateID:   env.Event.AggregateID(),
		TriggerSource: env.Trigger.TriggerSource,
		CorrelationID: env.Trigger.CorrelationID,
		CausationID:   env.Trigger.CausationID,
		OccurredAt:    env.Event.OccurredAt(),
		RecordedAt:    time.Now().UTC(),
		Payload:       env.Event,
	}
	if err := r.store.SaveRecord(ctx, record); err != nil {
		return err
	}

	if r.producer == nil {
		return nil
	}
	data, err := json.Marshal(env.Event)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal event for audit forwarding",
			"eventType", record.EventType)
		return nil
	}
	msg := &kafka.Message{
		ID:            env.ID,
		Type:          record.EventType,
		Source:        source,
		Subject:       record.AggregateID,
		Time:          record.OccurredAt,
		CorrelationID: record.CorrelationID,
		Data:          data,
	}
	if err := r.producer.Publish(ctx, kafka.Topics.AuditRecords, msg); err != nil {
		r.logger.WithError(err).Warn("Failed to forward audit record to kafka",
			"eventType", record.EventType, "aggregateId", record.AggregateID)
	}
	return nil
}

// DeadLetterSink stores permanently failed deliveries and mirrors them
// to the dead letter topic. It plugs into the bus via Handle.
type DeadLetterSink struct {
	store    *Store
	producer *kafka.Producer
	logger   *logging.Logger
}

// NewDeadLetterSink creates a DeadLetterSink. The producer may be nil.
func NewDeadLetterSink(store *Store, producer *kafka.Producer, logger *logging.Logger) *DeadLetterSink {
	return &DeadLetterSink{
		store:    store,
		producer: producer,
		logger:   logger.WithComponent("dead-letter"),
	}
}

// Handle implements eventbus.DeadLetterFunc.
func (s *DeadLetterSink) Handle(ctx context.Context, env eventbus.Envelope, handlerName string, handlerErr error) {
	record := &DeadLetterRecord{
		EnvelopeID:    env.ID,
		EventType:     env.Event.EventType(),
		AggregateID:   env.Event.AggregateID(),
		HandlerName:   handlerName,
		Error:         handlerErr.Error(),
		CorrelationID: env.Trigger.CorrelationID,
		FailedAt:      time.Now().UTC(),
		Payload:       env.Event,
	}
	s.logger.Error("Event dead lettered",
		"eventType", record.EventType,
		"aggregateId", record.AggregateID,
		"handler", handlerName,
		"error", handlerErr.Error())

	if err := s.store.SaveDeadLetter(ctx, record); err != nil {
		s.logger.WithError(err).Error("Failed to persist dead letter",
			"eventType", record.EventType, "envelopeId", env.ID)
	}

	if s.producer == nil {
		return
	}
	data, err := json.Marshal(env.Event)
	if err != nil {
		return
	}
	msg := &kafka.Message{
		ID:            env.ID,
		Type:          record.EventType,
		Source:        source,
		Subject:       record.AggregateID,
		Time:          record.FailedAt,
		CorrelationID: record.CorrelationID,
		Data:          data,
	}
	if err := s.producer.Publish(ctx, kafka.Topics.DeadLetter, msg); err != nil {
		s.logger.WithError(err).Warn("Failed to forward dead letter to kafka",
			"eventType", record.EventType)
	}
}
