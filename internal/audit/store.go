package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Record is one audit trail entry: an event the bus delivered, together
// with the trigger chain that produced it.
type Record struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	EnvelopeID    string             `bson:"envelopeId" json:"envelopeId"`
	EventType     string             `bson:"eventType" json:"eventType"`
	AggregateID   string             `bson:"aggregateId" json:"aggregateId"`
	TriggerSource string             `bson:"triggerSource" json:"triggerSource"`
	CorrelationID string             `bson:"correlationId" json:"correlationId"`
	CausationID   string             `bson:"causationId,omitempty" json:"causationId,omitempty"`
	OccurredAt    time.Time          `bson:"occurredAt" json:"occurredAt"`
	RecordedAt    time.Time          `bson:"recordedAt" json:"recordedAt"`
	Payload       interface{}        `bson:"payload" json:"payload"`
}

// DeadLetterRecord is a permanently failed delivery kept for operator
// inspection and replay.
type DeadLetterRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	EnvelopeID    string             `bson:"envelopeId" json:"envelopeId"`
	EventType     string             `bson:"eventType" json:"eventType"`
	AggregateID   string             `bson:"aggregateId" json:"aggregateId"`
	HandlerName   string             `bson:"handlerName" json:"handlerName"`
	Error         string             `bson:"error" json:"error"`
	CorrelationID string             `bson:"correlationId" json:"correlationId"`
	FailedAt      time.Time          `bson:"failedAt" json:"failedAt"`
	Payload       interface{}        `bson:"payload" json:"payload"`
}

// Store persists audit and dead letter records in MongoDB.
type Store struct {
	records     *mongo.Collection
	deadLetters *mongo.Collection
}

// NewStore creates a Store and ensures its indexes.
func NewStore(db *mongo.Database) *Store {
	records := db.Collection("audit_records")
	deadLetters := db.Collection("dead_letters")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "correlationId", Value: 1}, {Key: "recordedAt", Value: 1}}},
		{Keys: bson.D{{Key: "aggregateId", Value: 1}, {Key: "recordedAt", Value: 1}}},
		{Keys: bson.D{{Key: "eventType", Value: 1}}},
	})
	deadLetters.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "failedAt", Value: 1}}},
		{Keys: bson.D{{Key: "eventType", Value: 1}}},
	})

	return &Store{records: records, deadLetters: deadLetters}
}

// SaveRecord appends one audit record.
func (s *Store) SaveRecord(ctx context.Context, record *Record) error {
	_, err := s.records.InsertOne(ctx, record)
	return err
}

// SaveDeadLetter appends one dead letter record.
func (s *Store) SaveDeadLetter(ctx context.Context, record *DeadLetterRecord) error {
	_, err := s.deadLetters.InsertOne(ctx, record)
	return err
}

// FindByCorrelation returns the audit trail for one saga run, oldest first.
func (s *Store) FindByCorrelation(ctx context.Context, correlationID string, limit int64) ([]*Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "recordedAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := s.records.Find(ctx, bson.M{"correlationId": correlationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FindDeadLetters returns the most recent dead letters, newest first.
func (s *Store) FindDeadLetters(ctx context.Context, limit int64) ([]*DeadLetterRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "failedAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.deadLetters.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*DeadLetterRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
