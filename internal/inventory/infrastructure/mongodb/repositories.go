package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levijcl/Wei-sub000/internal/inventory/domain"
)

// TransactionRepository implements domain.TransactionRepository
type TransactionRepository struct {
	collection *mongo.Collection
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	collection := db.Collection("inventory_transactions")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transactionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "sourceReferenceId", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
	}

	collection.Indexes().CreateMany(ctx, indexes)

	return &TransactionRepository{collection: collection}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.InventoryTransaction) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"transactionId": tx.TransactionID}, tx, opts)
	return err
}

func (r *TransactionRepository) FindByID(ctx context.Context, transactionID string) (*domain.InventoryTransaction, error) {
	var tx domain.InventoryTransaction
	err := r.collection.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) FindBySourceReference(ctx context.Context, sourceReferenceID string) ([]*domain.InventoryTransaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"sourceReferenceId": sourceReferenceID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txs []*domain.InventoryTransaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *TransactionRepository) FindByStatus(ctx context.Context, status domain.TransactionStatus, limit int64) ([]*domain.InventoryTransaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txs []*domain.InventoryTransaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// AdjustmentRepository implements domain.AdjustmentRepository
type AdjustmentRepository struct {
	collection *mongo.Collection
}

// NewAdjustmentRepository creates a new adjustment repository
func NewAdjustmentRepository(db *mongo.Database) *AdjustmentRepository {
	collection := db.Collection("inventory_adjustments")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "adjustmentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
	}

	collection.Indexes().CreateMany(ctx, indexes)

	return &AdjustmentRepository{collection: collection}
}

func (r *AdjustmentRepository) Save(ctx context.Context, adjustment *domain.InventoryAdjustment) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"adjustmentId": adjustment.AdjustmentID}, adjustment, opts)
	return err
}

func (r *AdjustmentRepository) FindByID(ctx context.Context, adjustmentID string) (*domain.InventoryAdjustment, error) {
	var adjustment domain.InventoryAdjustment
	err := r.collection.FindOne(ctx, bson.M{"adjustmentId": adjustmentID}).Decode(&adjustment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &adjustment, nil
}

func (r *AdjustmentRepository) FindByStatus(ctx context.Context, status domain.AdjustmentStatus, limit int64) ([]*domain.InventoryAdjustment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var adjustments []*domain.InventoryAdjustment
	if err := cursor.All(ctx, &adjustments); err != nil {
		return nil, err
	}
	return adjustments, nil
}
