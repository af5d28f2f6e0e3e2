package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levijcl/Wei-sub000/internal/observation/domain"
)

func ensureObserverIndexes(collection *mongo.Collection) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "observerId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "active", Value: 1}},
		},
	})
}

// OrderObserverRepository implements domain.OrderObserverRepository
type OrderObserverRepository struct {
	collection *mongo.Collection
}

// NewOrderObserverRepository creates a new order observer repository
func NewOrderObserverRepository(db *mongo.Database) *OrderObserverRepository {
	collection := db.Collection("order_observers")
	ensureObserverIndexes(collection)
	return &OrderObserverRepository{collection: collection}
}

func (r *OrderObserverRepository) Save(ctx context.Context, observer *domain.OrderObserver) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"observerId": observer.ObserverID}, observer, opts)
	return err
}

func (r *OrderObserverRepository) FindByID(ctx context.Context, observerID string) (*domain.OrderObserver, error) {
	var observer domain.OrderObserver
	err := r.collection.FindOne(ctx, bson.M{"observerId": observerID}).Decode(&observer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &observer, nil
}

func (r *OrderObserverRepository) FindAll(ctx context.Context) ([]*domain.OrderObserver, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var observers []*domain.OrderObserver
	if err := cursor.All(ctx, &observers); err != nil {
		return nil, err
	}
	return observers, nil
}

// WesObserverRepository implements domain.WesObserverRepository
type WesObserverRepository struct {
	collection *mongo.Collection
}

// NewWesObserverRepository creates a new WES observer repository
func NewWesObserverRepository(db *mongo.Database) *WesObserverRepository {
	collection := db.Collection("wes_observers")
	ensureObserverIndexes(collection)
	return &WesObserverRepository{collection: collection}
}

func (r *WesObserverRepository) Save(ctx context.Context, observer *domain.WesObserver) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"observerId": observer.ObserverID}, observer, opts)
	return err
}

func (r *WesObserverRepository) FindByID(ctx context.Context, observerID string) (*domain.WesObserver, error) {
	var observer domain.WesObserver
	err := r.collection.FindOne(ctx, bson.M{"observerId": observerID}).Decode(&observer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &observer, nil
}

func (r *WesObserverRepository) FindAll(ctx context.Context) ([]*domain.WesObserver, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var observers []*domain.WesObserver
	if err := cursor.All(ctx, &observers); err != nil {
		return nil, err
	}
	return observers, nil
}

// InventoryObserverRepository implements domain.InventoryObserverRepository
type InventoryObserverRepository struct {
	collection *mongo.Collection
}

// NewInventoryObserverRepository creates a new inventory observer repository
func NewInventoryObserverRepository(db *mongo.Database) *InventoryObserverRepository {
	collection := db.Collection("inventory_observers")
	ensureObserverIndexes(collection)
	return &InventoryObserverRepository{collection: collection}
}

func (r *InventoryObserverRepository) Save(ctx context.Context, observer *domain.InventoryObserver) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"observerId": observer.ObserverID}, observer, opts)
	return err
}

func (r *InventoryObserverRepository) FindByID(ctx context.Context, observerID string) (*domain.InventoryObserver, error) {
	var observer domain.InventoryObserver
	err := r.collection.FindOne(ctx, bson.M{"observerId": observerID}).Decode(&observer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &observer, nil
}

func (r *InventoryObserverRepository) FindAll(ctx context.Context) ([]*domain.InventoryObserver, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var observers []*domain.InventoryObserver
	if err := cursor.All(ctx, &observers); err != nil {
		return nil, err
	}
	return observers, nil
}
