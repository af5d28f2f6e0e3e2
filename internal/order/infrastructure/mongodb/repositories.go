package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levijcl/Wei-sub000/internal/order/domain"
)

// OrderRepository implements domain.OrderRepository
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	collection := db.Collection("orders")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "scheduledPickupTime", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
		},
	}

	collection.Indexes().CreateMany(ctx, indexes)

	return &OrderRepository{collection: collection}
}

func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"orderId": order.OrderID}, order, opts)
	return err
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) FindByStatus(ctx context.Context, status domain.Status, limit int64) ([]*domain.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FindScheduledBefore returns SCHEDULED orders whose fulfillment window
// has opened: scheduledPickupTime minus the per-order lead time is at or
// before t. The lead time is stored in nanoseconds, so it is scaled to
// milliseconds before subtracting from the pickup date.
func (r *OrderRepository) FindScheduledBefore(ctx context.Context, t time.Time, limit int64) ([]*domain.Order, error) {
	leadTimeNs := bson.M{"$ifNull": bson.A{"$fulfillmentLeadTimeNs", int64(domain.DefaultFulfillmentLeadTime)}}
	windowOpensAt := bson.M{"$subtract": bson.A{
		"$scheduledPickupTime",
		bson.M{"$divide": bson.A{leadTimeNs, int64(time.Millisecond)}},
	}}
	filter := bson.M{
		"status": domain.StatusScheduled,
		"$expr":  bson.M{"$lte": bson.A{windowOpensAt, t}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduledPickupTime", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
