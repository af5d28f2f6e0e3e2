package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levijcl/Wei-sub000/internal/wes/domain"
)

// PickingTaskRepository implements domain.PickingTaskRepository
type PickingTaskRepository struct {
	collection *mongo.Collection
}

// NewPickingTaskRepository creates a new picking task repository
func NewPickingTaskRepository(db *mongo.Database) *PickingTaskRepository {
	collection := db.Collection("picking_tasks")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "taskId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "wesTaskId", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"wesTaskId": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "orderId", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
	}

	collection.Indexes().CreateMany(ctx, indexes)

	return &PickingTaskRepository{collection: collection}
}

func (r *PickingTaskRepository) Save(ctx context.Context, task *domain.PickingTask) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"taskId": task.TaskID}, task, opts)
	return err
}

func (r *PickingTaskRepository) FindByID(ctx context.Context, taskID string) (*domain.PickingTask, error) {
	return r.findOne(ctx, bson.M{"taskId": taskID})
}

func (r *PickingTaskRepository) FindByWesTaskID(ctx context.Context, wesTaskID string) (*domain.PickingTask, error) {
	return r.findOne(ctx, bson.M{"wesTaskId": wesTaskID})
}

func (r *PickingTaskRepository) findOne(ctx context.Context, filter bson.M) (*domain.PickingTask, error) {
	var task domain.PickingTask
	err := r.collection.FindOne(ctx, filter).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *PickingTaskRepository) FindByOrderID(ctx context.Context, orderID string) ([]*domain.PickingTask, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*domain.PickingTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *PickingTaskRepository) FindByStatus(ctx context.Context, status domain.TaskStatus, limit int64) ([]*domain.PickingTask, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*domain.PickingTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
