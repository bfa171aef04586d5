package order

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/digicoders-git/ksmedical-backend/internal/store"
)

// MongoStore persists orders in the orders collection.
type MongoStore struct {
	DB *store.Store
}

var _ Store = (*MongoStore)(nil)

func (m *MongoStore) coll() *mongo.Collection {
	return m.DB.Collection(store.ColOrders)
}

func (m *MongoStore) InsertOrder(ctx context.Context, o *Order) error {
	res, err := m.coll().InsertOne(ctx, o)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = oid
	}
	return nil
}

func (m *MongoStore) FindOrderByID(ctx context.Context, id string) (*Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var out Order
	if err := m.coll().FindOne(ctx, bson.M{"_id": oid}).Decode(&out); err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &out, nil
}

func (m *MongoStore) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int64, error) {
	return m.list(ctx, bson.M{"userId": userID}, limit, offset)
}

func (m *MongoStore) ListOrders(ctx context.Context, status string, limit, offset int) ([]Order, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return m.list(ctx, filter, limit, offset)
}

func (m *MongoStore) list(ctx context.Context, filter bson.M, limit, offset int) ([]Order, int64, error) {
	total, err := m.coll().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cur, err := m.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer cur.Close(ctx)
	out := make([]Order, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}
	return out, total, nil
}

// UpdateOrderStatus moves an order between statuses. The filter pins the
// expected current status so a concurrent transition loses cleanly.
func (m *MongoStore) UpdateOrderStatus(ctx context.Context, id, from, to string) (*Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out Order
	err = m.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
		opts,
	).Decode(&out)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return &out, nil
}

func (m *MongoStore) SetPaymentStatus(ctx context.Context, id, status string) (*Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out Order
	err = m.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"paymentStatus": status, "updatedAt": time.Now()}},
		opts,
	).Decode(&out)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	return &out, nil
}
