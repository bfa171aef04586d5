package catalog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/digicoders-git/ksmedical-backend/internal/store"
)

// MongoStore reads products from the products collection.
type MongoStore struct {
	DB *store.Store
}

var _ Store = (*MongoStore)(nil)

func (m *MongoStore) coll() *mongo.Collection {
	return m.DB.Collection(store.ColProducts)
}

func (m *MongoStore) FindProductByID(ctx context.Context, id string) (*Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var out Product
	if err := m.coll().FindOne(ctx, bson.M{"_id": oid}).Decode(&out); err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &out, nil
}

func (m *MongoStore) FindProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil, nil
	}
	cur, err := m.coll().Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)
	var out []Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return out, nil
}

func (m *MongoStore) ListProducts(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int64, error) {
	q := bson.M{}
	if filter.ActiveOnly {
		q["isActive"] = true
	}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if filter.Search != "" {
		q["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}
	total, err := m.coll().CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cur, err := m.coll().Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer cur.Close(ctx)
	out := make([]Product, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	return out, total, nil
}
