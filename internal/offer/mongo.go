package offer

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/digicoders-git/ksmedical-backend/internal/store"
)

// MongoStore persists offers in the offers collection.
type MongoStore struct {
	DB *store.Store
}

var _ Store = (*MongoStore)(nil)

func (m *MongoStore) coll() *mongo.Collection {
	return m.DB.Collection(store.ColOffers)
}

func (m *MongoStore) InsertOffer(ctx context.Context, o *Offer) error {
	res, err := m.coll().InsertOne(ctx, o)
	if err != nil {
		if store.IsDuplicateKey(err) {
			return ErrCodeTaken
		}
		return fmt.Errorf("insert offer: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = oid
	}
	return nil
}

func (m *MongoStore) UpdateOffer(ctx context.Context, id string, set map[string]any) (*Offer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out Offer
	err = m.coll().FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&out)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update offer: %w", err)
	}
	return &out, nil
}

func (m *MongoStore) DeleteOffer(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := m.coll().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) FindOfferByID(ctx context.Context, id string) (*Offer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var out Offer
	if err := m.coll().FindOne(ctx, bson.M{"_id": oid}).Decode(&out); err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find offer: %w", err)
	}
	return &out, nil
}

func (m *MongoStore) FindOfferByCode(ctx context.Context, code string) (*Offer, error) {
	var out Offer
	if err := m.coll().FindOne(ctx, bson.M{"code": code}).Decode(&out); err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find offer by code: %w", err)
	}
	return &out, nil
}

func (m *MongoStore) ListOffers(ctx context.Context, activeOnly bool, limit, offset int) ([]Offer, int64, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	total, err := m.coll().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count offers: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cur, err := m.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list offers: %w", err)
	}
	defer cur.Close(ctx)
	out := make([]Offer, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode offers: %w", err)
	}
	return out, total, nil
}
