package events

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/digicoders-git/ksmedical-backend/internal/store"
)

// MongoStore appends domain events to the domain_events collection.
type MongoStore struct {
	DB *store.Store
}

var _ EventStore = (*MongoStore)(nil)

func (m *MongoStore) coll() *mongo.Collection {
	return m.DB.Collection(store.ColDomainEvents)
}

func (m *MongoStore) InsertDomainEvent(ctx context.Context, ev *Event) error {
	res, err := m.coll().InsertOne(ctx, ev)
	if err != nil {
		return fmt.Errorf("insert domain event: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		ev.ID = oid
	}
	return nil
}
