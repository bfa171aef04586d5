package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used across the service.
const (
	ColOffers               = "offers"
	ColProducts             = "products"
	ColOrders               = "orders"
	ColReferralAccounts     = "referral_accounts"
	ColReferralTransactions = "referral_transactions"
	ColWithdrawals          = "withdrawals"
	ColDomainEvents         = "domain_events"
	ColCounters             = "counters"
)

// Store wraps the MongoDB client and database handle shared by all repositories.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect establishes a MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{Client: client, DB: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Disconnect(ctx)
}

// Ping verifies database connectivity within the given timeout.
func (s *Store) Ping(ctx context.Context, timeout time.Duration) error {
	if s == nil || s.Client == nil {
		return errors.New("store: not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

// Collection returns a handle to the named collection.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.DB.Collection(name)
}

// EnsureIndexes creates the unique and query indexes the service relies on.
// The store is schema-less; this runs at startup instead of a migration step.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for col, models := range IndexSpecs() {
		if _, err := s.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("store: ensure indexes for %s: %w", col, err)
		}
	}
	return nil
}

// IndexSpecs returns the index definitions per collection.
func IndexSpecs() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		ColOffers: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ColProducts: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "isActive", Value: 1}}},
		},
		ColOrders: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		ColReferralAccounts: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "referralCode", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "referredBy", Value: 1}}},
		},
		ColReferralTransactions: {
			// one ledger entry per (joiner, level) keeps retried cascades idempotent
			{Keys: bson.D{{Key: "relatedUser", Value: 1}, {Key: "level", Value: 1}}, Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.D{{Key: "level", Value: bson.D{{Key: "$gte", Value: 1}}}})},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		ColWithdrawals: {
			{Keys: bson.D{{Key: "referenceId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		ColDomainEvents: {
			{Keys: bson.D{{Key: "topic", Value: 1}, {Key: "occurredAt", Value: -1}}},
		},
	}
}

// NextSequence atomically increments and returns the named counter. Used for
// human-readable reference ids such as withdrawal references.
func (s *Store) NextSequence(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	res := s.Collection(ColCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	if err := res.Decode(&doc); err != nil {
		return 0, fmt.Errorf("store: next sequence %s: %w", name, err)
	}
	return doc.Seq, nil
}

// IsDuplicateKey reports whether the error is a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsNotFound reports whether the error means no document matched.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
