package withdrawal

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

// MongoStore persists withdrawals and adjusts referral balances.
type MongoStore struct {
	DB *store.Store
}

var _ Store = (*MongoStore)(nil)

func (m *MongoStore) coll() *mongo.Collection {
	return m.DB.Collection(store.ColWithdrawals)
}

func (m *MongoStore) accounts() *mongo.Collection {
	return m.DB.Collection(store.ColReferralAccounts)
}

// NextReferenceID allocates the next WD-prefixed sequence number.
func (m *MongoStore) NextReferenceID(ctx context.Context) (string, error) {
	n, err := m.DB.NextSequence(ctx, "withdrawal")
	if err != nil {
		return "", fmt.Errorf("allocate withdrawal reference: %w", err)
	}
	return fmt.Sprintf("WD%05d", n), nil
}

func (m *MongoStore) InsertWithdrawal(ctx context.Context, w *Withdrawal) error {
	res, err := m.coll().InsertOne(ctx, w)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		w.ID = oid
	}
	return nil
}

func (m *MongoStore) FindWithdrawalByID(ctx context.Context, id string) (*Withdrawal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var out Withdrawal
	if err := m.coll().FindOne(ctx, bson.M{"_id": oid}).Decode(&out); err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find withdrawal: %w", err)
	}
	return &out, nil
}

func (m *MongoStore) ListWithdrawalsByUser(ctx context.Context, userID string, limit, offset int) ([]Withdrawal, int64, error) {
	return m.list(ctx, bson.M{"userId": userID}, limit, offset)
}

func (m *MongoStore) ListWithdrawals(ctx context.Context, status string, limit, offset int) ([]Withdrawal, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return m.list(ctx, filter, limit, offset)
}

func (m *MongoStore) list(ctx context.Context, filter bson.M, limit, offset int) ([]Withdrawal, int64, error) {
	total, err := m.coll().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count withdrawals: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cur, err := m.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawals: %w", err)
	}
	defer cur.Close(ctx)
	out := make([]Withdrawal, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode withdrawals: %w", err)
	}
	return out, total, nil
}

// UpdateWithdrawalStatus is conditional on the expected current status so a
// concurrent review cannot double-apply.
func (m *MongoStore) UpdateWithdrawalStatus(ctx context.Context, id, from, to, remarks string, processedAt *time.Time) (*Withdrawal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	set := bson.M{"status": to, "updatedAt": time.Now()}
	if remarks != "" {
		set["remarks"] = remarks
	}
	if processedAt != nil {
		set["processedAt"] = *processedAt
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out Withdrawal
	err = m.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": from},
		bson.M{"$set": set},
		opts,
	).Decode(&out)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update withdrawal status: %w", err)
	}
	return &out, nil
}

// HoldFunds moves amount from availableBalance to pendingWithdrawal. The
// balance guard lives in the filter, so an insufficient balance simply
// matches nothing.
func (m *MongoStore) HoldFunds(ctx context.Context, userID string, amount int64) error {
	res, err := m.accounts().UpdateOne(ctx,
		bson.M{"userId": userID, "availableBalance": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"availableBalance": -amount, "pendingWithdrawal": amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("hold funds: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// ReleaseFunds returns a held amount to the available balance.
func (m *MongoStore) ReleaseFunds(ctx context.Context, userID string, amount int64) error {
	res, err := m.accounts().UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$inc": bson.M{"availableBalance": amount, "pendingWithdrawal": -amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("release funds: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SettleFunds consumes a held amount once the payout is made.
func (m *MongoStore) SettleFunds(ctx context.Context, userID string, amount int64) error {
	res, err := m.accounts().UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$inc": bson.M{"pendingWithdrawal": -amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("settle funds: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
