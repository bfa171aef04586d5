package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/digicoders-git/ksmedical-backend/internal/store"
)

// MongoStore persists referral accounts and the payout ledger.
type MongoStore struct {
	DB *store.Store
}

var _ Store = (*MongoStore)(nil)

func (m *MongoStore) accounts() *mongo.Collection {
	return m.DB.Collection(store.ColReferralAccounts)
}

func (m *MongoStore) transactions() *mongo.Collection {
	return m.DB.Collection(store.ColReferralTransactions)
}

// InsertAccount creates the account document. Duplicate userId means the
// account already exists; duplicate referralCode means the generated code
// collided and the caller should retry with a fresh one.
func (m *MongoStore) InsertAccount(ctx context.Context, a *Account) error {
	res, err := m.accounts().InsertOne(ctx, a)
	if err != nil {
		if store.IsDuplicateKey(err) {
			var we mongo.WriteException
			if errors.As(err, &we) {
				for _, e := range we.WriteErrors {
					if strings.Contains(e.Message, "referralCode") {
						return ErrCodeCollision
					}
				}
			}
			return ErrAccountExists
		}
		return fmt.Errorf("insert referral account: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid
	}
	return nil
}

func (m *MongoStore) FindAccountByUserID(ctx context.Context, userID string) (*Account, error) {
	var out Account
	if err := m.accounts().FindOne(ctx, bson.M{"userId": userID}).Decode(&out); err != nil {
		if store.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find referral account: %w", err)
	}
	return &out, nil
}

func (m *MongoStore) FindAccountByCode(ctx context.Context, code string) (*Account, error) {
	var out Account
	if err := m.accounts().FindOne(ctx, bson.M{"referralCode": code}).Decode(&out); err != nil {
		if store.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find referral account by code: %w", err)
	}
	return &out, nil
}

// InsertTransaction appends a ledger entry. The unique index on
// (relatedUser, level) turns a repeated payout attempt into ErrAlreadyCredited.
func (m *MongoStore) InsertTransaction(ctx context.Context, tx *Transaction) error {
	res, err := m.transactions().InsertOne(ctx, tx)
	if err != nil {
		if store.IsDuplicateKey(err) {
			return ErrAlreadyCredited
		}
		return fmt.Errorf("insert referral transaction: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		tx.ID = oid
	}
	return nil
}

// CreditAncestor applies the downline push and every counter increment in one
// update so concurrent registrations under the same ancestor never lose a
// credit. The filter excludes accounts already holding a downline entry for
// (entry.UserID, entry.Level), which makes the credit idempotent: a retried
// cascade can safely re-apply it and gets ErrAlreadyCredited when the earlier
// attempt landed.
func (m *MongoStore) CreditAncestor(ctx context.Context, userID string, entry DownlineEntry, amount int64) error {
	inc := bson.M{
		"totalReferrals":   1,
		"activeReferrals":  1,
		"totalEarnings":    amount,
		"availableBalance": amount,
		"monthlyEarnings":  amount,
	}
	switch entry.Level {
	case 1:
		inc["level1Referrals"] = 1
	case 2:
		inc["level2Referrals"] = 1
	case 3:
		inc["level3Referrals"] = 1
	}
	filter := bson.M{
		"userId": userID,
		"downline": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"userId": entry.UserID,
			"level":  entry.Level,
		}}},
	}
	update := bson.M{
		"$push": bson.M{"downline": entry},
		"$inc":  inc,
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	res, err := m.accounts().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("credit ancestor: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := m.FindAccountByUserID(ctx, userID); err != nil {
			return err
		}
		return ErrAlreadyCredited
	}
	return nil
}

func (m *MongoStore) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]Transaction, int64, error) {
	filter := bson.M{"userId": userID}
	total, err := m.transactions().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count referral transactions: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cur, err := m.transactions().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list referral transactions: %w", err)
	}
	defer cur.Close(ctx)
	out := make([]Transaction, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode referral transactions: %w", err)
	}
	return out, total, nil
}

// Stats aggregates network-wide totals for the admin dashboard.
func (m *MongoStore) Stats(ctx context.Context) (*NetworkStats, error) {
	accounts, err := m.accounts().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count referral accounts: %w", err)
	}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"total": bson.M{"$sum": "$amount"},
		}}},
	}
	cur, err := m.transactions().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate referral transactions: %w", err)
	}
	defer cur.Close(ctx)
	stats := &NetworkStats{TotalAccounts: accounts}
	var row struct {
		Count int64 `bson:"count"`
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode referral stats: %w", err)
		}
		stats.TotalTransactions = row.Count
		stats.TotalPaidOut = row.Total
	}
	return stats, nil
}

// ResetMonthlyEarnings zeroes every account's monthly counter. Run on the
// first of each month by the worker.
func (m *MongoStore) ResetMonthlyEarnings(ctx context.Context) (int64, error) {
	res, err := m.accounts().UpdateMany(ctx, bson.M{}, bson.M{
		"$set": bson.M{"monthlyEarnings": 0, "updatedAt": time.Now()},
	})
	if err != nil {
		return 0, fmt.Errorf("reset monthly earnings: %w", err)
	}
	return res.ModifiedCount, nil
}
