package referral

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxLevel bounds how far up the sponsor chain a registration pays out.
const MaxLevel = 3

// Transaction types and statuses as recorded in the ledger. Level 1 payouts
// are direct referral bonuses; deeper levels are commissions.
const (
	TxTypeReferral    = "referral"
	TxTypeCommission  = "commission"
	TxStatusCompleted = "completed"
)

// DownlineEntry records one account recruited underneath an ancestor.
type DownlineEntry struct {
	UserID      string    `bson:"userId" json:"userId"`
	Level       int       `bson:"level" json:"level"`
	JoinedAt    time.Time `bson:"joinedAt" json:"joinedAt"`
	IsActive    bool      `bson:"isActive" json:"isActive"`
	TotalEarned int64     `bson:"totalEarned" json:"totalEarned"`
}

// Account is the per-user referral document. Monetary fields are minor units.
// CommissionRates is retained for reporting; payouts use the configured flat
// bonus schedule.
type Account struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            string             `bson:"userId" json:"userId"`
	ReferralCode      string             `bson:"referralCode" json:"referralCode"`
	ReferredBy        string             `bson:"referredBy,omitempty" json:"referredBy,omitempty"`
	IsActive          bool               `bson:"isActive" json:"isActive"`
	TotalReferrals    int64              `bson:"totalReferrals" json:"totalReferrals"`
	ActiveReferrals   int64              `bson:"activeReferrals" json:"activeReferrals"`
	Level1Referrals   int64              `bson:"level1Referrals" json:"level1Referrals"`
	Level2Referrals   int64              `bson:"level2Referrals" json:"level2Referrals"`
	Level3Referrals   int64              `bson:"level3Referrals" json:"level3Referrals"`
	TotalEarnings     int64              `bson:"totalEarnings" json:"totalEarnings"`
	AvailableBalance  int64              `bson:"availableBalance" json:"availableBalance"`
	PendingWithdrawal int64              `bson:"pendingWithdrawal" json:"pendingWithdrawal"`
	MonthlyEarnings   int64              `bson:"monthlyEarnings" json:"monthlyEarnings"`
	CommissionRates   [MaxLevel]int64    `bson:"commissionRates" json:"commissionRates"`
	Downline          []DownlineEntry    `bson:"downline" json:"downline"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Transaction is one immutable ledger entry. User is the earner and
// RelatedUser the newly registered account that triggered the payout.
type Transaction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userId" json:"userId"`
	RelatedUser string             `bson:"relatedUser" json:"relatedUser"`
	Level       int                `bson:"level" json:"level"`
	Amount      int64              `bson:"amount" json:"amount"`
	Type        string             `bson:"type" json:"type"`
	Status      string             `bson:"status" json:"status"`
	Description string             `bson:"description" json:"description"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// DefaultCommissionRates mirrors the historical percentage table stored on
// each account.
var DefaultCommissionRates = [MaxLevel]int64{10, 5, 2}
