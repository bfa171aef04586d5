package withdrawal

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Withdrawal statuses. Pending requests are either approved then completed,
// or rejected with the funds returned.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// PaymentDetails is the payout destination supplied by the requester.
type PaymentDetails struct {
	Method        string `bson:"method" json:"method" validate:"required,oneof=upi bank"`
	UPIID         string `bson:"upiId,omitempty" json:"upiId,omitempty" validate:"required_if=Method upi"`
	AccountNumber string `bson:"accountNumber,omitempty" json:"accountNumber,omitempty" validate:"required_if=Method bank"`
	IFSC          string `bson:"ifsc,omitempty" json:"ifsc,omitempty" validate:"required_if=Method bank"`
	HolderName    string `bson:"holderName,omitempty" json:"holderName,omitempty" validate:"required_if=Method bank"`
}

// Withdrawal is the persisted payout request. Monetary fields are minor units.
type Withdrawal struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"userId" json:"userId"`
	ReferenceID    string             `bson:"referenceId" json:"referenceId"`
	Amount         int64              `bson:"amount" json:"amount"`
	Fee            int64              `bson:"fee" json:"fee"`
	NetAmount      int64              `bson:"netAmount" json:"netAmount"`
	Status         string             `bson:"status" json:"status"`
	PaymentDetails PaymentDetails     `bson:"paymentDetails" json:"paymentDetails"`
	Remarks        string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
	ProcessedAt    *time.Time         `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

var validTransitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

// CanTransition reports whether a withdrawal may move between statuses.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
