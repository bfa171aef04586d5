package offer

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Offer is the persisted discount rule document.
type Offer struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code              string             `bson:"code" json:"code"`
	Title             string             `bson:"title" json:"title"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	DiscountType      string             `bson:"discountType" json:"discountType"`
	DiscountValue     int64              `bson:"discountValue" json:"discountValue"`
	MinOrderAmount    int64              `bson:"minOrderAmount" json:"minOrderAmount"`
	MaxDiscountAmount int64              `bson:"maxDiscountAmount" json:"maxDiscountAmount"`
	StartsAt          *time.Time         `bson:"startsAt,omitempty" json:"startsAt,omitempty"`
	EndsAt            *time.Time         `bson:"endsAt,omitempty" json:"endsAt,omitempty"`
	IsActive          bool               `bson:"isActive" json:"isActive"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
