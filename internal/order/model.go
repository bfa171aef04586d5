package order

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses follow the fulfilment lifecycle. Cancellation is only
// allowed while pending.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Item is one order line with prices captured at placement time.
type Item struct {
	ProductID  string `bson:"productId" json:"productId"`
	Name       string `bson:"name" json:"name"`
	UnitPrice  int64  `bson:"unitPrice" json:"unitPrice"`
	AddOnPrice int64  `bson:"addOnPrice,omitempty" json:"addOnPrice,omitempty"`
	Qty        int    `bson:"qty" json:"qty"`
}

// ShippingAddress is the delivery destination snapshot.
type ShippingAddress struct {
	Name    string `bson:"name" json:"name"`
	Phone   string `bson:"phone" json:"phone"`
	Line1   string `bson:"line1" json:"line1"`
	Line2   string `bson:"line2,omitempty" json:"line2,omitempty"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	PinCode string `bson:"pinCode" json:"pinCode"`
}

// Order is the persisted order document. Monetary fields are minor units.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          string             `bson:"userId" json:"userId"`
	Items           []Item             `bson:"items" json:"items"`
	Subtotal        int64              `bson:"subtotal" json:"subtotal"`
	Discount        int64              `bson:"discount" json:"discount"`
	Total           int64              `bson:"total" json:"total"`
	OfferCode       string             `bson:"offerCode,omitempty" json:"offerCode,omitempty"`
	Status          string             `bson:"status" json:"status"`
	PaymentStatus   string             `bson:"paymentStatus" json:"paymentStatus"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// validTransitions lists the admin-driven status moves.
var validTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
