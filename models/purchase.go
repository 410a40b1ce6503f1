package models

import "time"

// Purchase status values. A purchase is the user's cart while open and an
// immutable order once paid.
const (
	PurchaseOpen = "open"
	PurchasePaid = "paid"
)

// PurchaseLine is one {product, quantity} entry in a purchase.
type PurchaseLine struct {
	Product  string `json:"product" bson:"product"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

type Purchase struct {
	PurchaseID string         `json:"purchaseid" bson:"purchaseid"`
	Buyer      string         `json:"buyer" bson:"buyer"`
	Lines      []PurchaseLine `json:"products" bson:"products"`
	Paid       bool           `json:"paid" bson:"paid"`
	Status     string         `json:"status" bson:"status"`
	// Version guards the read-modify-write cart mutations; every save
	// matches on it and increments it.
	Version   int64     `json:"-" bson:"version"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// LineIndex returns the position of productID in the purchase, or -1.
func (p *Purchase) LineIndex(productID string) int {
	for i, l := range p.Lines {
		if l.Product == productID {
			return i
		}
	}
	return -1
}

// PopulatedLine carries the full product document for read paths.
type PopulatedLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// PopulatedPurchase is the read shape of a purchase with product documents
// joined in.
type PopulatedPurchase struct {
	PurchaseID string          `json:"purchaseid"`
	Buyer      string          `json:"buyer"`
	Lines      []PopulatedLine `json:"products"`
	Paid       bool            `json:"paid"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
