// Package payment fronts the payment service provider. The current provider
// is a stub that accepts every charge; swap Process for a real gateway call.
package payment

import (
	"log"

	"vitrine/globals"
)

type Session struct {
	URL        string
	PurchaseID string
	Buyer      string
	Amount     float64
}

// CreateSession builds a checkout session for an open purchase.
func CreateSession(purchaseID, buyer string, amount float64) (Session, error) {
	var s Session
	s.URL = globals.EnvOr("CHECKOUT_URL", "http://localhost:5173/checkout/") + purchaseID
	s.PurchaseID = purchaseID
	s.Buyer = buyer
	s.Amount = amount
	return s, nil
}

// Process charges the buyer. Returns true on success.
func Process(purchaseID, buyer string, amount float64) bool {
	log.Printf("Processing payment for purchase %s, buyer %s, amount %.2f", purchaseID, buyer, amount)
	return true
}
