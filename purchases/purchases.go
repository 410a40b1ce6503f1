package purchases

import (
	"context"
	"net/http"
	"time"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/globals"
	"vitrine/models"
	"vitrine/payment"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetPurchases handles GET /api/purchases: the caller's purchases, newest
// first, with product documents joined into the lines.
func GetPurchases(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	buyer := utils.GetUserIDFromRequest(r)

	cursor, err := db.PurchasesCollection.Find(r.Context(),
		bson.M{"buyer": buyer},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	defer cursor.Close(r.Context())

	var raw []models.Purchase
	if err := cursor.All(r.Context(), &raw); err != nil {
		utils.SendError(w, err)
		return
	}

	populated := make([]models.PopulatedPurchase, 0, len(raw))
	for i := range raw {
		p, err := populate(r.Context(), raw[i])
		if err != nil {
			utils.SendError(w, err)
			return
		}
		populated = append(populated, p)
	}

	utils.SendData(w, http.StatusOK, populated, utils.M{"total": len(populated)})
}

// GetPurchase handles GET /api/purchases/:id.
func GetPurchase(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	purchase, err := findOwn(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	populated, err := populate(r.Context(), purchase)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendData(w, http.StatusOK, populated, nil)
}

// GetTotal handles GET /api/purchases/:id/payment: the amount due at current
// product prices, rounded to two decimals.
func GetTotal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	purchase, err := findOwn(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	total, err := currentTotal(r.Context(), purchase)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	session, err := payment.CreateSession(purchase.PurchaseID, purchase.Buyer, total)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	utils.SendData(w, http.StatusOK, utils.M{
		"purchaseid":   purchase.PurchaseID,
		"total":        total,
		"checkout_url": session.URL,
	}, utils.M{
		"pay": apperr.Hint{
			Functionality: "pay this purchase",
			Method:        http.MethodPost,
			URL:           "/api/purchases/" + purchase.PurchaseID + "/payment",
		},
	})
}

// Pay handles POST /api/purchases/:id/payment. Payment succeeds at most once;
// a failed attempt leaves the purchase untouched.
func Pay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	purchase, err := findOwn(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	total, err := currentTotal(r.Context(), purchase)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	if !payment.Process(purchase.PurchaseID, purchase.Buyer, total) {
		utils.SendError(w, apperr.New(http.StatusBadGateway, "payment was not accepted"))
		return
	}

	// Guard on status so a concurrent payment cannot flip it twice.
	res, err := db.PurchasesCollection.UpdateOne(r.Context(),
		bson.M{"purchaseid": purchase.PurchaseID, "status": models.PurchaseOpen},
		bson.M{
			"$set": bson.M{"paid": true, "status": models.PurchasePaid, "updatedAt": time.Now()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if res.MatchedCount == 0 {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "purchase is already paid"))
		return
	}

	notify(r.Context(), purchase.Buyer, "order_paid", purchase.PurchaseID, "")

	utils.SendData(w, http.StatusOK, utils.M{
		"purchaseid": purchase.PurchaseID,
		"paid":       true,
		"total":      total,
	}, utils.M{
		"receipt": apperr.Hint{
			Functionality: "download the receipt",
			Method:        http.MethodGet,
			URL:           "/api/purchases/" + purchase.PurchaseID + "/receipt",
		},
	})
}

// DeletePurchase handles DELETE /api/purchases/:id. Paid purchases are
// immutable; deleting an open one also drops the user's back-reference.
func DeletePurchase(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	purchase, err := findOwn(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if purchase.Paid {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "a paid purchase cannot be deleted"))
		return
	}

	if _, err := db.PurchasesCollection.DeleteOne(r.Context(), bson.M{"purchaseid": purchase.PurchaseID}); err != nil {
		utils.SendError(w, err)
		return
	}
	if _, err := db.UserCollection.UpdateOne(r.Context(),
		bson.M{"userid": purchase.Buyer},
		bson.M{"$pull": bson.M{"purchases": purchase.PurchaseID}},
	); err != nil {
		utils.SendError(w, err)
		return
	}

	notify(r.Context(), purchase.Buyer, "cart_deleted", purchase.PurchaseID, "")

	utils.SendData(w, http.StatusOK, utils.M{"deleted": purchase.PurchaseID}, nil)
}

// findOwn loads a purchase and checks the caller may see it: the buyer, or
// an admin.
func findOwn(r *http.Request, purchaseID string) (models.Purchase, error) {
	var purchase models.Purchase
	err := db.PurchasesCollection.FindOne(r.Context(), bson.M{"purchaseid": purchaseID}).Decode(&purchase)
	if err == mongo.ErrNoDocuments {
		return purchase, apperr.New(http.StatusNotFound, "purchase not found")
	}
	if err != nil {
		return purchase, err
	}
	if purchase.Buyer != utils.GetUserIDFromRequest(r) && utils.GetRoleFromRequest(r) != globals.RoleAdmin {
		return purchase, apperr.New(http.StatusForbidden, "this purchase belongs to another user")
	}
	return purchase, nil
}

// currentTotal prices the purchase at current catalogue prices. Paid
// purchases and empty or worthless carts are rejected.
func currentTotal(ctx context.Context, purchase models.Purchase) (float64, error) {
	if purchase.Paid {
		return 0, apperr.New(http.StatusBadRequest, "purchase is already paid")
	}

	populated, err := populate(ctx, purchase)
	if err != nil {
		return 0, err
	}

	total := sumLines(populated.Lines)
	if total <= 0 {
		return 0, apperr.New(http.StatusBadRequest, "purchase total must be greater than zero")
	}
	return total, nil
}

// sumLines prices the lines at the product prices they carry, rounded to two
// decimals.
func sumLines(lines []models.PopulatedLine) float64 {
	total := 0.0
	for _, line := range lines {
		total += float64(line.Quantity) * line.Product.Price
	}
	return utils.Round2(total)
}

func populate(ctx context.Context, purchase models.Purchase) (models.PopulatedPurchase, error) {
	populated := models.PopulatedPurchase{
		PurchaseID: purchase.PurchaseID,
		Buyer:      purchase.Buyer,
		Lines:      make([]models.PopulatedLine, 0, len(purchase.Lines)),
		Paid:       purchase.Paid,
		Status:     purchase.Status,
		CreatedAt:  purchase.CreatedAt,
		UpdatedAt:  purchase.UpdatedAt,
	}
	for _, line := range purchase.Lines {
		var product models.Product
		err := db.ProductsCollection.FindOne(ctx, bson.M{"productid": line.Product}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			// Product was removed from the catalogue; keep the line with
			// just the id so history stays readable.
			product = models.Product{ProductID: line.Product}
		} else if err != nil {
			return populated, err
		}
		populated.Lines = append(populated.Lines, models.PopulatedLine{
			Product:  product,
			Quantity: line.Quantity,
		})
	}
	return populated, nil
}
