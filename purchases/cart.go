package purchases

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/live"
	"vitrine/models"
	"vitrine/mq"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// maxSaveRetries bounds the optimistic-concurrency retry loop on cart saves.
const maxSaveRetries = 3

var hub *live.Hub

// UseHub wires the websocket hub so cart mutations push live updates.
func UseHub(h *live.Hub) { hub = h }

// Cart line operations. The PUT semantics are expressed as explicit tagged
// ops so the decision and the mutation stay separate and testable.

type lineOp int

const (
	opAddLine lineOp = iota
	opSetQuantity
	opRemoveLine
)

// planEdit decides what an edit with the given quantity means for this cart:
// a present line with a positive quantity is replaced, a present line with a
// non-positive quantity is removed, an absent line is inserted.
func planEdit(p *models.Purchase, productID string, quantity int) lineOp {
	if p.LineIndex(productID) < 0 {
		return opAddLine
	}
	if quantity <= 0 {
		return opRemoveLine
	}
	return opSetQuantity
}

func applyAdd(p *models.Purchase, productID string, quantity int) error {
	if p.LineIndex(productID) >= 0 {
		return apperr.New(http.StatusConflict, "product is already in the cart").WithHint(apperr.Hint{
			Functionality: "change the quantity instead",
			Method:        http.MethodPut,
			URL:           "/api/products/" + productID + "/cart",
		})
	}
	if quantity < 1 {
		quantity = 1
	}
	p.Lines = append(p.Lines, models.PurchaseLine{Product: productID, Quantity: quantity})
	return nil
}

func applySet(p *models.Purchase, productID string, quantity int) error {
	i := p.LineIndex(productID)
	if i < 0 {
		return apperr.New(http.StatusNotFound, "product not found in cart")
	}
	p.Lines[i].Quantity = quantity
	return nil
}

func applyRemove(p *models.Purchase, productID string) error {
	i := p.LineIndex(productID)
	if i < 0 {
		return apperr.New(http.StatusNotFound, "product not found in cart")
	}
	p.Lines = append(p.Lines[:i], p.Lines[i+1:]...)
	return nil
}

func applyEdit(p *models.Purchase, productID string, quantity int) error {
	switch planEdit(p, productID, quantity) {
	case opRemoveLine:
		return applyRemove(p, productID)
	case opSetQuantity:
		return applySet(p, productID, quantity)
	default:
		return applyAdd(p, productID, quantity)
	}
}

// AddToCart handles POST /api/products/:id/cart.
func AddToCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID, quantity, err := cartRequest(r, ps)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	buyer := utils.GetUserIDFromRequest(r)
	cart, err := openCart(r.Context(), buyer)
	if err == mongo.ErrNoDocuments {
		created, err := createCart(r.Context(), buyer, productID, addQuantity(quantity))
		if err != nil {
			utils.SendError(w, err)
			return
		}
		notify(r.Context(), buyer, "cart_created", created.PurchaseID, productID)
		utils.SendData(w, http.StatusCreated, created, nil)
		return
	}
	if err != nil {
		utils.SendError(w, err)
		return
	}

	saved, err := mutateCart(r.Context(), buyer, cart, func(p *models.Purchase) error {
		return applyAdd(p, productID, addQuantity(quantity))
	})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	notify(r.Context(), buyer, "cart_updated", saved.PurchaseID, productID)
	utils.SendData(w, http.StatusOK, saved, nil)
}

// EditCart handles PUT /api/products/:id/cart.
func EditCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID, quantity, err := cartRequest(r, ps)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	buyer := utils.GetUserIDFromRequest(r)
	cart, err := openCart(r.Context(), buyer)
	if err == mongo.ErrNoDocuments {
		utils.SendError(w, apperr.New(http.StatusNotFound, "you have no open cart").WithHint(apperr.Hint{
			Functionality: "add the product to a new cart",
			Method:        http.MethodPost,
			URL:           "/api/products/" + productID + "/cart",
		}))
		return
	}
	if err != nil {
		utils.SendError(w, err)
		return
	}

	saved, err := mutateCart(r.Context(), buyer, cart, func(p *models.Purchase) error {
		return applyEdit(p, productID, editQuantity(quantity))
	})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	notify(r.Context(), buyer, "cart_updated", saved.PurchaseID, productID)
	utils.SendData(w, http.StatusOK, saved, nil)
}

// RemoveFromCart handles DELETE /api/products/:id/cart.
func RemoveFromCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID, err := resolveProduct(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	buyer := utils.GetUserIDFromRequest(r)
	cart, err := openCart(r.Context(), buyer)
	if err == mongo.ErrNoDocuments {
		utils.SendError(w, apperr.New(http.StatusNotFound, "you have no open cart"))
		return
	}
	if err != nil {
		utils.SendError(w, err)
		return
	}

	saved, err := mutateCart(r.Context(), buyer, cart, func(p *models.Purchase) error {
		return applyRemove(p, productID)
	})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	notify(r.Context(), buyer, "cart_updated", saved.PurchaseID, productID)
	utils.SendData(w, http.StatusOK, saved, nil)
}

// cartRequest validates the product in the path and reads the quantity from
// the body. The quantity is nil when the body omits it; POST and PUT give an
// omitted quantity different meanings, so the handlers resolve it themselves.
func cartRequest(r *http.Request, ps httprouter.Params) (string, *int, error) {
	productID, err := resolveProduct(r.Context(), ps.ByName("id"))
	if err != nil {
		return "", nil, err
	}
	quantity, err := parseQuantity(r)
	if err != nil {
		return "", nil, err
	}
	return productID, quantity, nil
}

func parseQuantity(r *http.Request) (*int, error) {
	var input struct {
		Quantity *int `json:"quantity"`
	}
	if r.Body != nil {
		// An empty body is fine, malformed JSON is not.
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
			return nil, apperr.New(http.StatusBadRequest, "invalid request body")
		}
	}
	return input.Quantity, nil
}

// addQuantity resolves an omitted quantity on POST: one item.
func addQuantity(quantity *int) int {
	if quantity == nil {
		return 1
	}
	return *quantity
}

// editQuantity resolves an omitted quantity on PUT: zero, which removes a
// present line and leaves an absent one to be inserted at the default.
func editQuantity(quantity *int) int {
	if quantity == nil {
		return 0
	}
	return *quantity
}

func resolveProduct(ctx context.Context, key string) (string, error) {
	var product struct {
		ProductID string `bson:"productid"`
	}
	err := db.ProductsCollection.FindOne(ctx, bson.M{
		"$or": []bson.M{{"productid": key}, {"slug": key}},
	}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return "", apperr.New(http.StatusNotFound, "product not found")
	}
	return product.ProductID, err
}

func openCart(ctx context.Context, buyer string) (models.Purchase, error) {
	var cart models.Purchase
	err := db.PurchasesCollection.FindOne(ctx, bson.M{
		"buyer": buyer, "status": models.PurchaseOpen,
	}).Decode(&cart)
	return cart, err
}

func createCart(ctx context.Context, buyer, productID string, quantity int) (models.Purchase, error) {
	if quantity < 1 {
		quantity = 1
	}
	now := time.Now()
	cart := models.Purchase{
		PurchaseID: "pur" + utils.GenerateRandomString(10),
		Buyer:      buyer,
		Lines:      []models.PurchaseLine{{Product: productID, Quantity: quantity}},
		Paid:       false,
		Status:     models.PurchaseOpen,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.PurchasesCollection.InsertOne(ctx, cart); err != nil {
		return models.Purchase{}, err
	}
	if _, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": buyer},
		bson.M{"$push": bson.M{"purchases": cart.PurchaseID}},
	); err != nil {
		return models.Purchase{}, err
	}
	return cart, nil
}

// mutateCart applies fn to the cart and saves it guarded by the version
// field. A concurrent writer makes the guarded update match nothing; the
// cart is then reloaded and fn reapplied, a bounded number of times.
func mutateCart(ctx context.Context, buyer string, cart models.Purchase, fn func(*models.Purchase) error) (models.Purchase, error) {
	for attempt := 0; ; attempt++ {
		working := cart
		working.Lines = append([]models.PurchaseLine(nil), cart.Lines...)

		if err := fn(&working); err != nil {
			return models.Purchase{}, err
		}

		working.UpdatedAt = time.Now()
		res, err := db.PurchasesCollection.UpdateOne(ctx,
			bson.M{"purchaseid": working.PurchaseID, "version": working.Version},
			bson.M{
				"$set": bson.M{"products": working.Lines, "updatedAt": working.UpdatedAt},
				"$inc": bson.M{"version": 1},
			},
		)
		if err != nil {
			return models.Purchase{}, err
		}
		if res.MatchedCount == 1 {
			working.Version++
			return working, nil
		}

		if attempt+1 >= maxSaveRetries {
			return models.Purchase{}, apperr.New(http.StatusConflict, "cart changed concurrently, please retry")
		}
		cart, err = openCart(ctx, buyer)
		if err == mongo.ErrNoDocuments {
			return models.Purchase{}, apperr.New(http.StatusConflict, "cart is no longer open")
		}
		if err != nil {
			return models.Purchase{}, err
		}
	}
}

func notify(ctx context.Context, buyer, event, purchaseID, productID string) {
	if hub != nil {
		hub.Broadcast(buyer, live.Update{Type: event, PurchaseID: purchaseID, ProductID: productID})
	}
	mq.Emit(ctx, event, models.CatalogEvent{
		EntityType: "purchase", EntityID: purchaseID, Method: "POST", UserID: buyer,
	})
}
