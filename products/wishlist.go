package products

import (
	"net/http"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/models"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ToggleWishlist handles PUT /api/products/:id/wishlist: adds the product to
// the caller's wishlist, or removes it when it is already there.
func ToggleWishlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	product, err := findProduct(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	userID := utils.GetUserIDFromRequest(r)

	var user models.User
	err = db.UserCollection.FindOne(r.Context(), bson.M{"userid": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		utils.SendError(w, apperr.New(http.StatusNotFound, "user not found"))
		return
	}
	if err != nil {
		utils.SendError(w, err)
		return
	}

	wishlisted := false
	update := bson.M{"$addToSet": bson.M{"wishlist": product.ProductID}}
	for _, id := range user.Wishlist {
		if id == product.ProductID {
			update = bson.M{"$pull": bson.M{"wishlist": product.ProductID}}
			break
		}
	}
	if _, ok := update["$addToSet"]; ok {
		wishlisted = true
	}

	if _, err := db.UserCollection.UpdateOne(r.Context(), bson.M{"userid": userID}, update); err != nil {
		utils.SendError(w, err)
		return
	}

	utils.SendData(w, http.StatusOK, utils.M{
		"productid":  product.ProductID,
		"wishlisted": wishlisted,
	}, nil)
}
