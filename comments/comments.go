package comments

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/globals"
	"vitrine/models"
	"vitrine/mq"
	"vitrine/query"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GetComments handles GET /api/products/:id/comments.
func GetComments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID, err := resolveProduct(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	q := query.Parse(r.URL.Query(), nil)
	q.Filter["product"] = productID
	page, err := query.Run[models.Comment](r.Context(), db.CommentsCollection, q)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendData(w, http.StatusOK, page.Items, utils.M{
		"total":        page.Total,
		"current_page": page.CurrentPage,
		"last_page":    page.LastPage,
	})
}

// InsertComment handles POST /api/products/:id/comments.
func InsertComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID, err := resolveProduct(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	var input struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	if len(input.Comment) < 15 {
		utils.SendError(w, apperr.NewValidation().Add("comment", "comment must have at least 15 characters"))
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	now := time.Now()
	comment := models.Comment{
		CommentID: "cm" + utils.GenerateRandomString(10),
		Product:   productID,
		User:      userID,
		Comment:   input.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := db.CommentsCollection.InsertOne(r.Context(), comment); err != nil {
		utils.SendError(w, err)
		return
	}
	if _, err := db.ProductsCollection.UpdateOne(r.Context(),
		bson.M{"productid": productID},
		bson.M{"$addToSet": bson.M{"comments": comment.CommentID}},
	); err != nil {
		log.Printf("link comment %s to product: %v", comment.CommentID, err)
	}

	mq.Emit(r.Context(), "comment-created", models.CatalogEvent{
		EntityType: "comment", EntityID: comment.CommentID, Method: "POST", UserID: userID,
	})

	utils.SendData(w, http.StatusCreated, comment, nil)
}

func ShowComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	comment, err := findComment(r, ps.ByName("id"), ps.ByName("cid"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendData(w, http.StatusOK, comment, nil)
}

func EditComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	comment, err := findComment(r, ps.ByName("id"), ps.ByName("cid"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if err := requireOwnerOrAdmin(r, comment.User); err != nil {
		utils.SendError(w, err)
		return
	}

	var input struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	if len(input.Comment) < 15 {
		utils.SendError(w, apperr.NewValidation().Add("comment", "comment must have at least 15 characters"))
		return
	}

	if _, err := db.CommentsCollection.UpdateOne(r.Context(),
		bson.M{"commentid": comment.CommentID},
		bson.M{"$set": bson.M{"comment": input.Comment, "updatedAt": time.Now()}},
	); err != nil {
		utils.SendError(w, err)
		return
	}

	comment.Comment = input.Comment
	utils.SendData(w, http.StatusOK, comment, nil)
}

func DeleteComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	comment, err := findComment(r, ps.ByName("id"), ps.ByName("cid"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if err := requireOwnerOrAdmin(r, comment.User); err != nil {
		utils.SendError(w, err)
		return
	}

	if _, err := db.CommentsCollection.DeleteOne(r.Context(), bson.M{"commentid": comment.CommentID}); err != nil {
		utils.SendError(w, err)
		return
	}
	if _, err := db.ProductsCollection.UpdateOne(r.Context(),
		bson.M{"productid": comment.Product},
		bson.M{"$pull": bson.M{"comments": comment.CommentID}},
	); err != nil {
		log.Printf("unlink comment %s from product: %v", comment.CommentID, err)
	}

	utils.SendData(w, http.StatusOK, utils.M{"deleted": comment.CommentID}, nil)
}

func findComment(r *http.Request, productKey, commentID string) (models.Comment, error) {
	productID, err := resolveProduct(r, productKey)
	if err != nil {
		return models.Comment{}, err
	}
	var comment models.Comment
	err = db.CommentsCollection.FindOne(r.Context(), bson.M{
		"commentid": commentID, "product": productID,
	}).Decode(&comment)
	if err == mongo.ErrNoDocuments {
		return comment, apperr.New(http.StatusNotFound, "comment not found")
	}
	return comment, err
}

func resolveProduct(r *http.Request, key string) (string, error) {
	var product struct {
		ProductID string `bson:"productid"`
	}
	err := db.ProductsCollection.FindOne(r.Context(), bson.M{
		"$or": []bson.M{{"productid": key}, {"slug": key}},
	}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return "", apperr.New(http.StatusNotFound, "product not found")
	}
	return product.ProductID, err
}

func requireOwnerOrAdmin(r *http.Request, owner string) error {
	if utils.GetUserIDFromRequest(r) == owner || utils.GetRoleFromRequest(r) == globals.RoleAdmin {
		return nil
	}
	return apperr.New(http.StatusForbidden, "you can only modify your own entries")
}
