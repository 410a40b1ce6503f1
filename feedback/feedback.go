package feedback

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

// GetFeedback handles GET /api/products/:id/feedback.
func GetFeedback(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID, err := resolveProduct(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	q := query.Parse(r.URL.Query(), nil)
	q.Filter["product"] = productID
	page, err := query.Run[models.Feedback](r.Context(), db.FeedbackCollection, q)
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

// InsertFeedback handles POST /api/products/:id/feedback. One entry per user
// per product; rating 1-10, review optional but at least 15 characters.
func InsertFeedback(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID, err := resolveProduct(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	var input struct {
		Rating int    `json:"rating"`
		Review string `json:"review"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}

	verr := apperr.NewValidation()
	if input.Rating < 1 || input.Rating > 10 {
		verr.Add("rating", "rating must be between 1 and 10")
	}
	if input.Review != "" && len(input.Review) < 15 {
		verr.Add("review", "review must have at least 15 characters")
	}
	if !verr.Empty() {
		utils.SendError(w, verr)
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	count, err := db.FeedbackCollection.CountDocuments(r.Context(), bson.M{
		"product": productID, "user": userID,
	})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if count > 0 {
		utils.SendError(w, apperr.New(http.StatusConflict, "you already left feedback on this product").WithHint(apperr.Hint{
			Functionality: "edit your feedback",
			Method:        http.MethodPut,
			URL:           "/api/products/" + productID + "/feedback/:fid",
		}))
		return
	}

	now := time.Now()
	fb := models.Feedback{
		FeedbackID: "f" + utils.GenerateRandomString(10),
		Product:    productID,
		User:       userID,
		Rating:     input.Rating,
		Review:     input.Review,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.FeedbackCollection.InsertOne(r.Context(), fb); err != nil {
		utils.SendError(w, err)
		return
	}
	if _, err := db.ProductsCollection.UpdateOne(r.Context(),
		bson.M{"productid": productID},
		bson.M{"$addToSet": bson.M{"feedback": fb.FeedbackID}},
	); err != nil {
		log.Printf("link feedback %s to product: %v", fb.FeedbackID, err)
	}

	mq.Emit(r.Context(), "feedback-created", models.CatalogEvent{
		EntityType: "feedback", EntityID: fb.FeedbackID, Method: "POST", UserID: userID,
	})

	utils.SendData(w, http.StatusCreated, fb, nil)
}

func ShowFeedback(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fb, err := findFeedback(r, ps.ByName("id"), ps.ByName("fid"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendData(w, http.StatusOK, fb, nil)
}

func EditFeedback(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fb, err := findFeedback(r, ps.ByName("id"), ps.ByName("fid"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if err := requireOwnerOrAdmin(r, fb.User); err != nil {
		utils.SendError(w, err)
		return
	}

	var input struct {
		Rating *int    `json:"rating"`
		Review *string `json:"review"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	verr := apperr.NewValidation()
	if input.Rating != nil {
		if *input.Rating < 1 || *input.Rating > 10 {
			verr.Add("rating", "rating must be between 1 and 10")
		} else {
			set["rating"] = *input.Rating
		}
	}
	if input.Review != nil {
		if *input.Review != "" && len(*input.Review) < 15 {
			verr.Add("review", "review must have at least 15 characters")
		} else {
			set["review"] = *input.Review
		}
	}
	if !verr.Empty() {
		utils.SendError(w, verr)
		return
	}

	if _, err := db.FeedbackCollection.UpdateOne(r.Context(),
		bson.M{"feedbackid": fb.FeedbackID},
		bson.M{"$set": set},
	); err != nil {
		utils.SendError(w, err)
		return
	}

	updated, err := findFeedback(r, fb.Product, fb.FeedbackID)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendData(w, http.StatusOK, updated, nil)
}

func DeleteFeedback(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fb, err := findFeedback(r, ps.ByName("id"), ps.ByName("fid"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if err := requireOwnerOrAdmin(r, fb.User); err != nil {
		utils.SendError(w, err)
		return
	}

	if _, err := db.FeedbackCollection.DeleteOne(r.Context(), bson.M{"feedbackid": fb.FeedbackID}); err != nil {
		utils.SendError(w, err)
		return
	}
	if _, err := db.ProductsCollection.UpdateOne(r.Context(),
		bson.M{"productid": fb.Product},
		bson.M{"$pull": bson.M{"feedback": fb.FeedbackID}},
	); err != nil {
		log.Printf("unlink feedback %s from product: %v", fb.FeedbackID, err)
	}

	utils.SendData(w, http.StatusOK, utils.M{"deleted": fb.FeedbackID}, nil)
}

func findFeedback(r *http.Request, productKey, feedbackID string) (models.Feedback, error) {
	productID, err := resolveProduct(r, productKey)
	if err != nil {
		return models.Feedback{}, err
	}
	var fb models.Feedback
	err = db.FeedbackCollection.FindOne(r.Context(), bson.M{
		"feedbackid": feedbackID, "product": productID,
	}).Decode(&fb)
	if err == mongo.ErrNoDocuments {
		return fb, apperr.New(http.StatusNotFound, "feedback not found")
	}
	return fb, err
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
