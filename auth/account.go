package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/models"
	"vitrine/rdx"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// Me handles GET /api/auth/me.
func Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	var user models.User
	err := db.UserCollection.FindOne(r.Context(), bson.M{"userid": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		utils.SendError(w, apperr.New(http.StatusNotFound, "user not found"))
		return
	}
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendData(w, http.StatusOK, user.Public(), nil)
}

// EditMe handles PUT /api/auth/me. Role changes are not accepted here.
func EditMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	var input struct {
		Email    *string `json:"email"`
		Name     *string `json:"name"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if input.Email != nil {
		if *input.Email == "" {
			utils.SendError(w, apperr.NewValidation().Add("email", "email cannot be empty"))
			return
		}
		set["email"] = *input.Email
	}
	if input.Name != nil {
		set["name"] = *input.Name
	}
	if input.Password != nil {
		if len(*input.Password) < 8 {
			utils.SendError(w, apperr.NewValidation().Add("password", "password must have at least 8 characters"))
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.SendError(w, err)
			return
		}
		set["password"] = string(hashed)
	}

	var updated models.User
	err := db.UserCollection.FindOneAndUpdate(
		r.Context(),
		bson.M{"userid": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		utils.SendError(w, apperr.New(http.StatusNotFound, "user not found"))
		return
	}
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendData(w, http.StatusOK, updated.Public(), nil)
}

// DeleteMe handles DELETE /api/auth/me. The account's session is dropped too.
func DeleteMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	res, err := db.UserCollection.DeleteOne(r.Context(), bson.M{"userid": userID})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if res.DeletedCount == 0 {
		utils.SendError(w, apperr.New(http.StatusNotFound, "user not found"))
		return
	}

	if err := rdx.RdxHdel("tokki", userID); err != nil {
		log.Printf("drop cached token for %s: %v", userID, err)
	}
	rdx.RdxDel("users:" + userID)

	utils.SendData(w, http.StatusOK, utils.M{"deleted": userID}, nil)
}
