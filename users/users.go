package users

import (
	"encoding/json"
	"net/http"
	"time"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/globals"
	"vitrine/models"
	"vitrine/query"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

func validRole(role string) bool {
	switch role {
	case globals.RoleAdmin, globals.RoleCS, globals.RoleNormal:
		return true
	}
	return false
}

// GetUsers handles GET /api/users with the full filter/sort/paginate surface.
func GetUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := query.Parse(r.URL.Query(), []string{"password"})
	page, err := query.Run[models.User](r.Context(), db.UserCollection, q)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	public := make([]models.PublicUser, 0, len(page.Items))
	for i := range page.Items {
		public = append(public, page.Items[i].Public())
	}
	utils.SendData(w, http.StatusOK, public, utils.M{
		"total":        page.Total,
		"current_page": page.CurrentPage,
		"last_page":    page.LastPage,
	})
}

func CreateUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}

	verr := apperr.NewValidation()
	if input.Username == "" {
		verr.Add("username", "username is required")
	}
	if input.Email == "" {
		verr.Add("email", "email is required")
	}
	if len(input.Password) < 8 {
		verr.Add("password", "password must have at least 8 characters")
	}
	if input.Role == "" {
		input.Role = globals.RoleNormal
	} else if !validRole(input.Role) {
		verr.Add("role", "role must be one of ADMIN, CS, NORMAL")
	}
	if !verr.Empty() {
		utils.SendError(w, verr)
		return
	}

	count, err := db.UserCollection.CountDocuments(r.Context(), bson.M{
		"$or": []bson.M{{"username": input.Username}, {"email": input.Email}},
	})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if count > 0 {
		utils.SendError(w, apperr.New(http.StatusConflict, "username or email already taken"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	now := time.Now()
	user := models.User{
		UserID:    "u" + utils.GenerateRandomString(10),
		Username:  input.Username,
		Email:     input.Email,
		Name:      input.Name,
		Password:  string(hashed),
		Role:      input.Role,
		Purchases: []string{},
		Wishlist:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := db.UserCollection.InsertOne(r.Context(), user); err != nil {
		utils.SendError(w, err)
		return
	}

	utils.SendData(w, http.StatusCreated, user.Public(), nil)
}

func GetUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var user models.User
	err := db.UserCollection.FindOne(r.Context(), bson.M{"userid": ps.ByName("id")}).Decode(&user)
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

func EditUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		Email    *string `json:"email"`
		Name     *string `json:"name"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if input.Email != nil {
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
	if input.Role != nil {
		if !validRole(*input.Role) {
			utils.SendError(w, apperr.NewValidation().Add("role", "role must be one of ADMIN, CS, NORMAL"))
			return
		}
		set["role"] = *input.Role
	}

	var updated models.User
	err := db.UserCollection.FindOneAndUpdate(
		r.Context(),
		bson.M{"userid": ps.ByName("id")},
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

func DeleteUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := db.UserCollection.DeleteOne(r.Context(), bson.M{"userid": ps.ByName("id")})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if res.DeletedCount == 0 {
		utils.SendError(w, apperr.New(http.StatusNotFound, "user not found"))
		return
	}
	utils.SendData(w, http.StatusOK, utils.M{"deleted": ps.ByName("id")}, nil)
}
