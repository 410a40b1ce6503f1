package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/globals"
	"vitrine/middleware"
	"vitrine/models"
	"vitrine/mq"
	"vitrine/rdx"
	"vitrine/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 12 * time.Hour

func registerHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
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
	if !verr.Empty() {
		utils.SendError(w, verr)
		return
	}

	var existing models.User
	err := db.UserCollection.FindOne(r.Context(), bson.M{
		"$or": []bson.M{{"username": input.Username}, {"email": input.Email}},
	}).Decode(&existing)
	if err == nil {
		utils.SendError(w, apperr.New(http.StatusConflict, "username or email already taken"))
		return
	} else if err != mongo.ErrNoDocuments {
		utils.SendError(w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("hash password for %s: %v", input.Username, err)
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
		Role:      globals.RoleNormal,
		Purchases: []string{},
		Wishlist:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := db.UserCollection.InsertOne(r.Context(), user); err != nil {
		utils.SendError(w, err)
		return
	}

	if err := rdx.RdxSet("users:"+user.UserID, user.Username); err != nil {
		log.Printf("cache username: %v", err)
	}
	mq.Emit(r.Context(), "user-registered", models.CatalogEvent{
		EntityType: "user", EntityID: user.UserID, Method: "POST", UserID: user.UserID,
	})

	utils.SendData(w, http.StatusCreated, user.Public(), nil)
}

func loginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	if input.Username == "" || input.Password == "" {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "username and password are required"))
		return
	}

	var stored models.User
	err := db.UserCollection.FindOne(r.Context(), bson.M{"username": input.Username}).Decode(&stored)
	if err != nil {
		utils.SendError(w, apperr.New(http.StatusUnauthorized, "invalid username or password"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(input.Password)); err != nil {
		utils.SendError(w, apperr.New(http.StatusUnauthorized, "invalid username or password"))
		return
	}

	tokenString, err := generateToken(stored)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	if err := rdx.RdxHset("tokki", stored.UserID, tokenString); err != nil {
		log.Printf("cache token: %v", err)
	}

	_, err = db.UserCollection.UpdateOne(
		r.Context(),
		bson.M{"userid": stored.UserID},
		bson.M{"$set": bson.M{"last_login": time.Now()}},
	)
	if err != nil {
		log.Printf("update last_login: %v", err)
	}

	utils.SendData(w, http.StatusOK, utils.M{
		"token":  tokenString,
		"userid": stored.UserID,
		"role":   stored.Role,
	}, nil)
}

func logoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, _, err := claimsFromRequest(r)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	if err := rdx.RdxHdel("tokki", claims.UserID); err != nil {
		log.Printf("remove token from redis: %v", err)
		utils.SendError(w, err)
		return
	}

	mq.Emit(r.Context(), "user-loggedout", models.CatalogEvent{
		EntityType: "user", EntityID: claims.UserID, Method: "POST", UserID: claims.UserID,
	})

	utils.SendData(w, http.StatusOK, utils.M{"message": "logged out"}, nil)
}

func refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	claims, presented, err := claimsFromRequest(r)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	// Only the cached session token is refreshable; a logged-out or
	// superseded token is not.
	cached, err := rdx.RdxHget("tokki", claims.UserID)
	if err != nil || cached != presented {
		utils.SendError(w, apperr.New(http.StatusUnauthorized, "session is no longer active"))
		return
	}

	if time.Until(claims.ExpiresAt.Time) >= 30*time.Minute {
		utils.SendError(w, apperr.New(http.StatusForbidden, "token refresh not allowed yet"))
		return
	}

	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(tokenTTL))
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	newTokenString, err := newToken.SignedString(globals.JwtSecret)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	if err := rdx.RdxHset("tokki", claims.UserID, newTokenString); err != nil {
		log.Printf("update token in redis: %v", err)
	}

	utils.SendData(w, http.StatusOK, utils.M{"token": newTokenString}, nil)
}

func generateToken(user models.User) (string, error) {
	claims := &middleware.Claims{
		Username: user.Username,
		UserID:   user.UserID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(globals.JwtSecret)
}

func claimsFromRequest(r *http.Request) (*middleware.Claims, string, error) {
	tokenString := r.Header.Get("Authorization")
	if len(tokenString) < 7 || tokenString[:7] != "Bearer " {
		return nil, "", apperr.New(http.StatusUnauthorized, "missing or malformed token")
	}
	tokenString = tokenString[7:]

	claims := &middleware.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return globals.JwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, "", apperr.New(http.StatusUnauthorized, "invalid token")
	}
	return claims, tokenString, nil
}
