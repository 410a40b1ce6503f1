package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"net/smtp"
	"time"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/globals"
	"vitrine/rdx"
	"vitrine/utils"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = 15 * time.Minute

func forgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "email is required"))
		return
	}

	var user struct {
		UserID string `bson:"userid"`
		Email  string `bson:"email"`
	}
	err := db.UserCollection.FindOne(r.Context(), bson.M{"email": input.Email}).Decode(&user)
	if err != nil {
		// Same answer whether or not the address exists.
		utils.SendData(w, http.StatusOK, utils.M{"message": "if the address is registered, a reset link was sent"}, nil)
		return
	}

	token, err := generateResetToken()
	if err != nil {
		utils.SendError(w, err)
		return
	}

	if err := rdx.RdxSetTTL("pwreset:"+hashToken(token), user.UserID, resetTokenTTL); err != nil {
		utils.SendError(w, err)
		return
	}

	if err := sendResetEmail(user.Email, token); err != nil {
		log.Printf("send reset email to %s: %v", user.Email, err)
		utils.SendError(w, apperr.New(http.StatusInternalServerError, "could not send reset email"))
		return
	}

	utils.SendData(w, http.StatusOK, utils.M{"message": "if the address is registered, a reset link was sent"}, nil)
}

func resetPasswordHandler(w http.ResponseWriter, r *http.Request, token string) {
	var input struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	if len(input.Password) < 8 {
		utils.SendError(w, apperr.NewValidation().Add("password", "password must have at least 8 characters"))
		return
	}

	key := "pwreset:" + hashToken(token)
	userID, err := rdx.RdxGet(key)
	if err != nil || userID == "" {
		utils.SendError(w, apperr.New(http.StatusUnauthorized, "reset token is invalid or expired"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	res, err := db.UserCollection.UpdateOne(
		r.Context(),
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"password": string(hashed), "updatedAt": time.Now()}},
	)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if res.MatchedCount == 0 {
		utils.SendError(w, apperr.New(http.StatusNotFound, "user no longer exists"))
		return
	}

	rdx.RdxDel(key)
	// Any cached session for this user is stale now.
	if err := rdx.RdxHdel("tokki", userID); err != nil {
		log.Printf("drop cached token for %s: %v", userID, err)
	}

	utils.SendData(w, http.StatusOK, utils.M{"message": "password updated, please log in again"}, nil)
}

func sendResetEmail(toEmail, token string) error {
	from := globals.EnvOr("SMTP_FROM", "noreply@example.com")
	pass := globals.EnvOr("SMTP_PASSWORD", "")
	smtpHost := globals.EnvOr("SMTP_HOST", "smtp.gmail.com")
	smtpPort := globals.EnvOr("SMTP_PORT", "587")
	baseURL := globals.EnvOr("APP_BASE_URL", "http://localhost:4000")

	msg := []byte("Subject: Password reset\n\n" +
		"Use the link below within 15 minutes to choose a new password:\n\n" +
		baseURL + "/api/auth/reset-password/" + token + "\n")

	auth := smtp.PlainAuth("", from, pass, smtpHost)
	return smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{toEmail}, msg)
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
