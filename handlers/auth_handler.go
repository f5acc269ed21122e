package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/arjun7095/Chat-Application/database"
	"github.com/arjun7095/Chat-Application/models"
	"github.com/arjun7095/Chat-Application/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt" // 用於密碼哈希
)

// AuthResponse 是註冊與登入成功時的回應
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// AuthHandler 處理註冊與登入
type AuthHandler struct {
	users    database.UserStore
	secret   string
	tokenTTL time.Duration
	timeout  time.Duration
}

func NewAuthHandler(users database.UserStore, secret string, tokenTTL, timeout time.Duration) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, tokenTTL: tokenTTL, timeout: timeout}
}

// RegisterUser 處理使用者註冊請求
func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// 哈希密碼
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Str("module", "handlers").Msg("error hashing password")
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := models.User{Username: req.Username, Password: string(hashedPassword)}
	if err := h.users.InsertUser(ctx, &user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			sendJSONError(w, "Username already taken", http.StatusConflict)
			return
		}
		log.Error().Err(err).Str("module", "handlers").Msg("error inserting user")
		sendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	log.Info().Str("module", "handlers").Str("user", user.Username).Msg("user registered")
	h.respondWithToken(w, http.StatusCreated, user)
}

// LoginUser 處理使用者登入請求
func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, err := h.users.FindUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			sendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Str("module", "handlers").Msg("error finding user")
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// 比較哈希後的密碼
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		sendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	log.Info().Str("module", "handlers").Str("user", user.Username).Msg("user logged in")
	h.respondWithToken(w, http.StatusOK, *user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user models.User) {
	token, err := utils.GenerateJWT(user.ID, user.Username, h.secret, h.tokenTTL)
	if err != nil {
		log.Error().Err(err).Str("module", "handlers").Msg("error signing token")
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, Username: user.Username, UserID: user.ID.Hex()})
}
