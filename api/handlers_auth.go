package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"geopin/model"
	"geopin/storage"
)

// sessionTTL bounds how long a login stays valid without re-authenticating.
const sessionTTL = 7 * 24 * time.Hour

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password required")
		return
	}
	if len(req.Password) < 6 {
		respondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Log.Error("hashing password failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := &model.User{Email: req.Email, PasswordHash: string(hash)}
	if err := h.Store.CreateUser(user); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			respondError(w, http.StatusConflict, "Email already exists")
			return
		}
		h.Log.Error("creating user failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.Log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "User registered successfully",
		"user_id": user.ID,
		"email":   user.Email,
	})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	user, err := h.Store.GetUserByEmail(req.Email)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.Log.Warn("invalid login credentials", zap.String("email", req.Email))
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	tokenID := uuid.NewString()
	expiresAt := time.Now().Add(sessionTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":   tokenID,
		"sub":   user.ID,
		"email": user.Email,
		"exp":   expiresAt.Unix(),
		"iat":   time.Now().Unix(),
	})
	tokenString, err := token.SignedString([]byte(h.SecretKey))
	if err != nil {
		h.Log.Error("signing JWT failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	if err := h.Store.CreateSession(sessionFor(tokenID, user.ID, expiresAt)); err != nil {
		h.Log.Error("creating session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.Log.Info("login successful", zap.Uint("user_id", user.ID))
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   tokenString,
		"user":    userResponse{ID: user.ID, Email: user.Email},
	})
}

func (h *Handlers) handleVerify(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)
	respondJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user":  userResponse{ID: user.ID, Email: user.Email},
	})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)
	if err := h.Store.DeleteSession(user.TokenID); err != nil {
		h.Log.Error("deleting session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}
