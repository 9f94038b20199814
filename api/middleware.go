package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"geopin/model"
)

type contextKey string

const userContextKey contextKey = "auth-user"

// AuthUser is the identity attached to authenticated requests.
type AuthUser struct {
	ID      uint
	Email   string
	TokenID string
}

func userFrom(r *http.Request) (AuthUser, bool) {
	u, ok := r.Context().Value(userContextKey).(AuthUser)
	return u, ok
}

func (h *Handlers) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.Log.Error("panic recovered",
					zap.Any("error", err),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				respondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		h.Log.Info("handled HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status_code", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// requireAuth validates the bearer token's signature and checks that its
// session row still exists, so logout revokes tokens before expiry.
func (h *Handlers) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			respondError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.SecretKey), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		tokenID, _ := claims["jti"].(string)
		email, _ := claims["email"].(string)

		session, err := h.Store.GetSession(tokenID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user := AuthUser{ID: session.UserID, Email: email, TokenID: tokenID}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// bearerToken pulls the token from the Authorization header, or from the
// token query parameter for clients that cannot set headers (media src URLs).
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// sessionFor creates the revocable session row matching a freshly issued
// token.
func sessionFor(tokenID string, userID uint, expiresAt time.Time) *model.Session {
	return &model.Session{
		TokenID:   tokenID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
