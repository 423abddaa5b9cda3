package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"jansarthi/models"
	"jansarthi/repository"
)

// Context keys set by the auth middleware.
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// AuthMiddleware validates bearer JWTs minted by the identity service and
// loads the acting user. It does not issue tokens.
type AuthMiddleware struct {
	userRepo  *repository.UserRepository
	jwtSecret []byte
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(userRepo *repository.UserRepository, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
	}
}

// RequireAuth validates the token, verifies the user is active and puts
// user id and role in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		ctx := context.WithValue(r.Context(), ContextUserID, user.ID)
		ctx = context.WithValue(ctx, ContextUserRole, user.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin is RequireAuth plus an admin role check.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		if user.Role != models.RoleAdmin {
			respondUnauthorized(w, http.StatusForbidden, "Admin access required.")
			return
		}
		ctx := context.WithValue(r.Context(), ContextUserID, user.ID)
		ctx = context.WithValue(ctx, ContextUserRole, user.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		respondUnauthorized(w, http.StatusUnauthorized, "Authorization header required.")
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		respondUnauthorized(w, http.StatusUnauthorized, "Invalid authorization format. Expected: Bearer <token>")
		return nil, false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		respondUnauthorized(w, http.StatusUnauthorized, "Invalid or expired token.")
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		respondUnauthorized(w, http.StatusUnauthorized, "Invalid token claims.")
		return nil, false
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		respondUnauthorized(w, http.StatusUnauthorized, "Invalid token: user_id not found.")
		return nil, false
	}

	user, err := m.userRepo.GetUserByID(int64(userIDFloat))
	if err != nil || user == nil {
		respondUnauthorized(w, http.StatusUnauthorized, "User not found.")
		return nil, false
	}
	if !user.IsActive {
		respondUnauthorized(w, http.StatusUnauthorized, "Account is deactivated.")
		return nil, false
	}
	return user, true
}

func respondUnauthorized(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
