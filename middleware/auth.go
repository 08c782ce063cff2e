package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"gamedoc/pkg/logger"
	"gamedoc/pkg/response"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	EmailKey  contextKey = "email"
)

// UserSyncer records the authenticated user locally.
type UserSyncer interface {
	Sync(ctx context.Context, id, email string) error
}

type Authenticator struct {
	secret []byte
	users  UserSyncer
}

// NewAuthenticator validates Supabase HMAC tokens signed with secret. users
// may be nil.
func NewAuthenticator(secret string, users UserSyncer) *Authenticator {
	return &Authenticator{secret: []byte(secret), users: users}
}

func (a *Authenticator) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// For WebSockets, tokens are passed in the query string
		// because the browser's WebSocket API doesn't support custom headers.
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			tokenString = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}

		if tokenString == "" {
			response.Fail(w, http.StatusUnauthorized, "Unauthorized: No token provided")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			logger.Sugar.Debugf("Invalid token: %v", err)
			response.Fail(w, http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.Fail(w, http.StatusUnauthorized, "Unauthorized: Could not parse token claims")
			return
		}
		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			response.Fail(w, http.StatusUnauthorized, "Unauthorized: User ID (sub) claim is missing or invalid")
			return
		}
		email, _ := claims["email"].(string)

		if a.users != nil && email != "" {
			if err := a.users.Sync(r.Context(), userID, email); err != nil {
				logger.Sugar.Errorf("Failed to sync user %s: %v", userID, err)
				response.Error(w, err)
				return
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = context.WithValue(ctx, EmailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user id, or "" outside AuthMiddleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

func Email(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}
