package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const userContextKey contextKey = "user"

const jwtClaimUserID = "user_id"

// Authenticate verifies the bearer token and stores its claims in the
// request context. Tokens are HS256, signed with the shared secret.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the authenticated owner id from the
// claims placed there by Authenticate.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("user claims not found in context or invalid type")
	}

	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing %q claim in token", jwtClaimUserID)
	}

	// JSON numbers decode as float64.
	userIDFloat, ok := userIDClaim.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid type for %q claim: expected number, got %T", jwtClaimUserID, userIDClaim)
	}
	if userIDFloat != float64(int64(userIDFloat)) {
		return 0, fmt.Errorf("%q claim is not an integer: %f", jwtClaimUserID, userIDFloat)
	}

	userID := int64(userIDFloat)
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user ID value in %q claim: %d", jwtClaimUserID, userID)
	}
	return userID, nil
}
