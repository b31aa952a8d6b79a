// Package auth resolves the tenant of a request from a bearer token. Tokens are
// issued elsewhere; this package only verifies them.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey struct{}

// WithUserID stores the tenant id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the tenant id set by Middleware, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)

	return id
}

// Middleware verifies an HS256 bearer token signed with secret and takes the
// tenant from its userId claim, falling back to sub. With an empty secret every
// request runs as devUser, which is meant for local runs only.
func Middleware(secret []byte, devUser string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secret) == 0 {
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), devUser)))
				return
			}

			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			userID, err := parse(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), secret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func parse(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}

	if id, _ := claims["userId"].(string); id != "" {
		return id, nil
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token carries no user id")
	}

	return sub, nil
}
