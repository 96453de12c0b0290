package middleware

import (
	"context"
	"net/http"
	"strings"

	"app/internal/logger"
	"app/internal/util"
)

// contextKey is unexported to avoid context collisions.
type contextKey string

// UserContextKey carries the authenticated user id (the token's subject).
const UserContextKey = contextKey("user")

// AuthMiddleware verifies the Bearer token and injects the user id into the
// request context. Every entitlement, feature, report and admin route sits
// behind it; identity is the token's subject claim, roles come from the
// entitlement record, never from token claims.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	log := logger.New()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header missing", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := util.ValidateJWT(parts[1], jwtSecret)
			if err != nil {
				log.Warn().Err(err).Msg("Rejected token")
				http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
