package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// Middleware returns HTTP middleware that resolves Bearer access tokens into
// an actor on the request context. Requests without a valid token pass
// through without an actor; endpoints that need one reject the request
// themselves. The user row is re-read on every request so role changes and
// deactivation take effect before the access token expires.
func Middleware(users *UserStore, issuer *TokenIssuer, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := issuer.ParseAccessToken(token)
			if err != nil {
				logger.Debug("access token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(claims.Subject)
			if err != nil {
				logger.Error("failed to load user for access token", "error", err, "userID", claims.Subject)
				next.ServeHTTP(w, r)
				return
			}
			if user == nil {
				logger.Debug("access token subject no longer exists", "userID", claims.Subject)
				next.ServeHTTP(w, r)
				return
			}

			ctx := lifecycle.WithActor(r.Context(), user.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that admits only authenticated actors
// holding one of the given roles. Inactive actors are rejected regardless of
// role.
func RequireRole(roles ...lifecycle.Role) func(http.Handler) http.Handler {
	allowed := make(map[lifecycle.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := lifecycle.ActorFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if !actor.Active {
				writeAuthError(w, http.StatusForbidden, "forbidden", "account is deactivated")
				return
			}
			if !allowed[actor.Role] {
				writeAuthError(w, http.StatusForbidden, "forbidden",
					fmt.Sprintf("role %s does not grant access to this resource", actor.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
