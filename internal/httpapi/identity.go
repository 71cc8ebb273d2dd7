package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

const userIDKey contextKey = "userID"

// IdentityHeader carries the authenticated caller's ID, set by the upstream
// auth proxy after session validation.
const IdentityHeader = "X-User-ID"

// RequireIdentity rejects requests without a caller identity and stores the
// ID in the request context for handlers.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(IdentityHeader)
		if userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "authentication required"})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerID returns the authenticated user ID from the request context, or ""
// when the request did not pass through RequireIdentity.
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
