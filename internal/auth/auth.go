package auth

import (
	"context"
	"net/http"

	"github.com/BearBump/CareTrack/internal/models"
)

// Identity is the caller as asserted by the edge proxy. Authentication
// itself happens upstream; this service trusts the forwarded headers.
type Identity struct {
	UserID string
	Role   string
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-User-Role"
)

// Middleware extracts the forwarded identity and rejects requests without
// one. Mount after the edge proxy has already authenticated the caller.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			http.Error(w, "missing identity", http.StatusUnauthorized)
			return
		}
		role := r.Header.Get(HeaderRole)
		if role == "" {
			role = models.RoleCaretaker
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{UserID: userID, Role: role})))
	})
}
