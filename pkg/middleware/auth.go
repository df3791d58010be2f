package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lunarjar/wishtree/pkg/auth"
	"github.com/lunarjar/wishtree/pkg/httputil"
	"github.com/lunarjar/wishtree/pkg/observability"
	"github.com/lunarjar/wishtree/pkg/store"
)

// UserDirectory is the slice of the record store the auth middleware needs to
// mirror verified callers into user records
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
	PutUser(ctx context.Context, user *store.User) error
}

// AuthMiddleware verifies bearer tokens and attaches the caller to the
// request context
type AuthMiddleware struct {
	verifier auth.TokenVerifier
	users    UserDirectory
	optional bool
}

// NewAuthMiddleware creates an authentication middleware. With optional set,
// requests without an Authorization header pass through as guests; malformed
// or invalid tokens are still rejected.
func NewAuthMiddleware(verifier auth.TokenVerifier, users UserDirectory, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		users:    users,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		caller, err := m.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		m.syncUser(r.Context(), caller)

		ctx := auth.WithCaller(r.Context(), caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// syncUser mirrors the verified caller into the user table so the permission
// engine can read their email and flags. Existing records keep their admin
// flag and role; only a changed email is refreshed. Failures are logged and
// ignored: a sync problem must not block the request.
func (m *AuthMiddleware) syncUser(ctx context.Context, caller *auth.Caller) {
	if m.users == nil || caller.Anonymous() {
		return
	}

	user, err := m.users.GetUser(ctx, caller.ID)
	switch {
	case err == store.ErrNotFound:
		err = m.users.PutUser(ctx, &store.User{
			ID:        caller.ID,
			Email:     caller.Email,
			Role:      "authenticated",
			CreatedAt: time.Now(),
		})
	case err == nil && user.Email != caller.Email && caller.Email != "":
		user.Email = caller.Email
		err = m.users.PutUser(ctx, user)
	}
	if err != nil && err != store.ErrNotFound {
		observability.FromContext(ctx).WithError(err).WithField("user_id", caller.ID).
			Warn("Failed to sync user record")
	}
}
