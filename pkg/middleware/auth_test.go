package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lunarjar/wishtree/pkg/auth"
	"github.com/lunarjar/wishtree/pkg/store"
)

// stubVerifier accepts exactly one token
type stubVerifier struct {
	token  string
	caller *auth.Caller
}

func (v *stubVerifier) Verify(_ context.Context, rawToken string) (*auth.Caller, error) {
	if rawToken == v.token {
		return v.caller, nil
	}
	return nil, errors.New("bad token")
}

func echoCallerHandler(t *testing.T, wantID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := auth.CallerID(r.Context()); got != wantID {
			t.Errorf("CallerID = %q, want %q", got, wantID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	s := store.NewMemoryStore()
	verifier := &stubVerifier{token: "good", caller: &auth.Caller{ID: "u-1", Email: "u1@example.com"}}
	m := NewAuthMiddleware(verifier, s, false)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	m.Handler(echoCallerHandler(t, "u-1")).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	// The verified caller must be mirrored into the user table.
	user, err := s.GetUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("User record not created: %v", err)
	}
	if user.Email != "u1@example.com" {
		t.Errorf("Email = %s, want u1@example.com", user.Email)
	}
}

func TestAuthMiddleware_SyncPreservesAdminFlag(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	if err := s.PutUser(ctx, &store.User{ID: "u-1", Email: "old@example.com", IsAdmin: true}); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	verifier := &stubVerifier{token: "good", caller: &auth.Caller{ID: "u-1", Email: "new@example.com"}}
	m := NewAuthMiddleware(verifier, s, false)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer good")
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(httptest.NewRecorder(), r)

	user, err := s.GetUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Errorf("Email = %s, want new@example.com", user.Email)
	}
	if !user.IsAdmin {
		t.Error("Email refresh must not clear the admin flag")
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	m := NewAuthMiddleware(&stubVerifier{token: "good"}, store.NewMemoryStore(), true)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer evil")
	w := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run with an invalid token")
	})).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	m := NewAuthMiddleware(&stubVerifier{token: "good"}, store.NewMemoryStore(), true)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run with a malformed header")
	})).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_OptionalAllowsGuests(t *testing.T) {
	m := NewAuthMiddleware(&stubVerifier{token: "good"}, store.NewMemoryStore(), true)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	m.Handler(echoCallerHandler(t, "")).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200 for guest", w.Code)
	}
}

func TestAuthMiddleware_RequiredRejectsGuests(t *testing.T) {
	m := NewAuthMiddleware(&stubVerifier{token: "good"}, store.NewMemoryStore(), false)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run without auth")
	})).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
}
