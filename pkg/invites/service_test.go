package invites

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lunarjar/wishtree/pkg/perm"
	"github.com/lunarjar/wishtree/pkg/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()

	for _, u := range []*store.User{
		{ID: "admin", Email: "admin@example.com", IsAdmin: true},
		{ID: "user", Email: "user@example.com"},
	} {
		if err := s.PutUser(ctx, u); err != nil {
			t.Fatalf("PutUser failed: %v", err)
		}
	}

	return NewService(s, perm.NewEngine(s), nil, nil), s
}

func TestMint(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	code, err := svc.Mint(ctx, "admin", 5)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if len(code.Code) != codeLength {
		t.Errorf("len(Code) = %d, want %d", len(code.Code), codeLength)
	}
	if code.Code != strings.ToUpper(code.Code) {
		t.Errorf("Code = %s, want uppercase", code.Code)
	}
	for _, c := range code.Code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("Code contains %q, outside the alphabet", c)
		}
	}
	if code.MaxUses != 5 || code.CreatedBy != "admin" {
		t.Errorf("Unexpected code: %+v", code)
	}

	if _, err := svc.Mint(ctx, "user", 1); err != ErrForbidden {
		t.Errorf("Non-admin mint error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Mint(ctx, "", 1); err != ErrForbidden {
		t.Errorf("Anonymous mint error = %v, want ErrForbidden", err)
	}
}

func TestValidateAndConsume(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	code, err := svc.Mint(ctx, "admin", 1)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	// Entry is forgiving: lowercase and whitespace are accepted.
	entered := "  " + strings.ToLower(code.Code) + " "
	if err := svc.Validate(ctx, entered); err != nil {
		t.Errorf("Validate(%q) = %v, want nil", entered, err)
	}
	if err := svc.Consume(ctx, entered, "user"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	// Validate does not consume; Consume does.
	if err := svc.Validate(ctx, code.Code); err != ErrExhausted {
		t.Errorf("Validate after exhaustion = %v, want ErrExhausted", err)
	}
	if err := svc.Consume(ctx, code.Code, "user2"); err != ErrExhausted {
		t.Errorf("Consume after exhaustion = %v, want ErrExhausted", err)
	}

	if err := svc.Validate(ctx, "NOPE1234"); err != ErrInvalidCode {
		t.Errorf("Validate unknown = %v, want ErrInvalidCode", err)
	}
	if err := svc.Consume(ctx, "NOPE1234", "user"); err != ErrInvalidCode {
		t.Errorf("Consume unknown = %v, want ErrInvalidCode", err)
	}
	if err := svc.Validate(ctx, "   "); err != ErrInvalidCode {
		t.Errorf("Validate blank = %v, want ErrInvalidCode", err)
	}
}

func TestConsume_Unlimited(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	code, err := svc.Mint(ctx, "admin", 0)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := svc.Consume(ctx, code.Code, "user"); err != nil {
			t.Fatalf("Consume %d failed: %v", i, err)
		}
	}
}

func TestSweep(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	// An exhausted code past the grace period, seeded directly.
	old := &store.InviteCode{
		Code:      "OLDCODE2",
		MaxUses:   1,
		UsedCount: 1,
		CreatedBy: "admin",
		CreatedAt: time.Now().Add(-60 * 24 * time.Hour),
	}
	if err := s.CreateInviteCode(ctx, old); err != nil {
		t.Fatalf("CreateInviteCode failed: %v", err)
	}

	// A fresh exhausted code inside the grace period.
	fresh, err := svc.Mint(ctx, "admin", 1)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if err := svc.Consume(ctx, fresh.Code, "user"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	removed, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, err := s.GetInviteCode(ctx, "OLDCODE2"); err != store.ErrNotFound {
		t.Error("Old exhausted code should be swept")
	}
	if _, err := s.GetInviteCode(ctx, fresh.Code); err != nil {
		t.Error("Recent exhausted code should survive the grace period")
	}
}
