package invites

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lunarjar/wishtree/pkg/audit"
	"github.com/lunarjar/wishtree/pkg/observability"
	"github.com/lunarjar/wishtree/pkg/perm"
	"github.com/lunarjar/wishtree/pkg/store"
)

var (
	// ErrForbidden means the caller may not mint codes
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCode means the code does not exist
	ErrInvalidCode = errors.New("invalid invite code")
	// ErrExhausted means the code has no uses left
	ErrExhausted = errors.New("invite code exhausted")
)

const (
	// codeLength is the length of generated codes
	codeLength = 8
	// codeAlphabet excludes ambiguous characters (0/O, 1/I/L)
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	// sweepGracePeriod keeps exhausted codes around long enough for support
	// to answer "why does my code say used up"
	sweepGracePeriod = 30 * 24 * time.Hour
)

// Service manages signup invite codes
type Service struct {
	store  store.RecordStore
	engine *perm.Engine
	audit  audit.Logger
	logger *observability.Logger
}

// NewService creates an invite code service
func NewService(recordStore store.RecordStore, engine *perm.Engine, auditLogger audit.Logger, logger *observability.Logger) *Service {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Service{
		store:  recordStore,
		engine: engine,
		audit:  auditLogger,
		logger: logger,
	}
}

// normalize canonicalizes user-entered codes: trimmed and uppercased, so
// entry is forgiving while storage stays canonical
func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// generateCode returns a fresh random code from the unambiguous alphabet
func generateCode() (string, error) {
	raw := make([]byte, codeLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	code := make([]byte, codeLength)
	for i, b := range raw {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}

// Mint creates a new invite code. Admin only. maxUses of 0 means unlimited.
func (s *Service) Mint(ctx context.Context, actorID string, maxUses int) (*store.InviteCode, error) {
	if !s.engine.IsAdmin(ctx, actorID) {
		return nil, ErrForbidden
	}
	if maxUses < 0 {
		maxUses = 0
	}

	code := &store.InviteCode{
		MaxUses:   maxUses,
		CreatedBy: actorID,
		CreatedAt: time.Now(),
	}

	// Regenerate on the unlikely collision with an existing code.
	for attempt := 0; ; attempt++ {
		generated, err := generateCode()
		if err != nil {
			return nil, err
		}
		code.Code = generated

		err = s.store.CreateInviteCode(ctx, code)
		if err == nil {
			break
		}
		if err != store.ErrConflict || attempt >= 4 {
			return nil, fmt.Errorf("failed to create invite code: %w", err)
		}
	}

	audit.Record(ctx, s.audit, &audit.Event{
		Type:         audit.EventTypeInviteCodeMint,
		ActorID:      actorID,
		ResourceType: audit.ResourceInviteCode,
		ResourceID:   code.Code,
		Detail:       map[string]string{"max_uses": fmt.Sprintf("%d", maxUses)},
	})

	return code, nil
}

// Validate checks a user-entered code without consuming a use
func (s *Service) Validate(ctx context.Context, code string) error {
	normalized := normalize(code)
	if normalized == "" {
		return ErrInvalidCode
	}

	ic, err := s.store.GetInviteCode(ctx, normalized)
	if err == store.ErrNotFound {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if ic.Exhausted() {
		return ErrExhausted
	}
	return nil
}

// Consume burns one use of the code for userID. The usage check is atomic in
// the store, so two racing signups cannot both take the last slot.
func (s *Service) Consume(ctx context.Context, code, userID string) error {
	normalized := normalize(code)
	if normalized == "" {
		return ErrInvalidCode
	}

	err := s.store.ConsumeInviteCode(ctx, normalized, userID)
	switch err {
	case nil:
	case store.ErrNotFound:
		return ErrInvalidCode
	case store.ErrConflict:
		return ErrExhausted
	default:
		return err
	}

	audit.Record(ctx, s.audit, &audit.Event{
		Type:         audit.EventTypeInviteCodeConsume,
		ActorID:      userID,
		ResourceType: audit.ResourceInviteCode,
		ResourceID:   normalized,
	})

	return nil
}

// Sweep deletes exhausted codes older than the grace period. Run
// periodically; returns the number removed.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExhaustedInviteCodes(ctx, time.Now().Add(-sweepGracePeriod))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep invite codes: %w", err)
	}
	if removed > 0 && s.logger != nil {
		s.logger.WithField("removed", removed).Info("Swept exhausted invite codes")
	}
	return removed, nil
}
