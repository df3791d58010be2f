package auth

import (
	"context"

	"github.com/lunarjar/wishtree/pkg/contextkeys"
)

// Caller is a verified request identity. A nil Caller (or one with an empty
// ID) is an anonymous guest; guests are legal callers for public trees and
// invite links.
type Caller struct {
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// Anonymous reports whether the caller is an unauthenticated guest
func (c *Caller) Anonymous() bool {
	return c == nil || c.ID == ""
}

// WithCaller attaches the caller to the context. The user ID is stored
// separately so the logger can pick it up without importing this package.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	ctx = context.WithValue(ctx, contextkeys.CallerKey, caller)
	if caller != nil && caller.ID != "" {
		ctx = context.WithValue(ctx, contextkeys.UserIDKey, caller.ID)
	}
	return ctx
}

// CallerFromContext extracts the verified caller, or nil for guests
func CallerFromContext(ctx context.Context) *Caller {
	caller, ok := ctx.Value(contextkeys.CallerKey).(*Caller)
	if !ok {
		return nil
	}
	return caller
}

// CallerID returns the caller's user ID, or "" for guests
func CallerID(ctx context.Context) string {
	return CallerFromContext(ctx).userID()
}

func (c *Caller) userID() string {
	if c.Anonymous() {
		return ""
	}
	return c.ID
}
