// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/lunarjar/wishtree/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.CallerKey, caller)
//   caller := ctx.Value(contextkeys.CallerKey).(*auth.Caller)
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// CallerKey contains *auth.Caller
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: All protected API endpoints, permission snapshot handler
	// Type: *auth.Caller
	CallerKey Key = "caller"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware, observability layer
	// Used by: Logger, audit trail, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: Auth middleware after token verification
	// Used by: Logger, audit trail, user-scoped operations
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)
