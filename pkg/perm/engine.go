package perm

import (
	"context"
	"time"

	"github.com/lunarjar/wishtree/pkg/observability"
	"github.com/lunarjar/wishtree/pkg/store"
)

// DefaultCheckTimeout bounds each authorization check. A stalled store read
// becomes a deny once the deadline elapses instead of an unbounded wait.
const DefaultCheckTimeout = 3 * time.Second

// Directory is the read-only slice of the record store the engine needs.
// store.RecordStore satisfies it.
type Directory interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
	GetTree(ctx context.Context, id string) (*store.Tree, error)
	GetWish(ctx context.Context, id string) (*store.Wish, error)
}

// AdminRoster answers whether a user ID is on the deploy-time admin
// allow-list. config.AdminList satisfies it.
type AdminRoster interface {
	Contains(userID string) bool
}

// emptyRoster is used when no allow-list is configured
type emptyRoster struct{}

func (emptyRoster) Contains(string) bool { return false }

// Engine evaluates authorization decisions against the record store
type Engine struct {
	dir     Directory
	admins  AdminRoster
	timeout time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithAdminRoster sets the admin allow-list
func WithAdminRoster(roster AdminRoster) Option {
	return func(e *Engine) {
		if roster != nil {
			e.admins = roster
		}
	}
}

// WithCheckTimeout overrides the per-check deadline
func WithCheckTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for denied-on-error diagnostics
func WithLogger(logger *observability.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics wires decision counters and latency histograms
func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// NewEngine creates a permission engine over the given directory
func NewEngine(dir Directory, opts ...Option) *Engine {
	e := &Engine{
		dir:     dir,
		admins:  emptyRoster{},
		timeout: DefaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// boundedCtx applies the per-check deadline. Nested calls end up with the
// tightest remaining deadline, which is what we want.
func (e *Engine) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

// finish records the outcome of a named check and forces a deny when the
// check's deadline was exceeded
func (e *Engine) finish(ctx context.Context, check string, allowed bool, start time.Time) bool {
	if ctx.Err() == context.DeadlineExceeded {
		allowed = false
		if e.metrics != nil {
			e.metrics.AuthzTimeoutsTotal.Inc()
		}
		if e.logger != nil {
			e.logger.WithField("check", check).Warn("Authorization check timed out, denying")
		}
	}
	if e.metrics != nil {
		e.metrics.ObserveAuthzCheck(check, allowed, time.Since(start))
	}
	return allowed
}

// denyOnError logs a lookup failure that is being collapsed to a deny.
// Missing records are expected and stay quiet.
func (e *Engine) denyOnError(check string, err error) bool {
	if err != store.ErrNotFound && e.logger != nil {
		e.logger.WithError(err).WithField("check", check).Warn("Authorization lookup failed, denying")
	}
	return false
}

// anyOf runs the checks concurrently and reports whether any returned true.
// Each check is an independent fact, so completion order is irrelevant.
func anyOf(checks ...func() bool) bool {
	results := make(chan bool, len(checks))
	for _, check := range checks {
		go func(fn func() bool) {
			results <- fn()
		}(check)
	}
	for range checks {
		if <-results {
			return true
		}
	}
	return false
}
