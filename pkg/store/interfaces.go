package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for any record lookup that matches nothing. The
// permission engine collapses it to a deny; API handlers map it to 404.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a unique constraint (slug, invite code) is hit
var ErrConflict = errors.New("record already exists")

// RecordStore is the boundary to the document store. All reads used by the
// permission engine are fetch-by-id or fetch-by-predicate; the engine itself
// never writes.
type RecordStore interface {
	// Users (read-only: lifecycle owned by the auth provider)
	GetUser(ctx context.Context, id string) (*User, error)
	PutUser(ctx context.Context, user *User) error

	// Trees
	GetTree(ctx context.Context, id string) (*Tree, error)
	GetTreeBySlug(ctx context.Context, slug string) (*Tree, error)
	CreateTree(ctx context.Context, tree *Tree) error
	UpdateTree(ctx context.Context, tree *Tree) error
	DeleteTree(ctx context.Context, id string) error
	ListTreesByOwner(ctx context.Context, ownerID string) ([]*Tree, error)
	ListPublicTrees(ctx context.Context, limit, offset int) ([]*Tree, error)

	// Wishes
	GetWish(ctx context.Context, id string) (*Wish, error)
	CreateWish(ctx context.Context, wish *Wish) error
	UpdateWish(ctx context.Context, wish *Wish) error
	DeleteWish(ctx context.Context, id string) error
	DeleteWishesByTree(ctx context.Context, treeID string) error
	ListWishesByTree(ctx context.Context, treeID string) ([]*Wish, error)

	// Signup invite codes
	GetInviteCode(ctx context.Context, code string) (*InviteCode, error)
	CreateInviteCode(ctx context.Context, code *InviteCode) error
	ConsumeInviteCode(ctx context.Context, code, userID string) error
	DeleteExhaustedInviteCodes(ctx context.Context, olderThan time.Time) (int64, error)

	// Health
	HealthCheck(ctx context.Context) error
}

// Config for the storage backend
type Config struct {
	Type string // "memory", "postgres"

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresTimeout  time.Duration

	// Redis config (rate limiting only; never permission state)
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             "memory",
		PostgresMaxConns: 20,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
	}
}
