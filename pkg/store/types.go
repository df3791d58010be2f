package store

import (
	"time"
)

// User is the identity record kept by the external auth provider. The service
// only ever reads it; account lifecycle is not owned here.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Tree is a named collection of wishes. Exactly one owner; the invite token is
// the sole private-access credential besides ownership or collaboration, and is
// rotatable (rotation invalidates every previously shared link).
type Tree struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	OwnerID       string    `json:"owner_id"`
	IsPublic      bool      `json:"is_public"`
	Collaborators []string  `json:"collaborators"`
	InviteToken   string    `json:"invite_token,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasCollaborator reports whether email is on the collaborator list.
// Matching is exact and case-sensitive on the stored string.
func (t *Tree) HasCollaborator(email string) bool {
	if email == "" {
		return false
	}
	for _, c := range t.Collaborators {
		if c == email {
			return true
		}
	}
	return false
}

// Wish is a single item attached to a tree. UserID is empty for anonymous
// submissions on public trees.
type Wish struct {
	ID        string    `json:"id"`
	TreeID    string    `json:"tree_id"`
	UserID    string    `json:"user_id,omitempty"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// InviteCode gates account signup during the alpha. Codes are stored
// uppercase and consumed transactionally.
type InviteCode struct {
	Code       string     `json:"code"`
	MaxUses    int        `json:"max_uses"` // 0 = unlimited
	UsedCount  int        `json:"used_count"`
	CreatedBy  string     `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedBy string     `json:"last_used_by,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Exhausted reports whether the code has reached its usage limit
func (c *InviteCode) Exhausted() bool {
	return c.MaxUses > 0 && c.UsedCount >= c.MaxUses
}

// sanitizeTree defaults fields that external writers may leave unset, so
// callers never see a nil collaborator list or duck-typed gaps.
func sanitizeTree(t *Tree) *Tree {
	if t == nil {
		return nil
	}
	if t.Collaborators == nil {
		t.Collaborators = []string{}
	}
	return t
}
