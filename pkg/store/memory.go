package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process RecordStore for tests and local development.
// Records are copied on the way in and out so callers never share state with
// the store.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]*User
	trees       map[string]*Tree
	treesBySlug map[string]string
	wishes      map[string]*Wish
	inviteCodes map[string]*InviteCode
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*User),
		trees:       make(map[string]*Tree),
		treesBySlug: make(map[string]string),
		wishes:      make(map[string]*Wish),
		inviteCodes: make(map[string]*InviteCode),
	}
}

func copyUser(u *User) *User {
	c := *u
	return &c
}

func copyTree(t *Tree) *Tree {
	c := *t
	c.Collaborators = append([]string(nil), t.Collaborators...)
	return sanitizeTree(&c)
}

func copyWish(w *Wish) *Wish {
	c := *w
	return &c
}

func copyInviteCode(ic *InviteCode) *InviteCode {
	c := *ic
	if ic.LastUsedAt != nil {
		used := *ic.LastUsedAt
		c.LastUsedAt = &used
	}
	return &c
}

// GetUser fetches a user by ID
func (s *MemoryStore) GetUser(ctx context.Context, id string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

// PutUser creates or replaces a user record
func (s *MemoryStore) PutUser(ctx context.Context, user *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = copyUser(user)
	return nil
}

// GetTree fetches a tree by ID
func (s *MemoryStore) GetTree(ctx context.Context, id string) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trees[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTree(t), nil
}

// GetTreeBySlug fetches a tree by its public slug
func (s *MemoryStore) GetTreeBySlug(ctx context.Context, slug string) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.treesBySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTree(s.trees[id]), nil
}

// CreateTree inserts a new tree
func (s *MemoryStore) CreateTree(ctx context.Context, tree *Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.trees[tree.ID]; exists {
		return ErrConflict
	}
	if _, exists := s.treesBySlug[tree.Slug]; exists {
		return ErrConflict
	}
	s.trees[tree.ID] = copyTree(tree)
	s.treesBySlug[tree.Slug] = tree.ID
	return nil
}

// UpdateTree replaces an existing tree record
func (s *MemoryStore) UpdateTree(ctx context.Context, tree *Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, exists := s.trees[tree.ID]
	if !exists {
		return ErrNotFound
	}
	if old.Slug != tree.Slug {
		delete(s.treesBySlug, old.Slug)
		s.treesBySlug[tree.Slug] = tree.ID
	}
	s.trees[tree.ID] = copyTree(tree)
	return nil
}

// DeleteTree removes a tree
func (s *MemoryStore) DeleteTree(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, exists := s.trees[id]
	if !exists {
		return ErrNotFound
	}
	delete(s.treesBySlug, t.Slug)
	delete(s.trees, id)
	return nil
}

// ListTreesByOwner returns all trees owned by ownerID, oldest first
func (s *MemoryStore) ListTreesByOwner(ctx context.Context, ownerID string) ([]*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var trees []*Tree
	for _, t := range s.trees {
		if t.OwnerID == ownerID {
			trees = append(trees, copyTree(t))
		}
	}
	sort.Slice(trees, func(i, j int) bool { return trees[i].CreatedAt.Before(trees[j].CreatedAt) })
	return trees, nil
}

// ListPublicTrees returns a page of public trees, newest first
func (s *MemoryStore) ListPublicTrees(ctx context.Context, limit, offset int) ([]*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var trees []*Tree
	for _, t := range s.trees {
		if t.IsPublic {
			trees = append(trees, copyTree(t))
		}
	}
	sort.Slice(trees, func(i, j int) bool { return trees[i].CreatedAt.After(trees[j].CreatedAt) })
	if offset >= len(trees) {
		return []*Tree{}, nil
	}
	trees = trees[offset:]
	if limit > 0 && limit < len(trees) {
		trees = trees[:limit]
	}
	return trees, nil
}

// GetWish fetches a wish by ID
func (s *MemoryStore) GetWish(ctx context.Context, id string) (*Wish, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wishes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyWish(w), nil
}

// CreateWish inserts a new wish
func (s *MemoryStore) CreateWish(ctx context.Context, wish *Wish) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wishes[wish.ID]; exists {
		return ErrConflict
	}
	s.wishes[wish.ID] = copyWish(wish)
	return nil
}

// UpdateWish replaces an existing wish record
func (s *MemoryStore) UpdateWish(ctx context.Context, wish *Wish) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wishes[wish.ID]; !exists {
		return ErrNotFound
	}
	s.wishes[wish.ID] = copyWish(wish)
	return nil
}

// DeleteWish removes a wish
func (s *MemoryStore) DeleteWish(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wishes[id]; !exists {
		return ErrNotFound
	}
	delete(s.wishes, id)
	return nil
}

// DeleteWishesByTree removes all wishes attached to treeID
func (s *MemoryStore) DeleteWishesByTree(ctx context.Context, treeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.wishes {
		if w.TreeID == treeID {
			delete(s.wishes, id)
		}
	}
	return nil
}

// ListWishesByTree returns all wishes on treeID, oldest first
func (s *MemoryStore) ListWishesByTree(ctx context.Context, treeID string) ([]*Wish, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var wishes []*Wish
	for _, w := range s.wishes {
		if w.TreeID == treeID {
			wishes = append(wishes, copyWish(w))
		}
	}
	sort.Slice(wishes, func(i, j int) bool { return wishes[i].CreatedAt.Before(wishes[j].CreatedAt) })
	return wishes, nil
}

// GetInviteCode fetches an invite code
func (s *MemoryStore) GetInviteCode(ctx context.Context, code string) (*InviteCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ic, ok := s.inviteCodes[code]
	if !ok {
		return nil, ErrNotFound
	}
	return copyInviteCode(ic), nil
}

// CreateInviteCode inserts a new invite code
func (s *MemoryStore) CreateInviteCode(ctx context.Context, code *InviteCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.inviteCodes[code.Code]; exists {
		return ErrConflict
	}
	s.inviteCodes[code.Code] = copyInviteCode(code)
	return nil
}

// ConsumeInviteCode records one use of the code by userID. Exhausted codes
// return ErrConflict.
func (s *MemoryStore) ConsumeInviteCode(ctx context.Context, code, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ic, ok := s.inviteCodes[code]
	if !ok {
		return ErrNotFound
	}
	if ic.Exhausted() {
		return ErrConflict
	}
	now := time.Now()
	ic.UsedCount++
	ic.LastUsedBy = userID
	ic.LastUsedAt = &now
	return nil
}

// DeleteExhaustedInviteCodes removes exhausted codes created before olderThan
func (s *MemoryStore) DeleteExhaustedInviteCodes(ctx context.Context, olderThan time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for code, ic := range s.inviteCodes {
		if ic.Exhausted() && ic.CreatedAt.Before(olderThan) {
			delete(s.inviteCodes, code)
			removed++
		}
	}
	return removed, nil
}

// HealthCheck always succeeds for the in-memory store
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}
