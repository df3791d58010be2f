package trees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lunarjar/wishtree/pkg/audit"
	"github.com/lunarjar/wishtree/pkg/observability"
	"github.com/lunarjar/wishtree/pkg/perm"
	"github.com/lunarjar/wishtree/pkg/store"
)

var (
	// ErrForbidden means the caller is not allowed to perform the operation
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the tree does not exist, or the caller may not know
	// whether it exists
	ErrNotFound = errors.New("tree not found")
	// ErrValidation means the input is malformed
	ErrValidation = errors.New("validation failed")
)

const maxNameLength = 120

// Service implements tree operations with authorization and auditing
type Service struct {
	store  store.RecordStore
	engine *perm.Engine
	audit  audit.Logger
	logger *observability.Logger
}

// NewService creates a tree service
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

// CreateInput are the caller-supplied fields for a new tree
type CreateInput struct {
	Name     string `json:"name"`
	IsPublic bool   `json:"is_public"`
}

// Create makes a new tree owned by userID. Guests cannot create trees.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*store.Tree, error) {
	if userID == "" {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, fmt.Errorf("%w: name must be 1-%d characters", ErrValidation, maxNameLength)
	}

	token, err := NewInviteToken()
	if err != nil {
		return nil, err
	}

	slug := slugify(name)
	if slug == "" {
		slug = "tree"
	}

	now := time.Now()
	tree := &store.Tree{
		ID:            uuid.NewString(),
		Slug:          slug,
		Name:          name,
		OwnerID:       userID,
		IsPublic:      input.IsPublic,
		Collaborators: []string{},
		InviteToken:   token,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// On a slug collision retry with a random suffix before giving up.
	for attempt := 0; ; attempt++ {
		err = s.store.CreateTree(ctx, tree)
		if err != store.ErrConflict || attempt >= 2 {
			break
		}
		suffix, serr := slugSuffix()
		if serr != nil {
			return nil, serr
		}
		tree.Slug = slug + "-" + suffix
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tree: %w", err)
	}

	audit.Record(ctx, s.audit, &audit.Event{
		Type:         audit.EventTypeTreeCreate,
		ActorID:      userID,
		ResourceType: audit.ResourceTree,
		ResourceID:   tree.ID,
		Detail:       map[string]string{"name": tree.Name, "slug": tree.Slug},
	})

	return tree, nil
}

// Get fetches a tree the caller may view. Private trees the caller cannot
// access report ErrNotFound, not ErrForbidden, so their existence does not
// leak.
func (s *Service) Get(ctx context.Context, userID, treeID, inviteToken string) (*store.Tree, error) {
	tree, err := s.store.GetTree(ctx, treeID)
	if err == store.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !s.engine.CanAccessTree(ctx, userID, tree, inviteToken) {
		return nil, ErrNotFound
	}
	return s.redactToken(ctx, userID, tree), nil
}

// GetBySlug fetches a tree by its public slug, applying the same access gate
// as Get
func (s *Service) GetBySlug(ctx context.Context, userID, slug, inviteToken string) (*store.Tree, error) {
	tree, err := s.store.GetTreeBySlug(ctx, slug)
	if err == store.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !s.engine.CanAccessTree(ctx, userID, tree, inviteToken) {
		return nil, ErrNotFound
	}
	return s.redactToken(ctx, userID, tree), nil
}

// redactToken blanks the invite token for callers who may view the tree but
// not manage its invites
func (s *Service) redactToken(ctx context.Context, userID string, tree *store.Tree) *store.Tree {
	if s.engine.CanEditTree(ctx, userID, tree.ID) {
		return tree
	}
	redacted := *tree
	redacted.InviteToken = ""
	return &redacted
}

// UpdateInput are the mutable tree fields. Nil pointers leave the field
// unchanged.
type UpdateInput struct {
	Name     *string `json:"name,omitempty"`
	IsPublic *bool   `json:"is_public,omitempty"`
}

// Update edits the tree's name or visibility. Owner or admin only.
func (s *Service) Update(ctx context.Context, userID, treeID string, input UpdateInput) (*store.Tree, error) {
	tree, err := s.authorizeManage(ctx, userID, treeID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > maxNameLength {
			return nil, fmt.Errorf("%w: name must be 1-%d characters", ErrValidation, maxNameLength)
		}
		tree.Name = name
	}
	if input.IsPublic != nil {
		tree.IsPublic = *input.IsPublic
	}
	tree.UpdatedAt = time.Now()

	if err := s.store.UpdateTree(ctx, tree); err != nil {
		return nil, fmt.Errorf("failed to update tree: %w", err)
	}

	audit.Record(ctx, s.audit, &audit.Event{
		Type:         audit.EventTypeTreeUpdate,
		ActorID:      userID,
		ResourceType: audit.ResourceTree,
		ResourceID:   tree.ID,
	})

	return tree, nil
}

// Delete removes the tree and every wish on it. Owner or admin only.
func (s *Service) Delete(ctx context.Context, userID, treeID string) error {
	tree, err := s.authorizeManage(ctx, userID, treeID)
	if err != nil {
		return err
	}

	// Wishes first: a tree without wishes is recoverable, orphaned wishes
	// are not reachable at all.
	if err := s.store.DeleteWishesByTree(ctx, treeID); err != nil {
		return fmt.Errorf("failed to delete wishes: %w", err)
	}
	if err := s.store.DeleteTree(ctx, treeID); err != nil && err != store.ErrNotFound {
		return fmt.Errorf("failed to delete tree: %w", err)
	}

	audit.Record(ctx, s.audit, &audit.Event{
		Type:         audit.EventTypeTreeDelete,
		ActorID:      userID,
		ResourceType: audit.ResourceTree,
		ResourceID:   treeID,
		Detail:       map[string]string{"name": tree.Name},
	})

	return nil
}

// RotateInviteToken replaces the tree's invite token, invalidating every
// previously shared link on the next authorization check
func (s *Service) RotateInviteToken(ctx context.Context, userID, treeID string) (*store.Tree, error) {
	tree, err := s.authorizeManage(ctx, userID, treeID)
	if err != nil {
		return nil, err
	}

	token, err := NewInviteToken()
	if err != nil {
		return nil, err
	}
	tree.InviteToken = token
	tree.UpdatedAt = time.Now()

	if err := s.store.UpdateTree(ctx, tree); err != nil {
		return nil, fmt.Errorf("failed to rotate invite token: %w", err)
	}

	audit.Record(ctx, s.audit, &audit.Event{
		Type:         audit.EventTypeTreeTokenRotate,
		ActorID:      userID,
		ResourceType: audit.ResourceTree,
		ResourceID:   treeID,
	})

	return tree, nil
}

// AddCollaborator puts an email on the tree's collaborator list. The email
// is stored exactly as given; collaborator checks match it byte for byte.
func (s *Service) AddCollaborator(ctx context.Context, userID, treeID, email string) (*store.Tree, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid collaborator email", ErrValidation)
	}

	tree, err := s.authorizeManage(ctx, userID, treeID)
	if err != nil {
		return nil, err
	}
	if tree.HasCollaborator(email) {
		return tree, nil
	}

	tree.Collaborators = append(tree.Collaborators, email)
	tree.UpdatedAt = time.Now()
	if err := s.store.UpdateTree(ctx, tree); err != nil {
		return nil, fmt.Errorf("failed to add collaborator: %w", err)
	}

	audit.Record(ctx, s.audit, &audit.Event{
		Type:         audit.EventTypeTreeCollaboratorAdd,
		ActorID:      userID,
		ResourceType: audit.ResourceTree,
		ResourceID:   treeID,
		Detail:       map[string]string{"email": email},
	})

	return tree, nil
}

// RemoveCollaborator drops an email from the collaborator list. Removal
// takes effect on the collaborator's very next authorization check.
func (s *Service) RemoveCollaborator(ctx context.Context, userID, treeID, email string) (*store.Tree, error) {
	tree, err := s.authorizeManage(ctx, userID, treeID)
	if err != nil {
		return nil, err
	}

	kept := tree.Collaborators[:0]
	removed := false
	for _, c := range tree.Collaborators {
		if c == email {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if !removed {
		return tree, nil
	}

	tree.Collaborators = kept
	tree.UpdatedAt = time.Now()
	if err := s.store.UpdateTree(ctx, tree); err != nil {
		return nil, fmt.Errorf("failed to remove collaborator: %w", err)
	}

	audit.Record(ctx, s.audit, &audit.Event{
		Type:         audit.EventTypeTreeCollaboratorRm,
		ActorID:      userID,
		ResourceType: audit.ResourceTree,
		ResourceID:   treeID,
		Detail:       map[string]string{"email": email},
	})

	return tree, nil
}

// ListMine returns the caller's own trees
func (s *Service) ListMine(ctx context.Context, userID string) ([]*store.Tree, error) {
	if userID == "" {
		return nil, ErrForbidden
	}
	return s.store.ListTreesByOwner(ctx, userID)
}

// ListPublic returns a page of public trees with invite tokens redacted
func (s *Service) ListPublic(ctx context.Context, limit, offset int) ([]*store.Tree, error) {
	listed, err := s.store.ListPublicTrees(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, tree := range listed {
		tree.InviteToken = ""
	}
	return listed, nil
}

// Permissions returns the caller's decision snapshot for one tree
func (s *Service) Permissions(ctx context.Context, userID, treeID string) perm.TreePermissions {
	return s.engine.GetTreePermissions(ctx, userID, treeID)
}

// authorizeManage loads the tree and requires edit rights on it. Callers
// without view access get ErrNotFound, viewers without edit rights get
// ErrForbidden.
func (s *Service) authorizeManage(ctx context.Context, userID, treeID string) (*store.Tree, error) {
	tree, err := s.store.GetTree(ctx, treeID)
	if err == store.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !s.engine.CanEditTree(ctx, userID, treeID) {
		if !s.engine.CanAccessTree(ctx, userID, tree, "") {
			return nil, ErrNotFound
		}
		return nil, ErrForbidden
	}
	return tree, nil
}
