package wishes

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
	// ErrNotFound means the wish or tree does not exist, or the caller may
	// not know whether it exists
	ErrNotFound = errors.New("wish not found")
	// ErrValidation means the input is malformed
	ErrValidation = errors.New("validation failed")
)

const maxContentLength = 500

// Category is the kind of wish
type Category string

const (
	CategoryGift       Category = "gift"
	CategoryExperience Category = "experience"
	CategoryActivity   Category = "activity"
	CategoryOther      Category = "other"
)

// validCategories is the closed category set. Unknown categories are
// rejected, empty ones default to "other".
var validCategories = map[Category]bool{
	CategoryGift:       true,
	CategoryExperience: true,
	CategoryActivity:   true,
	CategoryOther:      true,
}

// Service implements wish operations with authorization and auditing
type Service struct {
	store  store.RecordStore
	engine *perm.Engine
	audit  audit.Logger
	logger *observability.Logger
}

// NewService creates a wish service
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

// AddInput are the caller-supplied fields for a new wish
type AddInput struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

func validateInput(input AddInput) (string, Category, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" || len(content) > maxContentLength {
		return "", "", fmt.Errorf("%w: content must be 1-%d characters", ErrValidation, maxContentLength)
	}

	category := Category(input.Category)
	if category == "" {
		category = CategoryOther
	}
	if !validCategories[category] {
		return "", "", fmt.Errorf("%w: unknown category %q", ErrValidation, input.Category)
	}

	return content, category, nil
}

// Add attaches a wish to the tree. userID may be empty for anonymous wishes
// on public trees.
func (s *Service) Add(ctx context.Context, userID, treeID string, input AddInput) (*store.Wish, error) {
	content, category, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	if !s.engine.CanAddWish(ctx, treeID, userID) {
		return nil, ErrForbidden
	}

	wish := &store.Wish{
		ID:        uuid.NewString(),
		TreeID:    treeID,
		UserID:    userID,
		Content:   content,
		Category:  string(category),
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateWish(ctx, wish); err != nil {
		return nil, fmt.Errorf("failed to create wish: %w", err)
	}

	return wish, nil
}

// Edit updates a wish's content or category. Only the wish's creator and
// admins may edit; anonymous wishes cannot be edited at all.
func (s *Service) Edit(ctx context.Context, userID, wishID string, input AddInput) (*store.Wish, error) {
	content, category, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	wish, err := s.store.GetWish(ctx, wishID)
	if err == store.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !s.engine.IsWishOwner(ctx, userID, wishID) && !s.engine.IsAdmin(ctx, userID) {
		return nil, ErrForbidden
	}

	wish.Content = content
	wish.Category = string(category)
	if err := s.store.UpdateWish(ctx, wish); err != nil {
		return nil, fmt.Errorf("failed to update wish: %w", err)
	}

	return wish, nil
}

// Delete removes a wish. Allowed for the wish's creator, the owner of the
// tree it hangs on, and admins.
func (s *Service) Delete(ctx context.Context, userID, wishID string) error {
	wish, err := s.store.GetWish(ctx, wishID)
	if err == store.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if !s.engine.CanDeleteWish(ctx, userID, wishID, wish.TreeID) {
		return ErrForbidden
	}

	if err := s.store.DeleteWish(ctx, wishID); err != nil && err != store.ErrNotFound {
		return fmt.Errorf("failed to delete wish: %w", err)
	}

	// Deleting someone else's wish is a privileged act worth a trail entry.
	if wish.UserID != userID {
		audit.Record(ctx, s.audit, &audit.Event{
			Type:         audit.EventTypeWishDelete,
			ActorID:      userID,
			ResourceType: audit.ResourceWish,
			ResourceID:   wishID,
			Detail:       map[string]string{"tree_id": wish.TreeID, "creator_id": wish.UserID},
		})
	}

	return nil
}

// List returns the wishes on a tree the caller may view. The same access
// gate as tree reads applies, including invite links.
func (s *Service) List(ctx context.Context, userID, treeID, inviteToken string) ([]*store.Wish, error) {
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

	return s.store.ListWishesByTree(ctx, treeID)
}
