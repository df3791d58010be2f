package perm

import (
	"context"
	"time"
)

// IsAdmin reports whether userID is a site administrator: on the deploy-time
// allow-list, flagged is_admin, or carrying the admin role on their record.
// Empty IDs and lookup failures deny.
func (e *Engine) IsAdmin(ctx context.Context, userID string) bool {
	start := time.Now()
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	if userID == "" {
		return e.finish(ctx, "is_admin", false, start)
	}
	if e.admins.Contains(userID) {
		return e.finish(ctx, "is_admin", true, start)
	}

	user, err := e.dir.GetUser(ctx, userID)
	if err != nil {
		return e.finish(ctx, "is_admin", e.denyOnError("is_admin", err), start)
	}

	return e.finish(ctx, "is_admin", user.IsAdmin || user.Role == string(RoleAdmin), start)
}

// IsTreeOwner reports whether userID owns treeID. Missing trees deny.
func (e *Engine) IsTreeOwner(ctx context.Context, userID, treeID string) bool {
	start := time.Now()
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	if userID == "" || treeID == "" {
		return e.finish(ctx, "is_tree_owner", false, start)
	}

	tree, err := e.dir.GetTree(ctx, treeID)
	if err != nil {
		return e.finish(ctx, "is_tree_owner", e.denyOnError("is_tree_owner", err), start)
	}

	return e.finish(ctx, "is_tree_owner", tree.OwnerID == userID, start)
}

// IsTreeCollaborator reports whether userEmail is on treeID's collaborator
// list. Matching is an exact string comparison against the stored email.
func (e *Engine) IsTreeCollaborator(ctx context.Context, userEmail, treeID string) bool {
	start := time.Now()
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	if userEmail == "" || treeID == "" {
		return e.finish(ctx, "is_tree_collaborator", false, start)
	}

	tree, err := e.dir.GetTree(ctx, treeID)
	if err != nil {
		return e.finish(ctx, "is_tree_collaborator", e.denyOnError("is_tree_collaborator", err), start)
	}

	return e.finish(ctx, "is_tree_collaborator", tree.HasCollaborator(userEmail), start)
}

// IsWishOwner reports whether userID created wishID. Anonymous wishes have no
// owner, so an empty stored user ID never matches.
func (e *Engine) IsWishOwner(ctx context.Context, userID, wishID string) bool {
	start := time.Now()
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	if userID == "" || wishID == "" {
		return e.finish(ctx, "is_wish_owner", false, start)
	}

	wish, err := e.dir.GetWish(ctx, wishID)
	if err != nil {
		return e.finish(ctx, "is_wish_owner", e.denyOnError("is_wish_owner", err), start)
	}

	return e.finish(ctx, "is_wish_owner", wish.UserID != "" && wish.UserID == userID, start)
}
