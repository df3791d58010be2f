package perm

import (
	"context"
	"time"
)

// CanDeleteWish decides whether the caller may delete the wish. Admins, the
// wish's creator, and the owner of the tree the wish hangs on may delete it.
// The three facts are independent reads, so they run concurrently and any
// individual failure counts as false for that fact only.
func (e *Engine) CanDeleteWish(ctx context.Context, userID, wishID, treeID string) bool {
	start := time.Now()
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	if userID == "" {
		return e.finish(ctx, "can_delete_wish", false, start)
	}

	allowed := anyOf(
		func() bool { return e.IsAdmin(ctx, userID) },
		func() bool { return e.IsWishOwner(ctx, userID, wishID) },
		func() bool { return e.IsTreeOwner(ctx, userID, treeID) },
	)

	return e.finish(ctx, "can_delete_wish", allowed, start)
}

// CanAddWish decides whether the caller may attach a wish to the tree.
// Public trees accept wishes from anyone, guests included. Private trees
// require a signed-in caller with tree access, meaning the owner, a listed
// collaborator, or an admin.
func (e *Engine) CanAddWish(ctx context.Context, treeID, userID string) bool {
	start := time.Now()
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	tree, err := e.dir.GetTree(ctx, treeID)
	if err != nil {
		return e.finish(ctx, "can_add_wish", e.denyOnError("can_add_wish", err), start)
	}
	if tree.IsPublic {
		return e.finish(ctx, "can_add_wish", true, start)
	}
	if userID == "" {
		return e.finish(ctx, "can_add_wish", false, start)
	}

	role := e.ResolveRole(ctx, userID, e.callerEmail(ctx, userID), treeID)
	allowed := role == RoleAdmin || role == RoleOwner || role == RoleCollaborator

	return e.finish(ctx, "can_add_wish", allowed, start)
}

// CanEditTree decides whether the caller may edit or delete the tree itself.
// Only the owner and admins qualify; collaborators may contribute wishes but
// never reshape the tree.
func (e *Engine) CanEditTree(ctx context.Context, userID, treeID string) bool {
	start := time.Now()
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	if userID == "" {
		return e.finish(ctx, "can_edit_tree", false, start)
	}

	allowed := anyOf(
		func() bool { return e.IsAdmin(ctx, userID) },
		func() bool { return e.IsTreeOwner(ctx, userID, treeID) },
	)

	return e.finish(ctx, "can_edit_tree", allowed, start)
}

// GetTreePermissions computes the full decision snapshot for one caller on
// one tree. Everything is derived from a single fresh read of the user and
// tree records plus the role resolution, so the snapshot is internally
// consistent even while the underlying records are changing.
func (e *Engine) GetTreePermissions(ctx context.Context, userID, treeID string) TreePermissions {
	start := time.Now()
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	perms := TreePermissions{Role: RoleGuest}

	tree, err := e.dir.GetTree(ctx, treeID)
	if err != nil {
		e.denyOnError("tree_permissions", err)
		e.finish(ctx, "tree_permissions", false, start)
		return perms
	}

	perms.Role = e.ResolveRole(ctx, userID, e.callerEmail(ctx, userID), treeID)

	manages := perms.Role == RoleAdmin || perms.Role == RoleOwner
	perms.CanView = e.CanAccessTree(ctx, userID, tree, "")
	perms.CanAddWish = tree.IsPublic || perms.Role == RoleAdmin || perms.Role == RoleOwner || perms.Role == RoleCollaborator
	perms.CanEdit = manages
	perms.CanDelete = manages
	perms.CanManageCollaborators = manages

	e.finish(ctx, "tree_permissions", perms.CanView, start)
	return perms
}
