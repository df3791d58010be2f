package perm

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/lunarjar/wishtree/pkg/store"
)

// CanAccessTree decides whether the caller may view the tree. The rules are
// evaluated in order:
//
//  1. no tree, no access
//  2. public trees are visible to everyone, including guests
//  3. the owner always sees their own tree
//  4. admins see everything
//  5. a private tree opens to anyone presenting its current invite token
//
// The token comparison is against the tree's current token only, so rotating
// the token immediately invalidates every previously shared link.
func (e *Engine) CanAccessTree(ctx context.Context, userID string, tree *store.Tree, inviteToken string) bool {
	start := time.Now()
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	if tree == nil {
		return e.finish(ctx, "can_access_tree", false, start)
	}
	if tree.IsPublic {
		return e.finish(ctx, "can_access_tree", true, start)
	}
	if userID != "" && tree.OwnerID == userID {
		return e.finish(ctx, "can_access_tree", true, start)
	}
	if e.IsAdmin(ctx, userID) {
		return e.finish(ctx, "can_access_tree", true, start)
	}
	if inviteToken != "" && tree.InviteToken != "" &&
		subtle.ConstantTimeCompare([]byte(inviteToken), []byte(tree.InviteToken)) == 1 {
		return e.finish(ctx, "can_access_tree", true, start)
	}

	return e.finish(ctx, "can_access_tree", false, start)
}

// CanAccessTreeByID fetches the tree and applies CanAccessTree. A missing
// tree denies.
func (e *Engine) CanAccessTreeByID(ctx context.Context, userID, treeID, inviteToken string) bool {
	ctx, cancel := e.boundedCtx(ctx)
	defer cancel()

	tree, err := e.dir.GetTree(ctx, treeID)
	if err != nil {
		return e.denyOnError("can_access_tree", err)
	}
	return e.CanAccessTree(ctx, userID, tree, inviteToken)
}
