package perm

import "context"

// ResolveRole computes the caller's effective role on treeID. Precedence is
// admin, then owner, then collaborator; a signed-in caller with no
// relationship to the tree is RoleAuthenticated and an anonymous caller is
// RoleGuest. The result is computed fresh on every call and must not be
// stored, because ownership, the collaborator list, and the admin flag can
// all change between checks.
func (e *Engine) ResolveRole(ctx context.Context, userID, userEmail, treeID string) Role {
	if userID == "" {
		return RoleGuest
	}
	if e.IsAdmin(ctx, userID) {
		return RoleAdmin
	}
	if e.IsTreeOwner(ctx, userID, treeID) {
		return RoleOwner
	}
	if e.IsTreeCollaborator(ctx, userEmail, treeID) {
		return RoleCollaborator
	}
	return RoleAuthenticated
}

// callerEmail fetches the caller's stored email for collaborator matching.
// Unknown callers get an empty email, which never matches.
func (e *Engine) callerEmail(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	user, err := e.dir.GetUser(ctx, userID)
	if err != nil {
		e.denyOnError("caller_email", err)
		return ""
	}
	return user.Email
}
