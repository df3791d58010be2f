package perm

// Role is the effective role of a caller on a specific tree, computed fresh
// at decision time
type Role string

const (
	// RoleGuest is an unauthenticated caller. Guests can view but never write.
	RoleGuest Role = "guest"
	// RoleAuthenticated is a signed-in caller with no relationship to the tree
	RoleAuthenticated Role = "authenticated"
	// RoleCollaborator is a signed-in caller whose email is on the tree's
	// collaborator list
	RoleCollaborator Role = "collaborator"
	// RoleOwner is the tree's owner
	RoleOwner Role = "owner"
	// RoleAdmin is a site administrator
	RoleAdmin Role = "admin"
)

// Permission is an abstract action a role may or may not perform
type Permission string

const (
	PermissionViewPublicTree   Permission = "tree:view_public"
	PermissionViewPrivateTree  Permission = "tree:view_private_with_link"
	PermissionCreateTree       Permission = "tree:create"
	PermissionEditTree         Permission = "tree:edit"
	PermissionManageInvites    Permission = "tree:manage_invites"
	PermissionCreateWish       Permission = "wish:create"
	PermissionEditOwnWish      Permission = "wish:edit_own"
	PermissionDeleteAnyWish    Permission = "wish:delete_any"
)

// rolePermissions is the static grant table. It is fixed at compile time and
// never mutated; per-tree facts (ownership, collaborator membership) are
// resolved into the role before this table is consulted. The owner's
// "delete any wish" grant is already tree-scoped because RoleOwner only ever
// resolves on trees the caller owns.
var rolePermissions = map[Role]map[Permission]bool{
	RoleGuest: {
		PermissionViewPublicTree:  true,
		PermissionViewPrivateTree: true,
	},
	RoleAuthenticated: {
		PermissionViewPublicTree:  true,
		PermissionViewPrivateTree: true,
		PermissionCreateTree:      true,
		PermissionCreateWish:      true,
		PermissionEditOwnWish:     true,
	},
	RoleCollaborator: {
		PermissionViewPublicTree:  true,
		PermissionViewPrivateTree: true,
		PermissionCreateTree:      true,
		PermissionCreateWish:      true,
		PermissionEditOwnWish:     true,
	},
	RoleOwner: {
		PermissionViewPublicTree:  true,
		PermissionViewPrivateTree: true,
		PermissionCreateTree:      true,
		PermissionEditTree:        true,
		PermissionManageInvites:   true,
		PermissionCreateWish:      true,
		PermissionEditOwnWish:     true,
		PermissionDeleteAnyWish:   true,
	},
	RoleAdmin: {
		PermissionViewPublicTree:  true,
		PermissionViewPrivateTree: true,
		PermissionCreateTree:      true,
		PermissionEditTree:        true,
		PermissionManageInvites:   true,
		PermissionCreateWish:      true,
		PermissionEditOwnWish:     true,
		PermissionDeleteAnyWish:   true,
	},
}

// Can reports whether role is granted permission. Pure lookup, no I/O.
// Unknown roles have no grants.
func Can(role Role, permission Permission) bool {
	return rolePermissions[role][permission]
}

// TreePermissions is the aggregate decision snapshot for one (caller, tree)
// pair, computed in a single pass so UI callers do not issue one round trip
// per control.
type TreePermissions struct {
	Role                   Role `json:"role"`
	CanView                bool `json:"can_view"`
	CanAddWish             bool `json:"can_add_wish"`
	CanEdit                bool `json:"can_edit"`
	CanDelete              bool `json:"can_delete"`
	CanManageCollaborators bool `json:"can_manage_collaborators"`
}
