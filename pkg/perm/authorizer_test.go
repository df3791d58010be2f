package perm

import (
	"context"
	"fmt"
	"testing"

	"github.com/lunarjar/wishtree/pkg/store"
)

// CanDeleteWish is the OR of three independent facts. Exercise every
// combination of (admin, wish owner, tree owner): the only deny is all-false.
func TestCanDeleteWish_AllCombinations(t *testing.T) {
	for i := 0; i < 8; i++ {
		admin := i&1 != 0
		wishOwner := i&2 != 0
		treeOwner := i&4 != 0
		want := admin || wishOwner || treeOwner

		name := fmt.Sprintf("admin=%v wishOwner=%v treeOwner=%v", admin, wishOwner, treeOwner)
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := store.NewMemoryStore()

			caller := &store.User{ID: "caller", Email: "caller@example.com", IsAdmin: admin}
			if err := s.PutUser(ctx, caller); err != nil {
				t.Fatalf("PutUser failed: %v", err)
			}

			treeOwnerID := "someone-else"
			if treeOwner {
				treeOwnerID = "caller"
			}
			if err := s.CreateTree(ctx, &store.Tree{ID: "t", Slug: "t", OwnerID: treeOwnerID}); err != nil {
				t.Fatalf("CreateTree failed: %v", err)
			}

			wishOwnerID := "someone-else"
			if wishOwner {
				wishOwnerID = "caller"
			}
			if err := s.CreateWish(ctx, &store.Wish{ID: "w", TreeID: "t", UserID: wishOwnerID}); err != nil {
				t.Fatalf("CreateWish failed: %v", err)
			}

			e := NewEngine(s)
			if got := e.CanDeleteWish(ctx, "caller", "w", "t"); got != want {
				t.Errorf("CanDeleteWish = %v, want %v", got, want)
			}
		})
	}
}

func TestCanDeleteWish_AnonymousCaller(t *testing.T) {
	e := NewEngine(seedStore(t))
	if e.CanDeleteWish(context.Background(), "", "wish-1", "private-tree") {
		t.Error("Anonymous callers can never delete")
	}
}

func TestCanAddWish(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(seedStore(t), WithAdminRoster(staticRoster{"listed": true}))

	tests := []struct {
		name   string
		treeID string
		userID string
		want   bool
	}{
		{"guest on public tree", "public-tree", "", true},
		{"stranger on public tree", "public-tree", "bystander", true},
		{"guest on private tree", "private-tree", "", false},
		{"owner on private tree", "private-tree", "owner", true},
		{"collaborator on private tree", "private-tree", "collab", true},
		{"admin on private tree", "private-tree", "admin-flag", true},
		{"stranger on private tree", "private-tree", "bystander", false},
		{"missing tree", "no-such-tree", "owner", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.CanAddWish(ctx, tt.treeID, tt.userID); got != tt.want {
				t.Errorf("CanAddWish(%q, %q) = %v, want %v", tt.treeID, tt.userID, got, tt.want)
			}
		})
	}
}

// A collaborator's grant is per-tree: listed on T, not listed on T2.
func TestCanAddWish_CollaboratorScopedToTree(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	if err := s.CreateTree(ctx, &store.Tree{
		ID: "other-private", Slug: "other", Name: "Other", OwnerID: "admin-flag",
	}); err != nil {
		t.Fatalf("CreateTree failed: %v", err)
	}

	e := NewEngine(s)
	if !e.CanAddWish(ctx, "private-tree", "collab") {
		t.Error("Collaborator must add wishes on the tree that lists them")
	}
	if e.CanAddWish(ctx, "other-private", "collab") {
		t.Error("Collaborator must not add wishes on a private tree that does not list them")
	}
}

func TestCanEditTree(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(seedStore(t))

	tests := []struct {
		name   string
		userID string
		treeID string
		want   bool
	}{
		{"owner edits own tree", "owner", "private-tree", true},
		{"admin edits any tree", "admin-flag", "private-tree", true},
		{"collaborator cannot edit", "collab", "private-tree", false},
		{"stranger cannot edit", "bystander", "private-tree", false},
		{"guest cannot edit", "", "private-tree", false},
		{"missing tree denies even admins' ownership path", "owner", "no-such-tree", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.CanEditTree(ctx, tt.userID, tt.treeID); got != tt.want {
				t.Errorf("CanEditTree(%q, %q) = %v, want %v", tt.userID, tt.treeID, got, tt.want)
			}
		})
	}
}

// The owner of tree A gets no delete grant on tree B's wishes.
func TestCanDeleteWish_OwnershipDoesNotCrossTrees(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	if err := s.CreateTree(ctx, &store.Tree{ID: "tree-b", Slug: "b", OwnerID: "bystander"}); err != nil {
		t.Fatalf("CreateTree failed: %v", err)
	}
	if err := s.CreateWish(ctx, &store.Wish{ID: "wish-b", TreeID: "tree-b", UserID: "bystander"}); err != nil {
		t.Fatalf("CreateWish failed: %v", err)
	}

	e := NewEngine(s)
	if e.CanDeleteWish(ctx, "owner", "wish-b", "tree-b") {
		t.Error("Owning tree A must not grant deletes on tree B")
	}
}

func TestGetTreePermissions(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(seedStore(t))

	tests := []struct {
		name       string
		userID     string
		treeID     string
		wantRole   Role
		wantView   bool
		wantAdd    bool
		wantEdit   bool
		wantManage bool
	}{
		{"owner on private tree", "owner", "private-tree", RoleOwner, true, true, true, true},
		{"admin on private tree", "admin-flag", "private-tree", RoleAdmin, true, true, true, true},
		{"collaborator on private tree", "collab", "private-tree", RoleCollaborator, false, true, false, false},
		{"stranger on private tree", "bystander", "private-tree", RoleAuthenticated, false, false, false, false},
		{"guest on public tree", "", "public-tree", RoleGuest, true, true, false, false},
		{"stranger on public tree", "bystander", "public-tree", RoleAuthenticated, true, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.GetTreePermissions(ctx, tt.userID, tt.treeID)
			if got.Role != tt.wantRole {
				t.Errorf("Role = %s, want %s", got.Role, tt.wantRole)
			}
			if got.CanView != tt.wantView {
				t.Errorf("CanView = %v, want %v", got.CanView, tt.wantView)
			}
			if got.CanAddWish != tt.wantAdd {
				t.Errorf("CanAddWish = %v, want %v", got.CanAddWish, tt.wantAdd)
			}
			if got.CanEdit != tt.wantEdit || got.CanDelete != tt.wantEdit {
				t.Errorf("CanEdit/CanDelete = %v/%v, want %v", got.CanEdit, got.CanDelete, tt.wantEdit)
			}
			if got.CanManageCollaborators != tt.wantManage {
				t.Errorf("CanManageCollaborators = %v, want %v", got.CanManageCollaborators, tt.wantManage)
			}
		})
	}
}

func TestGetTreePermissions_MissingTree(t *testing.T) {
	e := NewEngine(seedStore(t))
	got := e.GetTreePermissions(context.Background(), "owner", "no-such-tree")
	if got.Role != RoleGuest || got.CanView || got.CanAddWish || got.CanEdit || got.CanDelete || got.CanManageCollaborators {
		t.Errorf("Missing tree must yield the empty guest snapshot, got %+v", got)
	}
}
