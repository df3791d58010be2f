package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the record store
// schema. The queries use numbered placeholders and generic column types, so
// the same store code runs against SQLite in unit tests.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// Migrate runs once inside NewPostgresStore; reapplying it against an already
// migrated database must neither fail nor touch existing rows.
func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s := NewPostgresStoreFromDB(db)

	user := &User{ID: "u-keep", Email: "keep@example.com", CreatedAt: time.Now().UTC()}
	if err := s.PutUser(ctx, user); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}

	got, err := s.GetUser(ctx, "u-keep")
	if err != nil {
		t.Fatalf("GetUser after re-migrate failed: %v", err)
	}
	if got.Email != "keep@example.com" {
		t.Errorf("Email = %s, want keep@example.com", got.Email)
	}
}

func TestPostgresStore_UserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewPostgresStoreFromDB(setupTestDB(t))

	user := &User{
		ID:        "u-1",
		Email:     "Parent@Example.com",
		IsAdmin:   false,
		Role:      "authenticated",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.PutUser(ctx, user); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	got, err := s.GetUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Email != "Parent@Example.com" {
		t.Errorf("Email = %s, want Parent@Example.com (case preserved)", got.Email)
	}

	// Upsert flips the admin flag in place.
	user.IsAdmin = true
	if err := s.PutUser(ctx, user); err != nil {
		t.Fatalf("PutUser upsert failed: %v", err)
	}
	got, _ = s.GetUser(ctx, "u-1")
	if !got.IsAdmin {
		t.Error("Expected IsAdmin after upsert")
	}

	if _, err := s.GetUser(ctx, "nope"); err != ErrNotFound {
		t.Errorf("GetUser unknown error = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_TreeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewPostgresStoreFromDB(setupTestDB(t))

	now := time.Now().UTC()
	tree := &Tree{
		ID:            "t-1",
		Slug:          "holidays",
		Name:          "Holiday Wishes",
		OwnerID:       "u-1",
		IsPublic:      false,
		Collaborators: []string{"aunt@example.com", "uncle@example.com"},
		InviteToken:   "tok-1",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.CreateTree(ctx, tree); err != nil {
		t.Fatalf("CreateTree failed: %v", err)
	}

	got, err := s.GetTree(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetTree failed: %v", err)
	}
	if len(got.Collaborators) != 2 {
		t.Errorf("len(Collaborators) = %d, want 2", len(got.Collaborators))
	}
	if !got.HasCollaborator("aunt@example.com") {
		t.Error("Expected aunt@example.com in collaborators")
	}
	if got.HasCollaborator("AUNT@example.com") {
		t.Error("Collaborator match must be exact, not case-folded")
	}

	bySlug, err := s.GetTreeBySlug(ctx, "holidays")
	if err != nil {
		t.Fatalf("GetTreeBySlug failed: %v", err)
	}
	if bySlug.ID != "t-1" {
		t.Errorf("GetTreeBySlug ID = %s, want t-1", bySlug.ID)
	}

	tree.IsPublic = true
	tree.InviteToken = "tok-2"
	tree.UpdatedAt = now.Add(time.Minute)
	if err := s.UpdateTree(ctx, tree); err != nil {
		t.Fatalf("UpdateTree failed: %v", err)
	}
	got, _ = s.GetTree(ctx, "t-1")
	if !got.IsPublic || got.InviteToken != "tok-2" {
		t.Errorf("Update not applied: isPublic=%v token=%s", got.IsPublic, got.InviteToken)
	}

	if err := s.UpdateTree(ctx, &Tree{ID: "missing", UpdatedAt: now}); err != ErrNotFound {
		t.Errorf("UpdateTree missing error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteTree(ctx, "t-1"); err != nil {
		t.Fatalf("DeleteTree failed: %v", err)
	}
	if err := s.DeleteTree(ctx, "t-1"); err != ErrNotFound {
		t.Errorf("DeleteTree twice error = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_MalformedCollaboratorList(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s := NewPostgresStoreFromDB(db)

	_, err := db.Exec(
		`INSERT INTO trees (id, slug, name, owner_id, collaborators) VALUES ('t-1', 'bad', 'Bad', 'u-1', 'not-json')`,
	)
	if err != nil {
		t.Fatalf("Failed to seed row: %v", err)
	}

	// A corrupt list must degrade to "no collaborators", never to an error
	// that would block the owner from their own tree.
	got, err := s.GetTree(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetTree failed: %v", err)
	}
	if len(got.Collaborators) != 0 {
		t.Errorf("len(Collaborators) = %d, want 0", len(got.Collaborators))
	}
	if got.Collaborators == nil {
		t.Error("Collaborators must be non-nil")
	}
}

func TestPostgresStore_WishRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewPostgresStoreFromDB(setupTestDB(t))

	base := time.Now().UTC()
	for i, id := range []string{"w-1", "w-2"} {
		wish := &Wish{
			ID:        id,
			TreeID:    "t-1",
			UserID:    "u-1",
			Content:   "a pony",
			Category:  "gift",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateWish(ctx, wish); err != nil {
			t.Fatalf("CreateWish failed: %v", err)
		}
	}

	if err := s.UpdateWish(ctx, &Wish{ID: "w-1", Content: "a bicycle", Category: "gift"}); err != nil {
		t.Fatalf("UpdateWish failed: %v", err)
	}
	got, err := s.GetWish(ctx, "w-1")
	if err != nil {
		t.Fatalf("GetWish failed: %v", err)
	}
	if got.Content != "a bicycle" {
		t.Errorf("Content = %s, want a bicycle", got.Content)
	}

	wishes, err := s.ListWishesByTree(ctx, "t-1")
	if err != nil {
		t.Fatalf("ListWishesByTree failed: %v", err)
	}
	if len(wishes) != 2 || wishes[0].ID != "w-1" {
		t.Errorf("Unexpected listing: %+v", wishes)
	}

	if err := s.DeleteWish(ctx, "w-2"); err != nil {
		t.Fatalf("DeleteWish failed: %v", err)
	}
	if err := s.DeleteWishesByTree(ctx, "t-1"); err != nil {
		t.Fatalf("DeleteWishesByTree failed: %v", err)
	}
	wishes, _ = s.ListWishesByTree(ctx, "t-1")
	if len(wishes) != 0 {
		t.Errorf("len(wishes) after cascade = %d, want 0", len(wishes))
	}
}

func TestPostgresStore_InviteCodeConsume(t *testing.T) {
	ctx := context.Background()
	s := NewPostgresStoreFromDB(setupTestDB(t))

	limited := &InviteCode{Code: "LIMITED", MaxUses: 1, CreatedBy: "admin-1", CreatedAt: time.Now().UTC().Add(-72 * time.Hour)}
	unlimited := &InviteCode{Code: "OPENDOOR", MaxUses: 0, CreatedBy: "admin-1", CreatedAt: time.Now().UTC()}
	for _, ic := range []*InviteCode{limited, unlimited} {
		if err := s.CreateInviteCode(ctx, ic); err != nil {
			t.Fatalf("CreateInviteCode failed: %v", err)
		}
	}

	if err := s.ConsumeInviteCode(ctx, "LIMITED", "u-1"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if err := s.ConsumeInviteCode(ctx, "LIMITED", "u-2"); err != ErrConflict {
		t.Errorf("Consume exhausted error = %v, want ErrConflict", err)
	}
	if err := s.ConsumeInviteCode(ctx, "MISSING", "u-1"); err != ErrNotFound {
		t.Errorf("Consume missing error = %v, want ErrNotFound", err)
	}

	// MaxUses 0 means unlimited.
	for i := 0; i < 5; i++ {
		if err := s.ConsumeInviteCode(ctx, "OPENDOOR", "u-9"); err != nil {
			t.Fatalf("Unlimited consume %d failed: %v", i, err)
		}
	}

	got, err := s.GetInviteCode(ctx, "LIMITED")
	if err != nil {
		t.Fatalf("GetInviteCode failed: %v", err)
	}
	if got.UsedCount != 1 || got.LastUsedBy != "u-1" {
		t.Errorf("Unexpected usage record: %+v", got)
	}
	if got.LastUsedAt == nil {
		t.Error("Expected LastUsedAt to be set")
	}

	removed, err := s.DeleteExhaustedInviteCodes(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExhaustedInviteCodes failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := s.GetInviteCode(ctx, "OPENDOOR"); err != nil {
		t.Errorf("Unlimited code must survive the sweep: %v", err)
	}
}

func TestPostgresStore_ListPublicTrees(t *testing.T) {
	ctx := context.Background()
	s := NewPostgresStoreFromDB(setupTestDB(t))

	base := time.Now().UTC()
	for i, tree := range []*Tree{
		{ID: "t-1", Slug: "a", Name: "A", OwnerID: "u-1", IsPublic: true},
		{ID: "t-2", Slug: "b", Name: "B", OwnerID: "u-1", IsPublic: false},
		{ID: "t-3", Slug: "c", Name: "C", OwnerID: "u-2", IsPublic: true},
	} {
		tree.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		tree.UpdatedAt = tree.CreatedAt
		if err := s.CreateTree(ctx, tree); err != nil {
			t.Fatalf("CreateTree failed: %v", err)
		}
	}

	trees, err := s.ListPublicTrees(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListPublicTrees failed: %v", err)
	}
	if len(trees) != 2 || trees[0].ID != "t-3" {
		t.Errorf("Unexpected public listing: %+v", trees)
	}

	page, err := s.ListPublicTrees(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ListPublicTrees page failed: %v", err)
	}
	if len(page) != 1 || page[0].ID != "t-1" {
		t.Errorf("Unexpected second page: %+v", page)
	}

	owned, err := s.ListTreesByOwner(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListTreesByOwner failed: %v", err)
	}
	if len(owned) != 2 || owned[0].ID != "t-1" {
		t.Errorf("Unexpected owner listing: %+v", owned)
	}
}
