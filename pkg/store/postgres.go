package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements RecordStore on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL, applies migrations, and returns the store
func NewPostgresStore(ctx context.Context, cfg Config) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection (used by tests)
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying connection for health checks and the audit logger
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// GetUser fetches a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, email, is_admin, role, created_at FROM users WHERE id = $1`

	user := &User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.IsAdmin, &user.Role, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// PutUser creates or replaces a user record
func (s *PostgresStore) PutUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO users (id, email, is_admin, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, is_admin = EXCLUDED.is_admin, role = EXCLUDED.role
	`
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Email, user.IsAdmin, user.Role, user.CreatedAt); err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}

	return nil
}

// scanTree scans a tree row and decodes the collaborator list
func scanTree(scanner interface {
	Scan(dest ...interface{}) error
}) (*Tree, error) {
	tree := &Tree{}
	var collaboratorsJSON string

	err := scanner.Scan(
		&tree.ID, &tree.Slug, &tree.Name, &tree.OwnerID, &tree.IsPublic,
		&collaboratorsJSON, &tree.InviteToken, &tree.CreatedAt, &tree.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tree: %w", err)
	}

	if collaboratorsJSON != "" {
		if err := json.Unmarshal([]byte(collaboratorsJSON), &tree.Collaborators); err != nil {
			tree.Collaborators = []string{}
		}
	}

	return sanitizeTree(tree), nil
}

const treeColumns = `id, slug, name, owner_id, is_public, collaborators, invite_token, created_at, updated_at`

// GetTree fetches a tree by ID
func (s *PostgresStore) GetTree(ctx context.Context, id string) (*Tree, error) {
	query := `SELECT ` + treeColumns + ` FROM trees WHERE id = $1`
	return scanTree(s.db.QueryRowContext(ctx, query, id))
}

// GetTreeBySlug fetches a tree by its public slug
func (s *PostgresStore) GetTreeBySlug(ctx context.Context, slug string) (*Tree, error) {
	query := `SELECT ` + treeColumns + ` FROM trees WHERE slug = $1`
	return scanTree(s.db.QueryRowContext(ctx, query, slug))
}

// CreateTree inserts a new tree
func (s *PostgresStore) CreateTree(ctx context.Context, tree *Tree) error {
	collaborators, err := json.Marshal(sanitizeTree(tree).Collaborators)
	if err != nil {
		return fmt.Errorf("failed to encode collaborators: %w", err)
	}

	query := `
		INSERT INTO trees (id, slug, name, owner_id, is_public, collaborators, invite_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		tree.ID, tree.Slug, tree.Name, tree.OwnerID, tree.IsPublic,
		string(collaborators), tree.InviteToken, tree.CreatedAt, tree.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tree: %w", err)
	}

	return nil
}

// UpdateTree replaces an existing tree record
func (s *PostgresStore) UpdateTree(ctx context.Context, tree *Tree) error {
	collaborators, err := json.Marshal(sanitizeTree(tree).Collaborators)
	if err != nil {
		return fmt.Errorf("failed to encode collaborators: %w", err)
	}

	query := `
		UPDATE trees
		SET slug = $1, name = $2, is_public = $3, collaborators = $4, invite_token = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := s.db.ExecContext(ctx, query,
		tree.Slug, tree.Name, tree.IsPublic, string(collaborators),
		tree.InviteToken, tree.UpdatedAt, tree.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tree: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteTree removes a tree
func (s *PostgresStore) DeleteTree(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tree: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListTreesByOwner returns all trees owned by ownerID, oldest first
func (s *PostgresStore) ListTreesByOwner(ctx context.Context, ownerID string) ([]*Tree, error) {
	query := `SELECT ` + treeColumns + ` FROM trees WHERE owner_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	defer rows.Close()

	var trees []*Tree
	for rows.Next() {
		tree, err := scanTree(rows)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}

	return trees, rows.Err()
}

// ListPublicTrees returns a page of public trees, newest first
func (s *PostgresStore) ListPublicTrees(ctx context.Context, limit, offset int) ([]*Tree, error) {
	query := `SELECT ` + treeColumns + ` FROM trees WHERE is_public = TRUE ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list public trees: %w", err)
	}
	defer rows.Close()

	var trees []*Tree
	for rows.Next() {
		tree, err := scanTree(rows)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}

	return trees, rows.Err()
}

// GetWish fetches a wish by ID
func (s *PostgresStore) GetWish(ctx context.Context, id string) (*Wish, error) {
	query := `SELECT id, tree_id, user_id, content, category, created_at FROM wishes WHERE id = $1`

	wish := &Wish{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&wish.ID, &wish.TreeID, &wish.UserID, &wish.Content, &wish.Category, &wish.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wish: %w", err)
	}

	return wish, nil
}

// CreateWish inserts a new wish
func (s *PostgresStore) CreateWish(ctx context.Context, wish *Wish) error {
	query := `
		INSERT INTO wishes (id, tree_id, user_id, content, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		wish.ID, wish.TreeID, wish.UserID, wish.Content, wish.Category, wish.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wish: %w", err)
	}

	return nil
}

// UpdateWish replaces an existing wish record
func (s *PostgresStore) UpdateWish(ctx context.Context, wish *Wish) error {
	query := `UPDATE wishes SET content = $1, category = $2 WHERE id = $3`

	result, err := s.db.ExecContext(ctx, query, wish.Content, wish.Category, wish.ID)
	if err != nil {
		return fmt.Errorf("failed to update wish: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteWish removes a wish
func (s *PostgresStore) DeleteWish(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM wishes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wish: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteWishesByTree removes all wishes attached to treeID
func (s *PostgresStore) DeleteWishesByTree(ctx context.Context, treeID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM wishes WHERE tree_id = $1`, treeID); err != nil {
		return fmt.Errorf("failed to delete wishes: %w", err)
	}
	return nil
}

// ListWishesByTree returns all wishes on treeID, oldest first
func (s *PostgresStore) ListWishesByTree(ctx context.Context, treeID string) ([]*Wish, error) {
	query := `SELECT id, tree_id, user_id, content, category, created_at FROM wishes WHERE tree_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishes: %w", err)
	}
	defer rows.Close()

	var wishes []*Wish
	for rows.Next() {
		wish := &Wish{}
		if err := rows.Scan(&wish.ID, &wish.TreeID, &wish.UserID, &wish.Content, &wish.Category, &wish.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wish: %w", err)
		}
		wishes = append(wishes, wish)
	}

	return wishes, rows.Err()
}

// GetInviteCode fetches an invite code
func (s *PostgresStore) GetInviteCode(ctx context.Context, code string) (*InviteCode, error) {
	query := `SELECT code, max_uses, used_count, created_by, created_at, last_used_by, last_used_at FROM invite_codes WHERE code = $1`

	ic := &InviteCode{}
	var lastUsedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&ic.Code, &ic.MaxUses, &ic.UsedCount, &ic.CreatedBy, &ic.CreatedAt, &ic.LastUsedBy, &lastUsedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite code: %w", err)
	}

	if lastUsedAt.Valid {
		ic.LastUsedAt = &lastUsedAt.Time
	}

	return ic, nil
}

// CreateInviteCode inserts a new invite code
func (s *PostgresStore) CreateInviteCode(ctx context.Context, code *InviteCode) error {
	query := `
		INSERT INTO invite_codes (code, max_uses, used_count, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		code.Code, code.MaxUses, code.UsedCount, code.CreatedBy, code.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invite code: %w", err)
	}

	return nil
}

// ConsumeInviteCode records one use of the code by userID. The usage-limit
// check happens inside the UPDATE so two concurrent signups cannot both take
// the last slot.
func (s *PostgresStore) ConsumeInviteCode(ctx context.Context, code, userID string) error {
	query := `
		UPDATE invite_codes
		SET used_count = used_count + 1, last_used_by = $1, last_used_at = $2
		WHERE code = $3 AND (max_uses = 0 OR used_count < max_uses)
	`
	result, err := s.db.ExecContext(ctx, query, userID, time.Now(), code)
	if err != nil {
		return fmt.Errorf("failed to consume invite code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the code does not exist or it is exhausted.
		if _, err := s.GetInviteCode(ctx, code); err != nil {
			return err
		}
		return ErrConflict
	}

	return nil
}

// DeleteExhaustedInviteCodes removes exhausted codes created before olderThan
func (s *PostgresStore) DeleteExhaustedInviteCodes(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM invite_codes WHERE max_uses > 0 AND used_count >= max_uses AND created_at < $1`

	result, err := s.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete exhausted invite codes: %w", err)
	}

	return result.RowsAffected()
}

// HealthCheck pings the database
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
