// Package sqlite is the durable Store implementation backed by a local
// SQLite database. Assignment contexts are stored as a JSON array column so
// multi-context grants round-trip without a join table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"rolegate/internal/rbac"
	"rolegate/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS roles (
	name        TEXT PRIMARY KEY,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS role_assignments (
	id       TEXT PRIMARY KEY,
	user_id  TEXT NOT NULL,
	role     TEXT NOT NULL REFERENCES roles(name) ON DELETE CASCADE,
	contexts TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_assignments_user ON role_assignments(user_id);
CREATE INDEX IF NOT EXISTS idx_assignments_user_role ON role_assignments(user_id, role);
`

// Store implements store.Store on database/sql.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and bootstraps the
// schema. Foreign keys are enabled so deleting a role cascades.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertRole creates or replaces a role.
func (s *Store) UpsertRole(ctx context.Context, role store.Role) error {
	if role.Name == "" {
		return fmt.Errorf("sqlite: role name is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roles (name, description) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET description = excluded.description`,
		role.Name, role.Description)
	if err != nil {
		return fmt.Errorf("sqlite: upsert role %s: %w", role.Name, err)
	}
	return nil
}

// Roles lists all roles ordered by name.
func (s *Store) Roles(ctx context.Context) ([]store.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, description FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list roles: %w", err)
	}
	defer rows.Close()
	var roles []store.Role
	for rows.Next() {
		var role store.Role
		if err := rows.Scan(&role.Name, &role.Description); err != nil {
			return nil, fmt.Errorf("sqlite: scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// DeleteRole removes a role; assignments cascade.
func (s *Store) DeleteRole(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("sqlite: delete role %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete role %s: %w", name, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Grant records an assignment of an existing role and returns its id.
func (s *Store) Grant(ctx context.Context, assignment rbac.Assignment) (string, error) {
	if assignment.UserID == "" {
		return "", fmt.Errorf("sqlite: assignment user id is required")
	}
	contexts, err := json.Marshal(contextsOrEmpty(assignment.Contexts))
	if err != nil {
		return "", fmt.Errorf("sqlite: encode contexts: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO role_assignments (id, user_id, role, contexts) VALUES (?, ?, ?, ?)`,
		id, assignment.UserID, assignment.Role, string(contexts))
	if err != nil {
		return "", fmt.Errorf("sqlite: grant %s to %s: %w", assignment.Role, assignment.UserID, err)
	}
	return id, nil
}

// Revoke removes an assignment by id.
func (s *Store) Revoke(ctx context.Context, assignmentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM role_assignments WHERE id = ?`, assignmentID)
	if err != nil {
		return fmt.Errorf("sqlite: revoke %s: %w", assignmentID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: revoke %s: %w", assignmentID, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AssignmentsFor implements rbac.AssignmentReader.
func (s *Store) AssignmentsFor(ctx context.Context, userID, roleName string) ([]rbac.Assignment, error) {
	return s.queryAssignments(ctx, `
		SELECT user_id, role, contexts FROM role_assignments
		WHERE user_id = ? AND role = ? ORDER BY id`, userID, roleName)
}

// AssignmentsForUser returns every assignment held by the user.
func (s *Store) AssignmentsForUser(ctx context.Context, userID string) ([]rbac.Assignment, error) {
	return s.queryAssignments(ctx, `
		SELECT user_id, role, contexts FROM role_assignments
		WHERE user_id = ? ORDER BY role, id`, userID)
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]rbac.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query assignments: %w", err)
	}
	defer rows.Close()
	var out []rbac.Assignment
	for rows.Next() {
		var a rbac.Assignment
		var contexts string
		if err := rows.Scan(&a.UserID, &a.Role, &contexts); err != nil {
			return nil, fmt.Errorf("sqlite: scan assignment: %w", err)
		}
		if err := json.Unmarshal([]byte(contexts), &a.Contexts); err != nil {
			return nil, fmt.Errorf("sqlite: decode contexts: %w", err)
		}
		if len(a.Contexts) == 0 {
			a.Contexts = nil
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func contextsOrEmpty(contexts []string) []string {
	if contexts == nil {
		return []string{}
	}
	return contexts
}
