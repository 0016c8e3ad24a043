// Package store persists roles and role assignments. The sqlite subpackage
// holds the durable implementation; Memory backs tests and assignment
// providers that are configured in code.
package store

import (
	"context"
	"errors"

	"rolegate/internal/rbac"
)

// ErrNotFound is returned when a role or assignment does not exist.
var ErrNotFound = errors.New("store: not found")

// Role is a named grantable role.
type Role struct {
	Name        string
	Description string
}

// Store is the full read/write contract for role assignment persistence.
// It satisfies rbac.AssignmentReader so access checks can run against it
// directly.
type Store interface {
	rbac.AssignmentReader

	UpsertRole(ctx context.Context, role Role) error
	Roles(ctx context.Context) ([]Role, error)
	DeleteRole(ctx context.Context, name string) error

	// Grant records an assignment and returns its identifier. The role must
	// already exist.
	Grant(ctx context.Context, assignment rbac.Assignment) (string, error)
	Revoke(ctx context.Context, assignmentID string) error

	// AssignmentsForUser returns every assignment held by the user, across
	// all roles.
	AssignmentsForUser(ctx context.Context, userID string) ([]rbac.Assignment, error)
}

// Provider adapts a Store into an rbac.AssignmentProvider, so persisted
// assignments can be folded into minted tokens.
type Provider struct {
	Store Store
}

// Assignments implements rbac.AssignmentProvider.
func (p Provider) Assignments(ctx context.Context, userID string) ([]rbac.Assignment, error) {
	return p.Store.AssignmentsForUser(ctx, userID)
}
