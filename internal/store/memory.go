package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"rolegate/internal/rbac"
)

// Memory is an in-memory Store. Safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	roles       map[string]Role
	assignments map[string]rbac.Assignment
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		roles:       map[string]Role{},
		assignments: map[string]rbac.Assignment{},
	}
}

// UpsertRole creates or replaces a role.
func (m *Memory) UpsertRole(_ context.Context, role Role) error {
	if role.Name == "" {
		return fmt.Errorf("store: role name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[role.Name] = role
	return nil
}

// Roles lists all roles sorted by name.
func (m *Memory) Roles(context.Context) ([]Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Role, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteRole removes a role and every assignment of it.
func (m *Memory) DeleteRole(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[name]; !ok {
		return ErrNotFound
	}
	delete(m.roles, name)
	for id, a := range m.assignments {
		if a.Role == name {
			delete(m.assignments, id)
		}
	}
	return nil
}

// Grant records an assignment of an existing role.
func (m *Memory) Grant(_ context.Context, assignment rbac.Assignment) (string, error) {
	if assignment.UserID == "" {
		return "", fmt.Errorf("store: assignment user id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[assignment.Role]; !ok {
		return "", fmt.Errorf("store: grant %s: %w", assignment.Role, ErrNotFound)
	}
	id := uuid.NewString()
	m.assignments[id] = assignment
	return id, nil
}

// Revoke removes an assignment by id.
func (m *Memory) Revoke(_ context.Context, assignmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[assignmentID]; !ok {
		return ErrNotFound
	}
	delete(m.assignments, assignmentID)
	return nil
}

// AssignmentsFor implements rbac.AssignmentReader.
func (m *Memory) AssignmentsFor(_ context.Context, userID, roleName string) ([]rbac.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []rbac.Assignment
	for _, a := range m.assignments {
		if a.UserID == userID && a.Role == roleName {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

// AssignmentsForUser returns every assignment held by the user.
func (m *Memory) AssignmentsForUser(_ context.Context, userID string) ([]rbac.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []rbac.Assignment
	for _, a := range m.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func sortAssignments(assignments []rbac.Assignment) {
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].Role != assignments[j].Role {
			return assignments[i].Role < assignments[j].Role
		}
		return fmt.Sprint(assignments[i].Contexts) < fmt.Sprint(assignments[j].Contexts)
	})
}
