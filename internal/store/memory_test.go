package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolegate/internal/rbac"
)

func TestMemoryGrantRevoke(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.UpsertRole(ctx, Role{Name: "auditor"}))

	_, err := m.Grant(ctx, rbac.Assignment{UserID: "u1", Role: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := m.Grant(ctx, rbac.Assignment{UserID: "u1", Role: "auditor", Contexts: []string{"ctx"}})
	require.NoError(t, err)

	got, err := m.AssignmentsFor(ctx, "u1", "auditor")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"ctx"}, got[0].Contexts)

	require.NoError(t, m.Revoke(ctx, id))
	assert.ErrorIs(t, m.Revoke(ctx, id), ErrNotFound)
}

func TestMemoryDeleteRoleCascades(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.UpsertRole(ctx, Role{Name: "auditor"}))
	_, err := m.Grant(ctx, rbac.Assignment{UserID: "u1", Role: "auditor"})
	require.NoError(t, err)

	require.NoError(t, m.DeleteRole(ctx, "auditor"))
	assignments, err := m.AssignmentsForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, assignments)
}
