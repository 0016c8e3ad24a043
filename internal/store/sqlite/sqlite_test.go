package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolegate/internal/rbac"
	"rolegate/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "rbac.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoleRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.UpsertRole(ctx, store.Role{Name: "coupon-manager", Description: "manages coupons"}))
	require.NoError(t, s.UpsertRole(ctx, store.Role{Name: "auditor"}))
	// Upsert replaces the description.
	require.NoError(t, s.UpsertRole(ctx, store.Role{Name: "auditor", Description: "read only"}))

	roles, err := s.Roles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "auditor", roles[0].Name)
	assert.Equal(t, "read only", roles[0].Description)
}

func TestGrantRequiresExistingRole(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Grant(ctx, rbac.Assignment{UserID: "u1", Role: "missing"})
	assert.Error(t, err)
}

func TestGrantAndQueryAssignments(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertRole(ctx, store.Role{Name: "coupon-manager"}))
	require.NoError(t, s.UpsertRole(ctx, store.Role{Name: "auditor"}))

	_, err := s.Grant(ctx, rbac.Assignment{UserID: "u1", Role: "coupon-manager", Contexts: []string{"ctx-a", "ctx-b"}})
	require.NoError(t, err)
	id, err := s.Grant(ctx, rbac.Assignment{UserID: "u1", Role: "auditor"})
	require.NoError(t, err)
	_, err = s.Grant(ctx, rbac.Assignment{UserID: "u2", Role: "auditor", Contexts: []string{rbac.AllAccessContext}})
	require.NoError(t, err)

	byRole, err := s.AssignmentsFor(ctx, "u1", "coupon-manager")
	require.NoError(t, err)
	require.Len(t, byRole, 1)
	assert.Equal(t, []string{"ctx-a", "ctx-b"}, byRole[0].Contexts)

	all, err := s.AssignmentsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "auditor", all[0].Role)
	assert.Nil(t, all[0].Contexts)

	require.NoError(t, s.Revoke(ctx, id))
	all, err = s.AssignmentsForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, s.Revoke(ctx, id), store.ErrNotFound)
}

func TestDeleteRoleCascades(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertRole(ctx, store.Role{Name: "coupon-manager"}))
	_, err := s.Grant(ctx, rbac.Assignment{UserID: "u1", Role: "coupon-manager", Contexts: []string{"ctx"}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRole(ctx, "coupon-manager"))
	assert.ErrorIs(t, s.DeleteRole(ctx, "coupon-manager"), store.ErrNotFound)

	assignments, err := s.AssignmentsForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestExplicitAccessAgainstSqlite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertRole(ctx, store.Role{Name: "coupon-manager"}))
	_, err := s.Grant(ctx, rbac.Assignment{UserID: "u1", Role: "coupon-manager", Contexts: []string{rbac.AllAccessContext}})
	require.NoError(t, err)

	ok, err := rbac.HasExplicitAccess(ctx, s, "u1", "coupon-manager", "any-context")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rbac.HasExplicitAccess(ctx, s, "", "coupon-manager", "any-context")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreProviderFeedsRoleClaims(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertRole(ctx, store.Role{Name: "enterprise_admin"}))
	_, err := s.Grant(ctx, rbac.Assignment{UserID: "u1", Role: "enterprise_admin", Contexts: []string{"ctx-1", "ctx-2"}})
	require.NoError(t, err)

	claims, err := rbac.RoleClaims(ctx, "u1", store.Provider{Store: s})
	require.NoError(t, err)
	assert.Equal(t, []string{"enterprise_admin:ctx-1", "enterprise_admin:ctx-2"}, claims)
}
