package rolesync_test

import (
	"context"
	"testing"

	rolesync "github.com/goliatone/go-rolesync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimsWritesRequireServiceAuthority(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	identity, err := p.sync.CreateIdentity(ctx, &rolesync.Identity{})
	require.NoError(t, err)

	// Direct writes without the authority are denied.
	err = p.repo.Identities().MergeClaims(ctx, identity.ID, map[string]any{"x": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, rolesync.ErrClaimsWriteDenied)
	assert.True(t, rolesync.IsPrivilegeDenied(err))

	err = p.repo.Identities().SetClaimRole(ctx, identity.ID, rolesync.RoleAdmin)
	require.Error(t, err)
	assert.ErrorIs(t, err, rolesync.ErrClaimsWriteDenied)

	err = p.repo.Identities().ClearClaimRole(ctx, identity.ID, rolesync.NullRoleRemoveKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, rolesync.ErrClaimsWriteDenied)

	// Denied writes changed nothing.
	stored, err := p.repo.Identities().FindByID(ctx, identity.ID)
	require.NoError(t, err)
	role, ok := rolesync.ClaimsRole(stored.Claims)
	require.True(t, ok)
	assert.Equal(t, rolesync.RoleUser, role)
	assert.NotContains(t, stored.Claims, "x")
}

func TestClaimsWritesWithAuthoritySucceed(t *testing.T) {
	p := newTestPipeline(t)
	ctx := rolesync.WithClaimsAuthority(context.Background(), rolesync.NewServiceIdentity("test"))

	identity, err := p.sync.CreateIdentity(ctx, &rolesync.Identity{})
	require.NoError(t, err)

	require.NoError(t, p.repo.Identities().MergeClaims(ctx, identity.ID, map[string]any{"tier": "gold"}))
	require.NoError(t, p.repo.Identities().SetClaimRole(ctx, identity.ID, rolesync.RoleAdmin))

	stored, err := p.repo.Identities().FindByID(ctx, identity.ID)
	require.NoError(t, err)
	role, _ := rolesync.ClaimsRole(stored.Claims)
	assert.Equal(t, rolesync.RoleAdmin, role)
	assert.Equal(t, "gold", stored.Claims["tier"])
}

func TestClaimsAuthorityFromContext(t *testing.T) {
	_, ok := rolesync.ClaimsAuthorityFrom(context.Background())
	assert.False(t, ok)

	svc := rolesync.NewServiceIdentity("")
	assert.Equal(t, "rolesync", svc.Name())

	ctx := rolesync.WithClaimsAuthority(context.Background(), svc)
	found, ok := rolesync.ClaimsAuthorityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, svc, found)
}
