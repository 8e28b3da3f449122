package rolesync_test

import (
	"context"
	"testing"

	rolesync "github.com/goliatone/go-rolesync"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeClaimsIsShallowOnCollidingObjects(t *testing.T) {
	p := newTestPipeline(t)
	ctx := rolesync.WithClaimsAuthority(context.Background(), rolesync.NewServiceIdentity("test"))

	identity, err := p.sync.CreateIdentity(ctx, &rolesync.Identity{
		Claims: map[string]any{"app": map[string]any{"x": 1}},
	})
	require.NoError(t, err)

	require.NoError(t, p.repo.Identities().MergeClaims(ctx, identity.ID, map[string]any{
		"app": map[string]any{"y": 2},
	}))

	stored, err := p.repo.Identities().FindByID(ctx, identity.ID)
	require.NoError(t, err)

	// A colliding key takes the new value wholesale; old sub-keys do not
	// survive the union.
	assert.Equal(t, map[string]any{"y": float64(2)}, stored.Claims["app"])

	role, ok := rolesync.ClaimsRole(stored.Claims)
	require.True(t, ok)
	assert.Equal(t, rolesync.RoleUser, role)
}

func TestMergeClaimsStoresNullValues(t *testing.T) {
	p := newTestPipeline(t)
	ctx := rolesync.WithClaimsAuthority(context.Background(), rolesync.NewServiceIdentity("test"))

	identity, err := p.sync.CreateIdentity(ctx, &rolesync.Identity{
		Claims: map[string]any{"tier": "gold"},
	})
	require.NoError(t, err)

	// A null value is a value, not a delete marker.
	require.NoError(t, p.repo.Identities().MergeClaims(ctx, identity.ID, map[string]any{
		"flag": nil,
	}))

	stored, err := p.repo.Identities().FindByID(ctx, identity.ID)
	require.NoError(t, err)

	raw, ok := stored.Claims["flag"]
	require.True(t, ok)
	assert.Nil(t, raw)
	assert.Equal(t, "gold", stored.Claims["tier"])
}

func TestMergeClaimsMissingIdentity(t *testing.T) {
	p := newTestPipeline(t)
	ctx := rolesync.WithClaimsAuthority(context.Background(), rolesync.NewServiceIdentity("test"))

	err := p.repo.Identities().MergeClaims(ctx, uuid.New(), map[string]any{"tier": "gold"})
	assert.ErrorIs(t, err, rolesync.ErrIdentityNotFound)
}
