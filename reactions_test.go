package rolesync_test

import (
	"context"
	"testing"

	rolesync "github.com/goliatone/go-rolesync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestIdentityMirrorRejectsWrongEventShape(t *testing.T) {
	p := newTestPipeline(t)
	mirror := rolesync.NewIdentityMirror(p.repo.Profiles(), nil)

	bad := []rolesync.Mutation{
		{},
		{Op: rolesync.OpUpdate, Relation: rolesync.RelationIdentities, Identity: &rolesync.Identity{}},
		{Op: rolesync.OpInsert, Relation: rolesync.RelationProfiles, Profile: &rolesync.Profile{}},
		{Op: rolesync.OpInsert, Relation: rolesync.RelationIdentities},
	}

	for _, m := range bad {
		err := mirror.Handle(context.Background(), p.db, m)
		require.Error(t, err)
		assert.ErrorIs(t, err, rolesync.ErrInvalidInvocation)
	}

	// No profile rows appeared.
	count, err := p.db.NewSelect().Model((*rolesync.Profile)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIdentityMirrorDuplicateFiringIsConstraintViolation(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	identity, err := p.sync.CreateIdentity(ctx, &rolesync.Identity{})
	require.NoError(t, err)

	mirror := rolesync.NewIdentityMirror(p.repo.Profiles(), nil)

	err = p.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return mirror.Handle(ctx, tx, rolesync.Mutation{
			Op:       rolesync.OpInsert,
			Relation: rolesync.RelationIdentities,
			Identity: identity,
		})
	})

	require.Error(t, err)
	assert.True(t, rolesync.IsConstraintViolation(err))
}

func TestClaimsInitializerRejectsWrongEventShape(t *testing.T) {
	p := newTestPipeline(t)
	initializer := rolesync.NewClaimsInitializer(p.repo.Identities(), rolesync.NewServiceIdentity("test"))

	err := initializer.Handle(context.Background(), p.db, rolesync.Mutation{
		Op:       rolesync.OpUpdate,
		Relation: rolesync.RelationProfiles,
		Profile:  &rolesync.Profile{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, rolesync.ErrInvalidInvocation)
}

func TestClaimsInitializerTreatsAbsentPayloadAsEmpty(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	// Bypass the pipeline: identity row with a NULL claims payload.
	identity, err := p.repo.Identities().Register(ctx, &rolesync.Identity{})
	require.NoError(t, err)

	role := rolesync.RoleAdmin
	profile := &rolesync.Profile{ID: identity.ID, Role: &role}

	initializer := rolesync.NewClaimsInitializer(p.repo.Identities(), rolesync.NewServiceIdentity("test"))

	err = p.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return initializer.Handle(ctx, tx, rolesync.Mutation{
			Op:       rolesync.OpInsert,
			Relation: rolesync.RelationProfiles,
			Profile:  profile,
		})
	})
	require.NoError(t, err)

	stored, err := p.repo.Identities().FindByID(ctx, identity.ID)
	require.NoError(t, err)

	got, ok := rolesync.ClaimsRole(stored.Claims)
	require.True(t, ok)
	assert.Equal(t, rolesync.RoleAdmin, got)
}

func TestClaimsUpdaterGuard(t *testing.T) {
	updater := rolesync.NewClaimsUpdater(nil, nil, rolesync.NullRolePolicyUnset)

	user := rolesync.RoleUser
	admin := rolesync.RoleAdmin

	cases := []struct {
		name     string
		mutation rolesync.Mutation
		fires    bool
	}{
		{
			name: "role changed",
			mutation: rolesync.Mutation{
				Op:         rolesync.OpUpdate,
				Relation:   rolesync.RelationProfiles,
				Profile:    &rolesync.Profile{Role: &admin},
				OldProfile: &rolesync.Profile{Role: &user},
			},
			fires: true,
		},
		{
			name: "role unchanged",
			mutation: rolesync.Mutation{
				Op:         rolesync.OpUpdate,
				Relation:   rolesync.RelationProfiles,
				Profile:    &rolesync.Profile{Role: &user},
				OldProfile: &rolesync.Profile{Role: &user},
			},
			fires: false,
		},
		{
			name: "role cleared",
			mutation: rolesync.Mutation{
				Op:         rolesync.OpUpdate,
				Relation:   rolesync.RelationProfiles,
				Profile:    &rolesync.Profile{},
				OldProfile: &rolesync.Profile{Role: &user},
			},
			fires: true,
		},
		{
			name: "insert is not an update",
			mutation: rolesync.Mutation{
				Op:       rolesync.OpInsert,
				Relation: rolesync.RelationProfiles,
				Profile:  &rolesync.Profile{Role: &admin},
			},
			fires: false,
		},
		{
			name: "wrong relation",
			mutation: rolesync.Mutation{
				Op:       rolesync.OpUpdate,
				Relation: rolesync.RelationIdentities,
				Identity: &rolesync.Identity{},
			},
			fires: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.fires, updater.When(tc.mutation))
		})
	}
}

func TestClaimsUpdaterRejectsWrongEventShape(t *testing.T) {
	p := newTestPipeline(t)
	updater := rolesync.NewClaimsUpdater(p.repo.Identities(), rolesync.NewServiceIdentity("test"), rolesync.NullRoleRemoveKey)

	role := rolesync.RoleUser
	err := updater.Handle(context.Background(), p.db, rolesync.Mutation{
		Op:         rolesync.OpUpdate,
		Relation:   rolesync.RelationProfiles,
		Profile:    &rolesync.Profile{Role: &role},
		OldProfile: &rolesync.Profile{Role: &role},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, rolesync.ErrInvalidInvocation)
}
