package rolesync

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ReactionClaimsUpdater names the reaction that keeps the claims payload's
// role key in lockstep with later role changes.
const ReactionClaimsUpdater = "claims.updater"

// ClaimsUpdater reacts to profile role changes by patching exactly the role
// key inside the claims payload. The When guard suppresses the reaction when
// the role did not change, so a same-value update produces no claims write
// at all. The patch is a targeted field set, not a document replace, so
// concurrent writes touching sibling keys are never clobbered.
type ClaimsUpdater struct {
	identities Identities
	authority  *ServiceIdentity
	nullPolicy NullRolePolicy
}

func NewClaimsUpdater(identities Identities, authority *ServiceIdentity, nullPolicy NullRolePolicy) *ClaimsUpdater {
	return &ClaimsUpdater{
		identities: identities,
		authority:  authority,
		nullPolicy: nullPolicy,
	}
}

func (r *ClaimsUpdater) Name() string { return ReactionClaimsUpdater }

func (r *ClaimsUpdater) When(m Mutation) bool {
	if m.Op != OpUpdate || m.Relation != RelationProfiles {
		return false
	}
	if m.Profile == nil || m.OldProfile == nil {
		return false
	}
	if m.Profile.HasRole() != m.OldProfile.HasRole() {
		return true
	}
	return m.Profile.RoleValue() != m.OldProfile.RoleValue()
}

func (r *ClaimsUpdater) Handle(ctx context.Context, tx bun.IDB, m Mutation) error {
	if !r.When(m) {
		return withSentinelMetadata(ErrInvalidInvocation, map[string]any{
			"reaction": r.Name(),
			"op":       string(m.Op),
			"relation": string(m.Relation),
		})
	}

	ctx = WithClaimsAuthority(ctx, r.authority)

	if !m.Profile.HasRole() {
		if err := r.identities.ClearClaimRoleTx(ctx, tx, m.Profile.ID, r.nullPolicy); err != nil {
			return err
		}
		return nil
	}

	if err := r.identities.SetClaimRoleTx(ctx, tx, m.Profile.ID, m.Profile.RoleValue()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not update claims role")
	}

	return nil
}
