package rolesync

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ReactionClaimsInitializer names the reaction that seeds the claims
// payload when a profile is first created.
const ReactionClaimsInitializer = "claims.initializer"

// ClaimsInitializer reacts to profile creation by merging the profile's role
// into the parent identity's claims payload. An absent payload is treated as
// an empty document; keys unrelated to role are preserved verbatim. The
// body runs under the service authority because the actor that caused
// profile creation does not hold write privilege on the identity record.
type ClaimsInitializer struct {
	identities Identities
	authority  *ServiceIdentity
}

func NewClaimsInitializer(identities Identities, authority *ServiceIdentity) *ClaimsInitializer {
	return &ClaimsInitializer{
		identities: identities,
		authority:  authority,
	}
}

func (r *ClaimsInitializer) Name() string { return ReactionClaimsInitializer }

func (r *ClaimsInitializer) When(m Mutation) bool {
	return m.Op == OpInsert && m.Relation == RelationProfiles && m.Profile != nil
}

func (r *ClaimsInitializer) Handle(ctx context.Context, tx bun.IDB, m Mutation) error {
	if !r.When(m) {
		return withSentinelMetadata(ErrInvalidInvocation, map[string]any{
			"reaction": r.Name(),
			"op":       string(m.Op),
			"relation": string(m.Relation),
		})
	}

	patch := map[string]any{
		ClaimRoleKey: string(m.Profile.RoleValue()),
	}

	ctx = WithClaimsAuthority(ctx, r.authority)
	if err := r.identities.MergeClaimsTx(ctx, tx, m.Profile.ID, patch); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not seed claims payload")
	}

	return nil
}
