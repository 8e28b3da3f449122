package rolesync

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ReactionIdentityMirror names the reaction that mirrors new identities
// into the profiles relation.
const ReactionIdentityMirror = "identity.mirror"

// IdentityMirror reacts to identity creation by inserting the matching
// profile row: same identifier, same creation timestamp, declared defaults
// for everything else. A duplicate firing hits the profiles primary key and
// surfaces as a constraint violation; it is not swallowed because the event
// source fires exactly once per logical creation.
//
// The profile insert is announced back through the dispatcher so reactions
// attached to the profiles relation fire within the same transaction.
type IdentityMirror struct {
	profiles   Profiles
	dispatcher *Dispatcher
}

func NewIdentityMirror(profiles Profiles, dispatcher *Dispatcher) *IdentityMirror {
	return &IdentityMirror{
		profiles:   profiles,
		dispatcher: dispatcher,
	}
}

func (r *IdentityMirror) Name() string { return ReactionIdentityMirror }

func (r *IdentityMirror) When(m Mutation) bool {
	return m.Op == OpInsert && m.Relation == RelationIdentities && m.Identity != nil
}

func (r *IdentityMirror) Handle(ctx context.Context, tx bun.IDB, m Mutation) error {
	if !r.When(m) {
		return withSentinelMetadata(ErrInvalidInvocation, map[string]any{
			"reaction": r.Name(),
			"op":       string(m.Op),
			"relation": string(m.Relation),
		})
	}

	profile := &Profile{
		ID:        m.Identity.ID,
		CreatedAt: m.Identity.CreatedAt,
	}

	created, err := r.profiles.CreateTx(ctx, tx, profile)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "could not mirror identity into profile")
	}

	if r.dispatcher == nil {
		return nil
	}

	return r.dispatcher.Dispatch(ctx, tx, Mutation{
		Op:       OpInsert,
		Relation: RelationProfiles,
		Profile:  created,
	})
}
