package rolesync

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SynchronizerOption customizes synchronizer construction.
type SynchronizerOption func(*Synchronizer)

// WithSynchronizerClock injects a custom clock (useful for tests).
func WithSynchronizerClock(clock func() time.Time) SynchronizerOption {
	return func(s *Synchronizer) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSynchronizerLogger overrides the logger used for sink failures.
func WithSynchronizerLogger(logger Logger) SynchronizerOption {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSynchronizerActivitySink sets the ActivitySink mutations are published to.
func WithSynchronizerActivitySink(sink ActivitySink) SynchronizerOption {
	return func(s *Synchronizer) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithNullRolePolicy decides how a cleared profile role is projected into
// the claims payload. Without it, clearing a role fails with
// ErrNullRolePolicyUnset.
func WithNullRolePolicy(policy NullRolePolicy) SynchronizerOption {
	return func(s *Synchronizer) {
		s.nullPolicy = policy
	}
}

// WithServiceIdentity overrides the fixed identity reactions run under.
func WithServiceIdentity(svc *ServiceIdentity) SynchronizerOption {
	return func(s *Synchronizer) {
		if svc != nil {
			s.authority = svc
		}
	}
}

// Synchronizer owns the role-synchronization pipeline. Every public
// operation runs in a single transaction together with the reactions it
// triggers, so a committed profile creation is never observable without its
// seeded claims payload, and a committed role change never without its
// claims patch.
type Synchronizer struct {
	repo       RepositoryManager
	dispatcher *Dispatcher
	authority  *ServiceIdentity
	nullPolicy NullRolePolicy
	now        func() time.Time
	logger     Logger
	sink       ActivitySink
}

// NewSynchronizer wires the pipeline but does not attach the reactions;
// call Install for that.
func NewSynchronizer(repo RepositoryManager, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		repo:       repo,
		dispatcher: NewDispatcher(),
		authority:  NewServiceIdentity("rolesync"),
		now:        time.Now,
		logger:     defLogger{},
		sink:       noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Dispatcher exposes the reaction dispatcher, mostly for inspection.
func (s *Synchronizer) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Install attaches the three reactions. It is idempotent and reversible:
// Teardown detaches them again without touching data.
func (s *Synchronizer) Install() {
	s.dispatcher.Install(NewIdentityMirror(s.repo.Profiles(), s.dispatcher))
	s.dispatcher.Install(NewClaimsInitializer(s.repo.Identities(), s.authority))
	s.dispatcher.Install(NewClaimsUpdater(s.repo.Identities(), s.authority, s.nullPolicy))
}

// Teardown detaches all three reactions. Existing rows and claims payloads
// are left exactly as they are.
func (s *Synchronizer) Teardown() {
	s.dispatcher.Remove(ReactionIdentityMirror)
	s.dispatcher.Remove(ReactionClaimsInitializer)
	s.dispatcher.Remove(ReactionClaimsUpdater)
}

// CreateIdentity stands in for the external identity store's creation
// event: it inserts the identity row and dispatches the insert mutation,
// which mirrors the profile and seeds the claims payload before the
// transaction commits. Any reaction failure aborts the whole unit of work,
// identity insert included.
func (s *Synchronizer) CreateIdentity(ctx context.Context, record *Identity) (*Identity, error) {
	if record == nil {
		return nil, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	if record.CreatedAt == nil {
		now := s.now()
		record.CreatedAt = &now
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := s.createIdentityTx(ctx, tx, record)
		if err != nil {
			return err
		}

		record = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.recordCreationActivity(ctx, record.ID)

	return record, nil
}

// ProvisionIdentity creates the identity and, in the same transaction,
// applies the profile email and any role beyond the mirrored default. A
// failure at any step aborts the whole unit of work, identity insert
// included.
func (s *Synchronizer) ProvisionIdentity(ctx context.Context, record *Identity, email string, role Role) (*Identity, error) {
	if record == nil {
		return nil, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	if record.CreatedAt == nil {
		now := s.now()
		record.CreatedAt = &now
	}

	var previous Role
	var changed bool

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := s.createIdentityTx(ctx, tx, record)
		if err != nil {
			return err
		}

		record = created

		if email != "" {
			if _, err := s.setEmailTx(ctx, tx, record.ID, email); err != nil {
				return err
			}
		}

		// The mirrored profile starts with the default role; promote only
		// when something else was requested.
		if role != "" && role != RoleUser {
			if _, previous, changed, err = s.changeRoleTx(ctx, tx, record.ID, role); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.recordCreationActivity(ctx, record.ID)

	if email != "" {
		s.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventProfileUpdated,
			IdentityID: record.ID.String(),
		})
	}

	if changed {
		s.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventClaimsRoleUpdated,
			IdentityID: record.ID.String(),
			FromRole:   previous,
			ToRole:     role,
		})
	}

	return record, nil
}

// ChangeRole updates the profile's role and, when the value actually
// changed, patches the claims payload in the same transaction. A same-value
// change still writes the profile row but the updater guard suppresses the
// claims patch and no role activity event is emitted.
func (s *Synchronizer) ChangeRole(ctx context.Context, id uuid.UUID, role Role) (*Profile, error) {
	var updated *Profile
	var previous Role
	var changed bool

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		updated, previous, changed, err = s.changeRoleTx(ctx, tx, id, role)
		return err
	})

	if err != nil {
		return nil, err
	}

	if changed {
		s.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventClaimsRoleUpdated,
			IdentityID: id.String(),
			FromRole:   previous,
			ToRole:     role,
		})
	}

	return updated, nil
}

// ClearRole nulls the profile's role. How the claims payload reflects that
// is governed by the configured NullRolePolicy; without one the transaction
// aborts with ErrNullRolePolicyUnset.
func (s *Synchronizer) ClearRole(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var updated *Profile
	var previous Role
	var changed bool

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		old, err := s.repo.Profiles().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		previous = old.RoleValue()
		changed = old.HasRole()

		updated, err = s.repo.Profiles().ClearRoleTx(ctx, tx, id)
		if err != nil {
			return err
		}

		return s.dispatcher.Dispatch(ctx, tx, Mutation{
			Op:         OpUpdate,
			Relation:   RelationProfiles,
			Profile:    updated,
			OldProfile: old,
		})
	})

	if err != nil {
		return nil, err
	}

	if changed {
		s.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventClaimsRoleCleared,
			IdentityID: id.String(),
			FromRole:   previous,
		})
	}

	return updated, nil
}

// SetEmail updates the profile's email. The mutation still flows through
// the dispatcher, where the updater guard rejects it: only role changes
// reach the claims payload.
func (s *Synchronizer) SetEmail(ctx context.Context, id uuid.UUID, email string) (*Profile, error) {
	var updated *Profile

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		updated, err = s.setEmailTx(ctx, tx, id, email)
		return err
	})

	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventProfileUpdated,
		IdentityID: id.String(),
	})

	return updated, nil
}

// DeleteIdentity stands in for the external store's deletion. The profile
// row goes away through the schema's cascade, not through any reaction.
func (s *Synchronizer) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Identities().RemoveTx(ctx, tx, id)
	})

	if err != nil {
		return err
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventIdentityDeleted,
		IdentityID: id.String(),
	})

	return nil
}

func (s *Synchronizer) createIdentityTx(ctx context.Context, tx bun.Tx, record *Identity) (*Identity, error) {
	created, err := s.repo.Identities().RegisterTx(ctx, tx, record)
	if err != nil {
		return nil, err
	}

	err = s.dispatcher.Dispatch(ctx, tx, Mutation{
		Op:       OpInsert,
		Relation: RelationIdentities,
		Identity: created,
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Synchronizer) changeRoleTx(ctx context.Context, tx bun.Tx, id uuid.UUID, role Role) (*Profile, Role, bool, error) {
	old, err := s.repo.Profiles().FindByIDTx(ctx, tx, id)
	if err != nil {
		return nil, "", false, err
	}

	updated, err := s.repo.Profiles().UpdateRoleTx(ctx, tx, id, role)
	if err != nil {
		return nil, "", false, err
	}

	next := &Profile{ID: id, Email: old.Email, CreatedAt: old.CreatedAt, Role: &role}
	if updated != nil && updated.Role != nil {
		next = updated
	}

	changed := !old.HasRole() || old.RoleValue() != role

	err = s.dispatcher.Dispatch(ctx, tx, Mutation{
		Op:         OpUpdate,
		Relation:   RelationProfiles,
		Profile:    next,
		OldProfile: old,
	})
	if err != nil {
		return nil, "", false, err
	}

	return updated, old.RoleValue(), changed, nil
}

func (s *Synchronizer) setEmailTx(ctx context.Context, tx bun.Tx, id uuid.UUID, email string) (*Profile, error) {
	old, err := s.repo.Profiles().FindByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Profiles().UpdateEmailTx(ctx, tx, id, email)
	if err != nil {
		return nil, err
	}

	next := &Profile{ID: id, Email: &email, CreatedAt: old.CreatedAt, Role: old.Role}
	if updated != nil && updated.Role != nil {
		next = updated
	}

	err = s.dispatcher.Dispatch(ctx, tx, Mutation{
		Op:         OpUpdate,
		Relation:   RelationProfiles,
		Profile:    next,
		OldProfile: old,
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// recordCreationActivity narrates what the pipeline did for a committed
// identity insert. The downstream events depend on which reactions were
// attached: no mirror means no profile row, and the claims payload is only
// seeded off a real profile insert.
func (s *Synchronizer) recordCreationActivity(ctx context.Context, id uuid.UUID) {
	s.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventIdentityCreated,
		IdentityID: id.String(),
	})

	if !s.dispatcher.Has(ReactionIdentityMirror) {
		return
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventProfileCreated,
		IdentityID: id.String(),
	})

	if s.dispatcher.Has(ReactionClaimsInitializer) {
		s.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventClaimsSeeded,
			IdentityID: id.String(),
			ToRole:     RoleUser,
		})
	}
}

func (s *Synchronizer) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	sink := normalizeActivitySink(s.sink)
	if err := sink.Record(ctx, event); err != nil {
		s.logger.Error("synchronizer activity sink error: %v", err)
	}
}
