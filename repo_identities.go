package rolesync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ReplaceIdentityClaimsSQL = `UPDATE "identities" AS "idn"
SET
	"claims" = ?
WHERE (
	"idn"."id" = ?
) RETURNING *;`

var SetIdentityClaimRoleSQL = `UPDATE "identities" AS "idn"
SET
	"claims" = json_set(coalesce("claims", '{}'), '$.role', ?)
WHERE (
	"idn"."id" = ?
) RETURNING *;`

var RemoveIdentityClaimRoleSQL = `UPDATE "identities" AS "idn"
SET
	"claims" = json_remove(coalesce("claims", '{}'), '$.role')
WHERE (
	"idn"."id" = ?
) RETURNING *;`

var NullIdentityClaimRoleSQL = `UPDATE "identities" AS "idn"
SET
	"claims" = json_set(coalesce("claims", '{}'), '$.role', json('null'))
WHERE (
	"idn"."id" = ?
) RETURNING *;`

// Identities persists identity records. Creation and deletion belong to the
// external identity store; they are exposed here so embedders (and tests)
// can stand in for that store. The claims writers require a service
// authority in the context, see elevation.go.
type Identities interface {
	repository.Repository[*Identity]

	Register(ctx context.Context, record *Identity) (*Identity, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Identity) (*Identity, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Identity, error)
	Remove(ctx context.Context, id uuid.UUID) error
	RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	MergeClaims(ctx context.Context, id uuid.UUID, patch map[string]any) error
	MergeClaimsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch map[string]any) error
	SetClaimRole(ctx context.Context, id uuid.UUID, role Role) error
	SetClaimRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role Role) error
	ClearClaimRole(ctx context.Context, id uuid.UUID, policy NullRolePolicy) error
	ClearClaimRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, policy NullRolePolicy) error
}

type identities struct {
	repository.Repository[*Identity]
	db *bun.DB
}

var (
	_ Identities                       = (*identities)(nil)
	_ repository.Repository[*Identity] = (*identities)(nil)
)

func NewIdentitiesRepository(db *bun.DB) Identities {
	repo := repository.NewRepository[*Identity](db, repository.ModelHandlers[*Identity]{
		NewRecord: func() *Identity { return &Identity{} },
		GetID: func(record *Identity) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Identity, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
	})

	return &identities{
		Repository: repo,
		db:         db,
	}
}

func (a *identities) Register(ctx context.Context, record *Identity) (*Identity, error) {
	return a.RegisterTx(ctx, a.db, record)
}

func (a *identities) RegisterTx(ctx context.Context, tx bun.IDB, record *Identity) (*Identity, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *identities) FindByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *identities) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Identity, error) {
	record := &Identity{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return record, nil
}

func (a *identities) Remove(ctx context.Context, id uuid.UUID) error {
	return a.RemoveTx(ctx, a.db, id)
}

func (a *identities) RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Identity)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func (a *identities) MergeClaims(ctx context.Context, id uuid.UUID, patch map[string]any) error {
	return a.MergeClaimsTx(ctx, a.db, id, patch)
}

func (a *identities) MergeClaimsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch map[string]any) error {
	if err := requireClaimsAuthority(ctx, "identities.merge_claims"); err != nil {
		return err
	}

	if len(patch) == 0 {
		return nil
	}

	record, err := a.FindByIDTx(ctx, tx, id)
	if err != nil {
		return err
	}

	// NOTE: sqlite's json_patch is RFC 7396: it recurses into colliding
	// object values and treats null as a delete marker. The contract here
	// is a shallow union, so compute it against the row read inside the
	// same transaction and write the result back whole.
	doc, err := json.Marshal(MergeClaims(record.Claims, patch))
	if err != nil {
		return err
	}

	res, err := a.Repository.RawTx(ctx, tx, ReplaceIdentityClaimsSQL, string(doc), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *identities) SetClaimRole(ctx context.Context, id uuid.UUID, role Role) error {
	return a.SetClaimRoleTx(ctx, a.db, id, role)
}

func (a *identities) SetClaimRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role Role) error {
	if err := requireClaimsAuthority(ctx, "identities.set_claim_role"); err != nil {
		return err
	}

	res, err := a.Repository.RawTx(ctx, tx, SetIdentityClaimRoleSQL, string(role), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *identities) ClearClaimRole(ctx context.Context, id uuid.UUID, policy NullRolePolicy) error {
	return a.ClearClaimRoleTx(ctx, a.db, id, policy)
}

func (a *identities) ClearClaimRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, policy NullRolePolicy) error {
	if err := requireClaimsAuthority(ctx, "identities.clear_claim_role"); err != nil {
		return err
	}

	var query string
	switch policy {
	case NullRoleRemoveKey:
		query = RemoveIdentityClaimRoleSQL
	case NullRoleSetNull:
		query = NullIdentityClaimRoleSQL
	default:
		return ErrNullRolePolicyUnset
	}

	res, err := a.Repository.RawTx(ctx, tx, query, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}
