package rolesync

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ClearProfileRoleSQL = `UPDATE "profiles" AS "prf"
SET
	"role" = NULL
WHERE (
	"prf"."id" = ?
) RETURNING *;`

// Profiles persists the application-owned profile records. Role writes are
// the only place the closed vocabulary is enforced.
type Profiles interface {
	repository.Repository[*Profile]

	Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*Profile, error)
	UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role Role) (*Profile, error)
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) (*Profile, error)
	UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) (*Profile, error)
	ClearRole(ctx context.Context, id uuid.UUID) (*Profile, error)
	ClearRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(record *Profile) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Profile, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (a *profiles) Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	prepareProfileDefaults(record)

	if record != nil && record.Role != nil && !IsValidRole(*record.Role) {
		return nil, withSentinelMetadata(ErrRoleNotAllowed, map[string]any{
			"role": *record.Role,
		})
	}

	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *profiles) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *profiles) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error) {
	record := &Profile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return record, nil
}

func (a *profiles) UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*Profile, error) {
	return a.UpdateRoleTx(ctx, a.db, id, role)
}

func (a *profiles) UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role Role) (*Profile, error) {
	if !IsValidRole(role) {
		return nil, withSentinelMetadata(ErrRoleNotAllowed, map[string]any{
			"role": role,
		})
	}

	record := &Profile{
		ID:   id,
		Role: &role,
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *profiles) UpdateEmail(ctx context.Context, id uuid.UUID, email string) (*Profile, error) {
	return a.UpdateEmailTx(ctx, a.db, id, email)
}

func (a *profiles) UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) (*Profile, error) {
	record := &Profile{
		ID:    id,
		Email: &email,
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *profiles) ClearRole(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return a.ClearRoleTx(ctx, a.db, id)
}

func (a *profiles) ClearRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error) {
	// NOTE: updating through the ORM cannot null the column, the zero
	// pointer is skipped on write.
	res, err := a.Repository.RawTx(ctx, tx, ClearProfileRoleSQL, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, ErrProfileNotFound
	}

	return res[0], nil
}
