package rolesync

import (
	"context"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// RegisterModels makes both relations visible to the persistence client so
// fixture and migration tooling can pick them up.
func RegisterModels() {
	persistence.RegisterModel((*Identity)(nil))
	persistence.RegisterModel((*Profile)(nil))
}

// InstallSchema creates the identities and profiles relations. The profile
// primary key doubles as the foreign key to its identity, cascading on
// update and delete: profile existence is a schema invariant, not an
// application one.
func InstallSchema(ctx context.Context, db *bun.DB) error {
	RegisterModels()

	if db.Dialect().Name() == dialect.SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
			return err
		}
	}

	if _, err := db.NewCreateTable().
		Model((*Identity)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	if _, err := db.NewCreateTable().
		Model((*Profile)(nil)).
		IfNotExists().
		ForeignKey(`("id") REFERENCES "identities" ("id") ON UPDATE CASCADE ON DELETE CASCADE`).
		WithForeignKeys().
		Exec(ctx); err != nil {
		return err
	}

	return nil
}

// DropSchema removes both relations and their data. This is the destructive
// inverse of InstallSchema; detaching reactions alone (Teardown) never
// touches data.
func DropSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().
		Model((*Profile)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return err
	}

	if _, err := db.NewDropTable().
		Model((*Identity)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return err
	}

	return nil
}
