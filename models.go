package rolesync

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identity mirrors the authentication store's canonical user record. The
// identity store owns creation and deletion; this package only ever writes
// the Claims column, and only through the elevated repository methods.
type Identity struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Claims        map[string]any `bun:"claims,type:jsonb" json:"claims,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Profile is the application-owned user record, one-to-one with an Identity.
// The foreign key cascades on update and delete, so profile existence is
// enforced by the schema, never by application logic.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         *string    `bun:"email" json:"email,omitempty"`
	Role          *Role      `bun:"role" json:"role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
}

// RoleValue returns the profile's role, or empty when unset.
func (p *Profile) RoleValue() Role {
	if p == nil || p.Role == nil {
		return ""
	}
	return *p.Role
}

// HasRole reports whether the profile carries a non-null role.
func (p *Profile) HasRole() bool {
	return p != nil && p.Role != nil
}

func prepareProfileDefaults(record *Profile) {
	if record == nil {
		return
	}

	if record.Role == nil {
		role := RoleUser
		record.Role = &role
	}
}
