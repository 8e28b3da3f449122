package rolesync_test

import (
	"testing"

	rolesync "github.com/goliatone/go-rolesync"
	"github.com/stretchr/testify/assert"
)

func TestRoleVocabulary(t *testing.T) {
	assert.True(t, rolesync.IsValidRole(rolesync.RoleUser))
	assert.True(t, rolesync.IsValidRole(rolesync.RoleAdmin))
	assert.False(t, rolesync.IsValidRole(""))
	assert.False(t, rolesync.IsValidRole("owner"))
	assert.False(t, rolesync.IsValidRole("Admin"))

	assert.Equal(t, []rolesync.Role{rolesync.RoleUser, rolesync.RoleAdmin}, rolesync.AllRoles())
}

func TestParseRole(t *testing.T) {
	role, ok := rolesync.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, rolesync.RoleAdmin, role)

	_, ok = rolesync.ParseRole("root")
	assert.False(t, ok)
}
