package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "10-01-2024", "2024-13-40", "not-a-date", "2024-01-10T15:00:00Z"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPresent.Valid())
	assert.True(t, StatusAbsent.Valid())
	assert.True(t, StatusLate.Valid())
	assert.False(t, Status("PRESENT").Valid())
	assert.False(t, Status("excused").Valid())
	assert.False(t, Status("").Valid())
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleStudent} {
		assert.True(t, r.Valid())
	}
	assert.False(t, Role("teacher").Valid())
	assert.False(t, Role("").Valid())
}

func TestRoleIsAdmin(t *testing.T) {
	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleTeacher.IsAdmin())
	assert.False(t, RoleStudent.IsAdmin())
}
