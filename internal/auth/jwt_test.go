package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	token, err := Issue("user-1", model.RoleTeacher, "classtrack", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token, "secret", "classtrack")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, model.RoleTeacher, claims.Role)
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, err := Issue("user-1", model.RoleStudent, "classtrack", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "other-secret", "classtrack")
	assert.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, err := Issue("user-1", model.RoleStudent, "someone-else", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "classtrack")
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := Issue("user-1", model.RoleStudent, "classtrack", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "classtrack")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not.a.token", "secret", "classtrack")
	assert.Error(t, err)
}
