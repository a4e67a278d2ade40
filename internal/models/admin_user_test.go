package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUserPassword(t *testing.T) {
	admin := AdminUser{Username: "admin"}
	require.NoError(t, admin.SetPassword("s3cret"))

	assert.NotEqual(t, "s3cret", admin.PasswordHash)
	assert.True(t, admin.CheckPassword("s3cret"))
	assert.False(t, admin.CheckPassword("wrong"))
	assert.False(t, admin.CheckPassword(""))
}
