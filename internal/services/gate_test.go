package services_test

import (
	"testing"

	"tripcatalog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Authenticate(t *testing.T) {
	gate := testGate()

	for _, cred := range []string{"", "   ", "admin-token", "Bearer", "Bearer ", "Basic admin-token", "Bearer nope"} {
		_, err := gate.Authenticate(cred)
		assert.ErrorIs(t, err, models.ErrUnauthenticated, "credential %q", cred)
	}

	identity, err := gate.Authenticate("Bearer member-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.False(t, identity.IsAdmin)

	identity, err = gate.Authenticate("bearer admin-token")
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin)
}

func TestGate_RequireAdmin(t *testing.T) {
	gate := testGate()

	_, err := gate.RequireAdmin("")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = gate.RequireAdmin(memberCred)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.NotErrorIs(t, err, models.ErrUnauthenticated)

	identity, err := gate.RequireAdmin(adminCred)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", identity.UserID)
}
