package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerhub/internal/model"
)

func TestGenerateAndParsePair(t *testing.T) {
	pair, err := GeneratePair(42, model.RoleOrganizer)
	require.NoError(t, err)

	claims, err := ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, model.RoleOrganizer, claims.Role)
	assert.Equal(t, "access", claims.Subject)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	pair, err := GeneratePair(42, model.RoleVolunteer)
	require.NoError(t, err)

	// signed with the access secret, must not pass as a refresh token
	_, err = Refresh(pair.AccessToken)
	assert.Error(t, err)
}

func TestRefreshYieldsNewPair(t *testing.T) {
	pair, err := GeneratePair(7, model.RoleAdmin)
	require.NoError(t, err)

	fresh, err := Refresh(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := ParseAccess(fresh.AccessToken)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestParseAccessRejectsRefreshToken(t *testing.T) {
	pair, err := GeneratePair(7, model.RoleAdmin)
	require.NoError(t, err)

	_, err = ParseAccess(pair.RefreshToken)
	assert.Error(t, err)
}
