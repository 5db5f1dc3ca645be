package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookarr/pkg/utils"
)

func testTokenService() TokenService {
	return NewTokenService(utils.AuthConfig{
		JWTSecret:   "unit-test-secret",
		JWTIssuer:   "bookarr-test",
		JWTDuration: time.Hour,
	})
}

func testUser() *User {
	return &User{ID: "user-1", Username: "frank", Email: "frank@example.com"}
}

func TestIssueAndVerify(t *testing.T) {
	ts := testTokenService()

	token, exp, err := ts.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "frank", claims.Username)
	assert.Equal(t, "frank@example.com", claims.Email)
	assert.Equal(t, "bookarr-test", claims.Issuer)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	ts := testTokenService()
	token, _, err := ts.Issue(testUser())
	require.NoError(t, err)

	other := ts
	other.Secret = []byte("a-different-secret")

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	foreign := testTokenService()
	foreign.Issuer = "someone-elses-deployment"

	token, _, err := foreign.Issue(testUser())
	require.NoError(t, err)

	// same secret, wrong issuer
	_, err = testTokenService().Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	ts := testTokenService()
	ts.Duration = -time.Minute

	token, _, err := ts.Issue(testUser())
	require.NoError(t, err)

	_, err = testTokenService().Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := testTokenService().Verify("not.a.token")
	assert.Error(t, err)
}
