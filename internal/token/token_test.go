package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalina-news/kalina/internal/models"
)

const testSecret = "test-secret"

func TestGenerateVerifyRoundTrip(t *testing.T) {
	signed, expiresAt, err := Generate(42, "a@b.com", models.RoleEditor, testSecret, time.Hour)
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	claims, err := Verify(signed, testSecret)
	require.NoError(t, err)

	assert.Equal(t, int64(42), claims.UserID())
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, models.RoleEditor, claims.Role)
}

func TestVerifyWrongSecret(t *testing.T) {
	signed, _, err := Generate(1, "a@b.com", models.RoleReader, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = Verify(signed, "other-secret")
	assert.Error(t, err)
}

func TestVerifyExpired(t *testing.T) {
	signed, _, err := Generate(1, "a@b.com", models.RoleReader, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = Verify(signed, testSecret)
	assert.Error(t, err)
}

func TestVerifyMalformed(t *testing.T) {
	_, err := Verify("not.a.token", testSecret)
	assert.Error(t, err)
}

func TestVerifyUnknownRole(t *testing.T) {
	signed, _, err := Generate(1, "a@b.com", models.Role("superuser"), testSecret, time.Hour)
	require.NoError(t, err)

	_, err = Verify(signed, testSecret)
	assert.Error(t, err)
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, _, err := Generate(1, "a@b.com", models.RoleReader, "", time.Hour)
	assert.Error(t, err)
}
