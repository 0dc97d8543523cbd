package auth

import (
	"testing"
	"time"

	"basmah/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Hour, Issuer: "basmah-test"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateAccessToken(cfg, "admin-1", "a@example.com", "Rana", "ADMIN")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, "Rana", claims.Name)
	assert.Equal(t, "ADMIN", claims.Role)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateAccessToken(cfg, "admin-1", "a@example.com", "Rana", "ADMIN")
	require.NoError(t, err)

	other := *cfg
	other.AccessSecret = "different"
	_, err = ParseAccessToken(&other, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other = *cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(&other, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := *cfg
	expired.AccessExpiry = -time.Minute
	tok, err = GenerateAccessToken(&expired, "admin-1", "a@example.com", "Rana", "ADMIN")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken(cfg, "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
