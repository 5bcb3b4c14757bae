package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:            "0123456789abcdef0123456789abcdef",
			Issuer:            "storefront-test",
			AccessTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testConfig())

	token, err := m.GenerateAccessToken(42, "shopper@example.com", true)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "shopper@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	cfg := testConfig()
	m := NewJWTManager(cfg)

	other := testConfig()
	other.JWT.Secret = "ffffffffffffffffffffffffffffffff"
	forged, err := NewJWTManager(other).GenerateAccessToken(1, "a@example.com", true)
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(forged)
	assert.Error(t, err)

	expired := testConfig()
	expired.JWT.AccessTokenExpiry = -time.Minute
	stale, err := NewJWTManager(expired).GenerateAccessToken(1, "a@example.com", false)
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(stale)
	assert.Error(t, err)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:    1,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := refresh.SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(signed)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader("Bearer "))
}

func TestPasswordHashing(t *testing.T) {
	p := NewPasswordManager(testConfig())

	_, err := p.HashPassword("short1")
	assert.Error(t, err)
	_, err = p.HashPassword("onlyletters")
	assert.Error(t, err)

	hash, err := p.HashPassword("storefront2024")
	require.NoError(t, err)
	assert.NoError(t, p.VerifyPassword("storefront2024", hash))
	assert.Error(t, p.VerifyPassword("storefront2025", hash))
}
