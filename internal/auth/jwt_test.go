package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStandardToken(t *testing.T) {
	id := uuid.New()
	tokenStr, err := GenerateStandardToken(id)
	require.NoError(t, err)

	token, err := ValidatedToken(tokenStr)
	require.NoError(t, err)
	claims := token.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, id.String(), claims.Subject)
	assert.Equal(t, JwtIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokensAreUnique(t *testing.T) {
	id := uuid.New()
	a, err := GenerateStandardToken(id)
	require.NoError(t, err)
	b, err := GenerateStandardToken(id)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestValidatedTokenExpired(t *testing.T) {
	tokenStr, err := GenerateTokenWithDuration(uuid.New(), -time.Minute, JwtIssuer)
	require.NoError(t, err)

	_, err = ValidatedToken(tokenStr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestValidatedTokenWrongAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: uuid.NewString()})
	tokenStr, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidatedToken(tokenStr)
	assert.Error(t, err)
}
