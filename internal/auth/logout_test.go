package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/database"
)

// newLogoutContext builds a request carrying accessToken with its claims set
// the way RequireAuth would.
func newLogoutContext(t *testing.T, accessToken string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req, err := http.NewRequest(http.MethodPost, "/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	c.Request = req

	token, err := ValidatedToken(accessToken)
	require.NoError(t, err)
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	require.True(t, ok)
	c.Set("claims", claims)
	return c, rec
}

func TestLogoutSuccess(t *testing.T) {
	accessToken, err := GetAccessToken(t, testDB, database.TestUserStudent1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	blacklistStore := NewInMemoryBlacklistStore(context.Background(), 0)
	logoutController := NewLogoutController(blacklistStore)

	c, rec := newLogoutContext(t, accessToken)
	logoutController.LogoutHandler(c)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Successfully logged out", resp["message"])

	isBlacklisted, err := blacklistStore.IsBlacklisted(context.Background(), accessToken)
	assert.NoError(t, err)
	assert.True(t, isBlacklisted, "Token should be blacklisted after logout")
}

func TestLogoutMissingToken(t *testing.T) {
	logoutController := NewLogoutController(NewInMemoryBlacklistStore(context.Background(), 0))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request, _ = http.NewRequest(http.MethodPost, "/logout", nil)

	logoutController.LogoutHandler(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "authorization header")
}

func TestLogoutInvalidTokenFormat(t *testing.T) {
	logoutController := NewLogoutController(NewInMemoryBlacklistStore(context.Background(), 0))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request, _ = http.NewRequest(http.MethodPost, "/logout", nil)
	c.Request.Header.Set("Authorization", "InvalidFormat token123")

	logoutController.LogoutHandler(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutMissingClaims(t *testing.T) {
	accessToken, err := GetAccessToken(t, testDB, database.TestUserStudent1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	logoutController := NewLogoutController(NewInMemoryBlacklistStore(context.Background(), 0))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request, _ = http.NewRequest(http.MethodPost, "/logout", nil)
	c.Request.Header.Set("Authorization", "Bearer "+accessToken)

	logoutController.LogoutHandler(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid token claims", resp["error"])
}

func TestLogoutBlacklistStoreError(t *testing.T) {
	accessToken, err := GetAccessToken(t, testDB, database.TestUserCompany1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	logoutController := NewLogoutController(&failingBlacklistStore{err: fmt.Errorf("redis connection refused")})

	c, rec := newLogoutContext(t, accessToken)
	logoutController.LogoutHandler(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to logout", resp["error"])
}

func TestLogoutOnlyRevokesOwnToken(t *testing.T) {
	token1, err := GetAccessToken(t, testDB, database.TestUserStudent1.Username, database.TestSeedPassword)
	require.NoError(t, err)
	token2, err := GetAccessToken(t, testDB, database.TestUserStudent1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	store := NewInMemoryBlacklistStore(context.Background(), 0)
	c, rec := newLogoutContext(t, token1)
	NewLogoutController(store).LogoutHandler(c)
	require.Equal(t, http.StatusOK, rec.Code)

	revoked, err := store.IsBlacklisted(context.Background(), token1)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsBlacklisted(context.Background(), token2)
	require.NoError(t, err)
	assert.False(t, revoked, "another session of the same user stays valid")
}

func TestExtractClaims(t *testing.T) {
	newCtx := func() *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
		return c
	}

	t.Run("ValidClaims", func(t *testing.T) {
		c := newCtx()
		expected := &jwt.RegisteredClaims{
			Subject:   "test-user-id",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		c.Set("claims", expected)

		claims, err := extractClaims(c)
		require.NoError(t, err)
		assert.Equal(t, expected.Subject, claims.Subject)
	})

	t.Run("MissingClaims", func(t *testing.T) {
		claims, err := extractClaims(newCtx())
		assert.Nil(t, claims)
		assert.EqualError(t, err, "invalid token claims")
	})

	t.Run("InvalidClaimsType", func(t *testing.T) {
		c := newCtx()
		c.Set("claims", "invalid")

		claims, err := extractClaims(c)
		assert.Nil(t, claims)
		assert.EqualError(t, err, "invalid token claims type")
	})

	t.Run("NoExpiry", func(t *testing.T) {
		c := newCtx()
		c.Set("claims", &jwt.RegisteredClaims{Subject: "x"})

		_, err := extractClaims(c)
		assert.Error(t, err)
	})
}

type failingBlacklistStore struct {
	err error
}

func (f *failingBlacklistStore) IsBlacklisted(context.Context, string) (bool, error) {
	return false, f.err
}

func (f *failingBlacklistStore) AddToBlacklist(context.Context, string, time.Time) error {
	return f.err
}
