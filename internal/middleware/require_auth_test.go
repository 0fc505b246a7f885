package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	var err error
	var midTeardown func(context.Context, ...testcontainers.TerminateOption) error
	midTeardown, testDB, err = database.GetTestDB()
	if err != nil {
		os.Exit(1)
	}
	code := m.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if midTeardown != nil {
		_ = midTeardown(ctx)
	}
	os.Exit(code)
}

func protectedEngine() *gin.Engine {
	r := gin.New()
	r.GET("/protected", RequireAuth(testDB), checkUserHandler)
	return r
}

func checkUserHandler(c *gin.Context) {
	u, exist := c.Get("user")
	if !exist {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}

func roleHandler(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Hello, " + user.Role})
}

func doGet(t *testing.T, engine *gin.Engine, path, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestRequireAuth_Success(t *testing.T) {
	token, err := auth.GetAccessToken(t, testDB, database.TestUserStudent1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	rec, body := doGet(t, protectedEngine(), "/protected", token)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["ok"])
	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, database.TestUserStudent1.ID.String(), user["id"])
}

func TestRequireAuth_NoHeader(t *testing.T) {
	rec, body := doGet(t, protectedEngine(), "/protected", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, body["error"], "Invalid authorization header")
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	token, err := auth.GenerateTokenWithDuration(database.TestUserStudent1.ID, -1*time.Minute, auth.JwtIssuer)
	require.NoError(t, err)

	rec, body := doGet(t, protectedEngine(), "/protected", token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access token expired", body["error"])
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	// Create a valid token then corrupt it (signature mismatch)
	validToken, err := auth.GenerateTokenWithDuration(database.TestUserStudent1.ID, time.Hour, auth.JwtIssuer)
	require.NoError(t, err)

	rec, body := doGet(t, protectedEngine(), "/protected", validToken+"x")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, body["error"], "Failed to validate token")
}

func TestRequireAuth_UnknownUser(t *testing.T) {
	token, err := auth.GenerateTokenWithDuration(uuid.New(), time.Hour, auth.JwtIssuer)
	require.NoError(t, err)

	rec, body := doGet(t, protectedEngine(), "/protected", token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, body["error"], "User not exist")
}

func TestRequireAuth_InvalidIssuer(t *testing.T) {
	token, err := auth.GenerateTokenWithDuration(database.TestUserStudent1.ID, time.Hour, "invalid-issuer")
	require.NoError(t, err)

	rec, body := doGet(t, protectedEngine(), "/protected", token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	assert.Contains(t, body["error"], "Invalid token issuer")
}

func TestCheckRole_NoRequireAuthBefore(t *testing.T) {
	engine := gin.New()
	engine.GET("/need-role", CheckRole(model.RoleStudent), roleHandler)

	rec, body := doGet(t, engine, "/need-role", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, body["error"], "User information not provided")
}

func TestCheckRole(t *testing.T) {
	engine := gin.New()
	engine.GET("/need-role", RequireAuth(testDB), CheckRole(model.RoleStudent, model.RoleAdmin), roleHandler)

	tests := []struct {
		name       string
		user       model.User
		wantStatus int
	}{
		{"student allowed", database.TestUserStudent1, http.StatusOK},
		{"admin allowed", database.TestAdminUser, http.StatusOK},
		{"company forbidden", database.TestUserCompany1, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := auth.GetAccessToken(t, testDB, tt.user.Username, database.TestSeedPassword)
			require.NoError(t, err)

			rec, body := doGet(t, engine, "/need-role", token)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "Hello, "+tt.user.Role, body["message"])
			} else {
				assert.Equal(t, "User doesn't have permission to access", body["error"])
			}
		})
	}
}

func TestJwtBlacklistCheck(t *testing.T) {
	store := auth.NewInMemoryBlacklistStore(context.Background(), 0)
	engine := gin.New()
	engine.GET("/protected", JwtBlacklistCheck(store), RequireAuth(testDB), checkUserHandler)

	token, err := auth.GetAccessToken(t, testDB, database.TestUserCompany1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	rec, _ := doGet(t, engine, "/protected", token)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, store.AddToBlacklist(context.Background(), token, time.Now().Add(time.Hour)))

	rec, body := doGet(t, engine, "/protected", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has been revoked", body["error"])
}
