package company

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/middleware"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/testutil"
)

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	teardown, db, err := database.GetTestDB()
	if err != nil {
		log.Printf("could not start test database: %v", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if teardown != nil {
		_ = teardown(ctx)
	}
	os.Exit(code)
}

func newRouter() *gin.Engine {
	r := gin.New()
	cc := NewCompanyController(controller.NewBase(testDB, nil))
	authed := r.Group("", middleware.RequireAuth(testDB))
	authed.GET("/companies/:id", cc.GetCompanyByID)
	mine := authed.Group("/companies/me", middleware.CheckRole(model.RoleCompany))
	mine.GET("", cc.GetMyCompany)
	mine.PATCH("", cc.EditMyCompany)
	return r
}

func TestGetMyCompany(t *testing.T) {
	token, err := auth.GetAccessToken(t, testDB, database.TestUserCompany1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	rec, resp := testutil.MakeJSONRequest(nil, token, newRouter(), "/companies/me", http.MethodGet)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TechNova", resp["name"])
	assert.Equal(t, model.CompanyApproved, resp["status"])
	assert.EqualValues(t, 1, resp["status_code"])
	history, ok := resp["history"].([]interface{})
	require.True(t, ok)
	assert.Len(t, history, 2)
}

func TestGetMyCompany_StudentForbidden(t *testing.T) {
	token, err := auth.GetAccessToken(t, testDB, database.TestUserStudent1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	rec, resp := testutil.MakeJSONRequest(nil, token, newRouter(), "/companies/me", http.MethodGet)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, resp["error"], "permission")
}

func TestEditMyCompany(t *testing.T) {
	user, err := database.CreateTestUser(testDB, model.RoleCompany, model.CompanyPending)
	require.NoError(t, err)
	token, err := auth.GetAccessToken(t, testDB, user.Username, database.TestSeedPassword)
	require.NoError(t, err)
	r := newRouter()

	t.Run("updates profile and contact", func(t *testing.T) {
		email := fmt.Sprintf("%s@example.com", user.Username)
		rec, resp := testutil.MakeJSONRequest(gin.H{
			"name":     "Renamed Sdn Bhd",
			"industry": "Fintech",
			"email":    email,
		}, token, r, "/companies/me", http.MethodPatch)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Renamed Sdn Bhd", resp["name"])
		assert.Equal(t, "Fintech", resp["industry"])

		var stored model.User
		require.NoError(t, testDB.First(&stored, "id = ?", user.ID).Error)
		require.NotNil(t, stored.Email)
		assert.Equal(t, email, *stored.Email)
	})

	t.Run("status is not editable", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(gin.H{"status": model.CompanyApproved}, token, r, "/companies/me", http.MethodPatch)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var company model.Company
		require.NoError(t, testDB.First(&company, "owner_user_id = ?", user.ID).Error)
		assert.Equal(t, model.CompanyPending, company.Status)
	})

	t.Run("email taken", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(gin.H{"email": "student1@example.com"}, token, r, "/companies/me", http.MethodPatch)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestGetCompanyByID(t *testing.T) {
	token, err := auth.GetAccessToken(t, testDB, database.TestUserStudent1.Username, database.TestSeedPassword)
	require.NoError(t, err)
	r := newRouter()

	t.Run("found", func(t *testing.T) {
		rec, resp := testutil.MakeJSONRequest(nil, token, r, fmt.Sprintf("/companies/%d", database.TestCompany1.ID), http.MethodGet)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "TechNova", resp["name"])
		assert.NotContains(t, resp, "registration_no")
		assert.NotContains(t, resp, "owner_user_id")
	})

	t.Run("not found", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(nil, token, r, "/companies/999999", http.MethodGet)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(nil, token, r, "/companies/abc", http.MethodGet)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
