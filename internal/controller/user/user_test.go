package user

import (
	"context"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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
	uc := NewUserController(controller.NewBase(testDB, nil))
	authed := r.Group("", middleware.RequireAuth(testDB))
	authed.GET("/me", uc.GetMe)
	student := authed.Group("/students/me", middleware.CheckRole(model.RoleStudent))
	student.GET("", uc.GetStudentProfile)
	student.PATCH("", uc.EditStudentProfile)
	return r
}

func TestGetMe(t *testing.T) {
	r := newRouter()
	tests := []struct {
		name       string
		username   string
		wantRole   string
		wantFields []string
		noFields   []string
	}{
		{"student", database.TestUserStudent1.Username, model.RoleStudent, []string{"student"}, []string{"company"}},
		{"company", database.TestUserCompany1.Username, model.RoleCompany, []string{"company"}, []string{"student"}},
		{"admin", database.TestAdminUser.Username, model.RoleAdmin, nil, []string{"student", "company"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := auth.GetAccessToken(t, testDB, tt.username, database.TestSeedPassword)
			require.NoError(t, err)

			rec, resp := testutil.MakeJSONRequest(nil, token, r, "/me", http.MethodGet)
			require.Equal(t, http.StatusOK, rec.Code)

			user, ok := resp["user"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.wantRole, user["role"])
			assert.NotContains(t, user, "password")
			for _, f := range tt.wantFields {
				assert.Contains(t, resp, f)
			}
			for _, f := range tt.noFields {
				assert.NotContains(t, resp, f)
			}
		})
	}
}

func TestGetStudentProfile(t *testing.T) {
	token, err := auth.GetAccessToken(t, testDB, database.TestUserStudent1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	rec, resp := testutil.MakeJSONRequest(nil, token, newRouter(), "/students/me", http.MethodGet)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", resp["first_name"])
	assert.ElementsMatch(t, []interface{}{"go", "sql"}, resp["skills"])
}

func TestEditStudentProfile(t *testing.T) {
	user, err := database.CreateTestUser(testDB, model.RoleStudent, "")
	require.NoError(t, err)
	token, err := auth.GetAccessToken(t, testDB, user.Username, database.TestSeedPassword)
	require.NoError(t, err)
	r := newRouter()

	t.Run("merge non-empty fields", func(t *testing.T) {
		rec, resp := testutil.MakeJSONRequest(gin.H{
			"university": "Universiti Sains Malaysia",
			"skills":     []string{"python"},
			"tel":        "0123456789",
		}, token, r, "/students/me", http.MethodPatch)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Test", resp["first_name"], "untouched fields keep their value")
		assert.Equal(t, "Universiti Sains Malaysia", resp["university"])

		var stored model.User
		require.NoError(t, testDB.First(&stored, "id = ?", user.ID).Error)
		require.NotNil(t, stored.Tel)
		assert.Equal(t, "0123456789", *stored.Tel)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(gin.H{"role": model.RoleAdmin}, token, r, "/students/me", http.MethodPatch)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("resume must be own upload", func(t *testing.T) {
		other := model.File{Key: uuid.NewString() + ".pdf", OwnerID: database.TestUserStudent2.ID, Filename: "cv.pdf"}
		require.NoError(t, testDB.Create(&other).Error)

		rec, resp := testutil.MakeJSONRequest(gin.H{"resume_key": other.Key}, token, r, "/students/me", http.MethodPatch)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, resp["error"], "resume_key")
	})

	t.Run("resume accepted", func(t *testing.T) {
		own := model.File{Key: uuid.NewString() + ".pdf", OwnerID: user.ID, Filename: "cv.pdf"}
		require.NoError(t, testDB.Create(&own).Error)

		rec, resp := testutil.MakeJSONRequest(gin.H{"resume_key": own.Key}, token, r, "/students/me", http.MethodPatch)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, own.Key, resp["resume_key"])
	})

	t.Run("email taken", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(gin.H{"email": "student1@example.com"}, token, r, "/students/me", http.MethodPatch)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestStudentRoutesRejectCompany(t *testing.T) {
	token, err := auth.GetAccessToken(t, testDB, database.TestUserCompany1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	rec, _ := testutil.MakeJSONRequest(nil, token, newRouter(), "/students/me", http.MethodGet)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
