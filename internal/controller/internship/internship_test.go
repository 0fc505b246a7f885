package internship

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
	ic := NewInternshipController(controller.NewBase(testDB, nil))
	g := r.Group("/internships", middleware.RequireAuth(testDB))
	g.GET("/mine", middleware.CheckRole(model.RoleStudent, model.RoleCompany), ic.GetMyInternships)
	g.GET("/:id", ic.GetInternship)
	return r
}

func token(t *testing.T, username string) string {
	t.Helper()
	tok, err := auth.GetAccessToken(t, testDB, username, database.TestSeedPassword)
	require.NoError(t, err)
	return tok
}

func TestInternshipAccess(t *testing.T) {
	r := newRouter()
	student, err := database.CreateTestUser(testDB, model.RoleStudent, "")
	require.NoError(t, err)
	internship, err := database.CreateTestInternship(testDB, database.TestCompany1.ID, student.ID, model.InternshipActive)
	require.NoError(t, err)
	url := fmt.Sprintf("/internships/%d", internship.ID)

	tests := []struct {
		name     string
		username string
		want     int
	}{
		{"intern", student.Username, http.StatusOK},
		{"employer", database.TestUserCompany1.Username, http.StatusOK},
		{"admin", database.TestAdminUser.Username, http.StatusOK},
		{"other student", database.TestUserStudent2.Username, http.StatusForbidden},
		{"other company", database.TestUserCompany2.Username, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := testutil.MakeJSONRequest(nil, token(t, tt.username), r, url, http.MethodGet)
			require.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, model.InternshipActive, resp["status"])
				assert.Len(t, resp["history"], 2)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(nil, token(t, student.Username), r, "/internships/999999", http.MethodGet)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetMyInternships(t *testing.T) {
	r := newRouter()
	student, err := database.CreateTestUser(testDB, model.RoleStudent, "")
	require.NoError(t, err)
	_, err = database.CreateTestInternship(testDB, database.TestCompany1.ID, student.ID, model.InternshipUpcoming)
	require.NoError(t, err)
	_, err = database.CreateTestInternship(testDB, database.TestCompany1.ID, student.ID, model.InternshipActive)
	require.NoError(t, err)

	t.Run("student", func(t *testing.T) {
		rec, resp := testutil.MakeJSONRequest(nil, token(t, student.Username), r, "/internships/mine", http.MethodGet)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 2, resp["total"])
	})

	t.Run("student status filter", func(t *testing.T) {
		rec, resp := testutil.MakeJSONRequest(nil, token(t, student.Username), r, "/internships/mine?status=upcoming", http.MethodGet)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, resp["total"])
	})

	t.Run("employer sees them", func(t *testing.T) {
		rec, resp := testutil.MakeJSONRequest(nil, token(t, database.TestUserCompany1.Username), r, "/internships/mine?limit=100", http.MethodGet)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.GreaterOrEqual(t, resp["total"], float64(2))
	})

	t.Run("other company sees none of them", func(t *testing.T) {
		rec, resp := testutil.MakeJSONRequest(nil, token(t, database.TestUserCompany2.Username), r, "/internships/mine", http.MethodGet)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 0, resp["total"])
	})
}
