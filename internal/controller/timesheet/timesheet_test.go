package timesheet

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
	"InternHub-backend/internal/events"
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

func newRouter(pub events.Publisher) *gin.Engine {
	r := gin.New()
	tc := NewTimesheetController(controller.NewBase(testDB, pub))
	api := r.Group("/", middleware.RequireAuth(testDB))
	api.GET("/internships/:id/timesheets", tc.ListTimesheets)
	api.POST("/internships/:id/timesheets", middleware.CheckRole(model.RoleStudent), tc.SubmitTimesheet)
	api.GET("/timesheets/:id", tc.GetTimesheet)
	api.POST("/timesheets/:id/approve", middleware.CheckRole(model.RoleCompany), tc.ApproveTimesheet)
	api.POST("/timesheets/:id/reject", middleware.CheckRole(model.RoleCompany), tc.RejectTimesheet)
	api.POST("/timesheets/:id/resubmit", middleware.CheckRole(model.RoleStudent), tc.ResubmitTimesheet)
	return r
}

func token(t *testing.T, username string) string {
	t.Helper()
	tok, err := auth.GetAccessToken(t, testDB, username, database.TestSeedPassword)
	require.NoError(t, err)
	return tok
}

// lastWeek is the Monday of the previous week.
func lastWeek() time.Time {
	return model.WeekStart(time.Now().UTC()).AddDate(0, 0, -7)
}

func day(week time.Time, offset int) string {
	return week.AddDate(0, 0, offset).Format(time.DateOnly)
}

func sheetBody(week time.Time, hours ...float64) gin.H {
	entries := []gin.H{}
	for i, h := range hours {
		entries = append(entries, gin.H{"date": day(week, i), "hours": h, "description": "feature work"})
	}
	return gin.H{"period_start": week.Format(time.DateOnly), "entries": entries}
}

func newIntern(t *testing.T, status string) (model.User, model.Internship) {
	t.Helper()
	student, err := database.CreateTestUser(testDB, model.RoleStudent, "")
	require.NoError(t, err)
	internship, err := database.CreateTestInternship(testDB, database.TestCompany1.ID, student.ID, status)
	require.NoError(t, err)
	return student, internship
}

func TestSubmitTimesheet(t *testing.T) {
	r := newRouter(nil)
	student, internship := newIntern(t, model.InternshipActive)
	url := fmt.Sprintf("/internships/%d/timesheets", internship.ID)
	week := lastWeek()

	t.Run("created", func(t *testing.T) {
		rec, resp := testutil.MakeJSONRequest(sheetBody(week, 8, 8, 6.5), token(t, student.Username), r, url, http.MethodPost)
		require.Equal(t, http.StatusCreated, rec.Code, resp)
		assert.Equal(t, model.TimesheetSubmitted, resp["status"])
		assert.EqualValues(t, 22.5, resp["total_hours"])
		assert.Len(t, resp["entries"], 3)

		var notes int64
		require.NoError(t, testDB.Model(&model.Notification{}).
			Where("user_id = ? AND type = ?", database.TestUserCompany1.ID, model.NotifyTimesheetSubmitted).
			Where("ref_id = ?", uint(resp["id"].(float64))).
			Count(&notes).Error)
		assert.EqualValues(t, 1, notes)
	})

	t.Run("same week twice", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(sheetBody(week, 4), token(t, student.Username), r, url, http.MethodPost)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	tests := []struct {
		name string
		body gin.H
	}{
		{"not a monday", gin.H{"period_start": day(week, 1), "entries": []gin.H{{"date": day(week, 1), "hours": 8}}}},
		{"entry outside week", gin.H{"period_start": week.AddDate(0, 0, -7).Format(time.DateOnly), "entries": []gin.H{{"date": day(week, 0), "hours": 8}}}},
		{"too many hours", sheetBody(week.AddDate(0, 0, -14), 25)},
		{"zero hours", sheetBody(week.AddDate(0, 0, -14), 0)},
		{"same day twice", gin.H{"period_start": week.AddDate(0, 0, -14).Format(time.DateOnly), "entries": []gin.H{
			{"date": day(week.AddDate(0, 0, -14), 0), "hours": 20},
			{"date": day(week.AddDate(0, 0, -14), 0), "hours": 20},
		}}},
		{"no entries", gin.H{"period_start": week.AddDate(0, 0, -14).Format(time.DateOnly), "entries": []gin.H{}}},
		{"bad date", gin.H{"period_start": "14/04/2025", "entries": []gin.H{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := testutil.MakeJSONRequest(tt.body, token(t, student.Username), r, url, http.MethodPost)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	t.Run("other student", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(sheetBody(week.AddDate(0, 0, -7), 8), token(t, database.TestUserStudent2.Username), r, url, http.MethodPost)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("internship not started", func(t *testing.T) {
		upcomingStudent, upcoming := newIntern(t, model.InternshipUpcoming)
		rec, _ := testutil.MakeJSONRequest(sheetBody(week, 8), token(t, upcomingStudent.Username), r,
			fmt.Sprintf("/internships/%d/timesheets", upcoming.ID), http.MethodPost)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestTimesheetReview(t *testing.T) {
	rec := &events.Recorder{}
	r := newRouter(rec)
	student, internship := newIntern(t, model.InternshipActive)
	week := lastWeek()

	w, resp := testutil.MakeJSONRequest(sheetBody(week, 8, 8), token(t, student.Username), r,
		fmt.Sprintf("/internships/%d/timesheets", internship.ID), http.MethodPost)
	require.Equal(t, http.StatusCreated, w.Code, resp)
	url := fmt.Sprintf("/timesheets/%d", uint(resp["id"].(float64)))
	employer := token(t, database.TestUserCompany1.Username)

	t.Run("other company cannot review", func(t *testing.T) {
		w, _ := testutil.MakeJSONRequest(nil, token(t, database.TestUserCompany2.Username), r, url+"/approve", http.MethodPost)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("reject needs reason", func(t *testing.T) {
		w, _ := testutil.MakeJSONRequest(gin.H{}, employer, r, url+"/reject", http.MethodPost)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reject", func(t *testing.T) {
		w, resp := testutil.MakeJSONRequest(gin.H{"reason": "Tuesday is a public holiday"}, employer, r, url+"/reject", http.MethodPost)
		require.Equal(t, http.StatusOK, w.Code, resp)
		assert.Equal(t, model.TimesheetRejected, resp["status"])
		assert.Equal(t, "Tuesday is a public holiday", resp["reason"])
	})

	t.Run("approve rejected", func(t *testing.T) {
		w, _ := testutil.MakeJSONRequest(nil, employer, r, url+"/approve", http.MethodPost)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("resubmit", func(t *testing.T) {
		body := gin.H{"entries": []gin.H{{"date": day(week, 0), "hours": 8}, {"date": day(week, 2), "hours": 7}}}
		w, resp := testutil.MakeJSONRequest(body, token(t, student.Username), r, url+"/resubmit", http.MethodPost)
		require.Equal(t, http.StatusOK, w.Code, resp)
		assert.Equal(t, model.TimesheetSubmitted, resp["status"])
		assert.EqualValues(t, 15, resp["total_hours"])
		assert.Empty(t, resp["reason"])

		var entries int64
		require.NoError(t, testDB.Model(&model.TimesheetEntry{}).Where("timesheet_id = ?", uint(resp["id"].(float64))).Count(&entries).Error)
		assert.EqualValues(t, 2, entries)
	})

	t.Run("resubmit while submitted", func(t *testing.T) {
		body := gin.H{"entries": []gin.H{{"date": day(week, 0), "hours": 8}}}
		w, _ := testutil.MakeJSONRequest(body, token(t, student.Username), r, url+"/resubmit", http.MethodPost)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("approve", func(t *testing.T) {
		w, resp := testutil.MakeJSONRequest(nil, employer, r, url+"/approve", http.MethodPost)
		require.Equal(t, http.StatusOK, w.Code, resp)
		assert.Equal(t, model.TimesheetApproved, resp["status"])
		assert.NotEmpty(t, resp["reviewed_at"])
	})

	t.Run("history", func(t *testing.T) {
		w, resp := testutil.MakeJSONRequest(nil, token(t, student.Username), r, url, http.MethodGet)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, resp["history"], 4)
		assert.Len(t, resp["entries"], 2)
	})

	assert.Equal(t, []string{
		"timesheet.submitted", "timesheet.rejected", "timesheet.submitted", "timesheet.approved",
	}, rec.Types())

	var reviewed int64
	require.NoError(t, testDB.Model(&model.Notification{}).
		Where("user_id = ? AND type = ?", student.ID, model.NotifyTimesheetReviewed).
		Count(&reviewed).Error)
	assert.EqualValues(t, 2, reviewed)
}

func TestListTimesheets(t *testing.T) {
	r := newRouter(nil)
	student, internship := newIntern(t, model.InternshipActive)
	url := fmt.Sprintf("/internships/%d/timesheets", internship.ID)
	week := lastWeek()

	for _, w := range []time.Time{week.AddDate(0, 0, -7), week} {
		rec, resp := testutil.MakeJSONRequest(sheetBody(w, 8), token(t, student.Username), r, url, http.MethodPost)
		require.Equal(t, http.StatusCreated, rec.Code, resp)
	}

	t.Run("latest week first", func(t *testing.T) {
		rec, resp := testutil.MakeJSONRequest(nil, token(t, database.TestUserCompany1.Username), r, url, http.MethodGet)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 2, resp["total"])
		data := resp["data"].([]interface{})
		require.Len(t, data, 2)
		first := data[0].(map[string]interface{})
		assert.Contains(t, first["period_start"], week.Format(time.DateOnly))
	})

	t.Run("paginated", func(t *testing.T) {
		rec, resp := testutil.MakeJSONRequest(nil, token(t, student.Username), r, url+"?limit=1&page=2", http.MethodGet)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 2, resp["total"])
		assert.Len(t, resp["data"], 1)
	})

	t.Run("outsider", func(t *testing.T) {
		rec, _ := testutil.MakeJSONRequest(nil, token(t, database.TestUserStudent2.Username), r, url, http.MethodGet)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
