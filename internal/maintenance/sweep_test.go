package maintenance

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/database"
	"InternHub-backend/internal/events"
	"InternHub-backend/internal/model"
)

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	teardown, db, err := database.GetTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}
	testDB = db

	code := m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("could not teardown postgres container: %v", err)
	}
	if code != 0 {
		log.Fatalf("tests failed with code %d", code)
	}
}

func date(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// offeredApplication stores a fresh student's application to job with an
// offer made at offeredAt.
func offeredApplication(t *testing.T, job model.Job, offeredAt time.Time, start, end *time.Time) model.Application {
	t.Helper()
	student, err := database.CreateTestUser(testDB, model.RoleStudent, "")
	require.NoError(t, err)

	app := model.NewApplication(job.ID, student.ID, "hello", nil, offeredAt)
	_, err = app.Shortlist(offeredAt, database.TestUserCompany1.ID)
	require.NoError(t, err)
	_, err = app.MakeOffer(model.OfferTerms{StartDate: start, EndDate: end, Allowance: "RM1000"}, offeredAt, database.TestUserCompany1.ID)
	require.NoError(t, err)
	require.NoError(t, testDB.Create(&app).Error)
	return app
}

// internship stores an accepted application and its internship.
func internship(t *testing.T, job model.Job, start, end time.Time, status string) model.Internship {
	t.Helper()
	now := time.Now().UTC()
	app := offeredApplication(t, job, now, &start, &end)
	_, err := app.Accept(now, app.StudentID)
	require.NoError(t, err)
	require.NoError(t, testDB.Model(&app).Select("status", "status_code", "responded_at").Updates(&app).Error)

	app.Job = &job
	in, err := model.NewInternship(&app, now)
	require.NoError(t, err)
	if status == model.InternshipActive {
		_, err := in.Start(start)
		require.NoError(t, err)
	}
	require.NoError(t, testDB.Create(&in).Error)
	return in
}

func TestSweep(t *testing.T) {
	now := time.Now().UTC()
	company := database.TestCompany1

	expired, err := database.CreateTestJob(testDB, company.ID, model.JobActive)
	require.NoError(t, err)
	require.NoError(t, testDB.Model(&expired).Update("expires_at", now.Add(-time.Hour)).Error)

	live, err := database.CreateTestJob(testDB, company.ID, model.JobActive)
	require.NoError(t, err)

	overdue := offeredApplication(t, live, now.Add(-8*24*time.Hour), date(now.AddDate(0, 1, 0)), date(now.AddDate(0, 4, 0)))
	fresh := offeredApplication(t, live, now.Add(-time.Hour), date(now.AddDate(0, 1, 0)), date(now.AddDate(0, 4, 0)))

	due := internship(t, live, *date(now.AddDate(0, 0, -1)), *date(now.AddDate(0, 3, 0)), model.InternshipUpcoming)
	later := internship(t, live, *date(now.AddDate(0, 0, 7)), *date(now.AddDate(0, 3, 0)), model.InternshipUpcoming)
	finished := internship(t, live, *date(now.AddDate(0, -3, 0)), *date(now.AddDate(0, 0, -2)), model.InternshipActive)

	rec := &events.Recorder{}
	sweeper := NewSweeper(testDB, rec)

	res, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.JobsClosed)
	assert.Equal(t, 1, res.OffersExpired)
	assert.Equal(t, 1, res.InternshipsStarted)
	assert.Equal(t, 1, res.InternshipsCompleted)
	assert.Zero(t, res.Failed)
	assert.ElementsMatch(t, []string{"job.closed", "application.expired", "internship.active", "internship.completed"}, rec.Types())

	t.Run("records moved", func(t *testing.T) {
		var job model.Job
		require.NoError(t, testDB.First(&job, expired.ID).Error)
		assert.Equal(t, model.JobClosed, job.Status)
		assert.Equal(t, 3, job.StatusCode)
		assert.NotNil(t, job.ClosedAt)

		require.NoError(t, testDB.First(&job, live.ID).Error)
		assert.Equal(t, model.JobActive, job.Status)

		var app model.Application
		require.NoError(t, testDB.First(&app, overdue.ID).Error)
		assert.Equal(t, model.ApplicationExpired, app.Status)
		assert.Equal(t, 7, app.StatusCode)
		require.NoError(t, testDB.First(&app, fresh.ID).Error)
		assert.Equal(t, model.ApplicationPendingAcceptance, app.Status)

		var in model.Internship
		require.NoError(t, testDB.First(&in, due.ID).Error)
		assert.Equal(t, model.InternshipActive, in.Status)
		require.NoError(t, testDB.First(&in, later.ID).Error)
		assert.Equal(t, model.InternshipUpcoming, in.Status)
		require.NoError(t, testDB.First(&in, finished.ID).Error)
		assert.Equal(t, model.InternshipCompleted, in.Status)
	})

	t.Run("history and notifications", func(t *testing.T) {
		history, err := database.History(testDB.DB, model.OwnerApplication, overdue.ID)
		require.NoError(t, err)
		require.NotEmpty(t, history)
		last := history[len(history)-1]
		assert.Equal(t, model.ApplicationExpired, last.To)
		assert.Nil(t, last.ChangedBy)

		var count int64
		require.NoError(t, testDB.Model(&model.Notification{}).
			Where("user_id = ? AND ref_type = ? AND ref_id = ?", overdue.StudentID, model.OwnerApplication, overdue.ID).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("second pass is a no-op", func(t *testing.T) {
		res, err := sweeper.Sweep(context.Background(), now)
		require.NoError(t, err)
		assert.Zero(t, res.Total())
	})
}

func TestDrainClearsBacklogBeyondOneBatch(t *testing.T) {
	now := time.Now().UTC()
	ids := make([]uint, 0, 3)
	for i := 0; i < 3; i++ {
		job, err := database.CreateTestJob(testDB, database.TestCompany1.ID, model.JobActive)
		require.NoError(t, err)
		require.NoError(t, testDB.Model(&job).Update("expires_at", now.Add(-time.Hour)).Error)
		ids = append(ids, job.ID)
	}

	sweeper := NewSweeper(testDB, nil)
	sweeper.BatchSize = 1
	sweeper.Now = func() time.Time { return now }

	first, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.JobsClosed)

	res, passes := sweeper.Drain(context.Background())
	assert.GreaterOrEqual(t, res.JobsClosed, 2)
	assert.GreaterOrEqual(t, passes, 3)
	assert.Zero(t, res.Failed)

	var open int64
	require.NoError(t, testDB.Model(&model.Job{}).Where("id IN ? AND status = ?", ids, model.JobActive).Count(&open).Error)
	assert.Zero(t, open)
}

func TestDrainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, passes := NewSweeper(testDB, nil).Drain(ctx)
	assert.Zero(t, passes)
	assert.Zero(t, res.Total())
}

func TestSweepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSweeper(testDB, nil).Sweep(ctx, time.Now().UTC())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunDisabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewSweeper(testDB, nil).Run(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with zero interval should return immediately")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(testDB, nil).Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
