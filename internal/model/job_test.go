package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestJob(t *testing.T) Job {
	t.Helper()
	job, err := NewJob(1, EditableJobInfo{Title: "  Backend Intern ", Tags: []string{" Go "}}, testNow, uuid.New())
	require.NoError(t, err)
	job.ID = 10
	return job
}

func TestNewJob_Defaults(t *testing.T) {
	job := newTestJob(t)

	assert.Equal(t, JobDraft, job.Status)
	assert.Equal(t, 4, job.StatusCode)
	assert.Equal(t, "Backend Intern", job.Title)
	assert.Equal(t, JobTypeInternship, job.Type)
	assert.Equal(t, 1, job.Positions)
	assert.Equal(t, []string{"go"}, []string(job.Tags))
	require.Len(t, job.History, 1)
	assert.Equal(t, JobDraft, job.History[0].To)
}

func TestNewJob_InvalidInput(t *testing.T) {
	_, err := NewJob(1, EditableJobInfo{Title: " "}, testNow, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewJob(1, EditableJobInfo{Title: "x", Type: "volunteer"}, testNow, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJob_ApproveSetsExpiry(t *testing.T) {
	job := newTestJob(t)
	admin := uuid.New()

	_, err := job.Submit(testNow, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, JobPending, job.Status)
	assert.Equal(t, 0, job.StatusCode)

	approveAt := testNow.Add(time.Hour)
	change, err := job.Approve(approveAt, admin)
	require.NoError(t, err)

	assert.Equal(t, JobActive, job.Status)
	assert.Equal(t, 1, job.StatusCode)
	require.NotNil(t, job.ApprovedAt)
	require.NotNil(t, job.ExpiresAt)
	assert.Equal(t, approveAt, *job.ApprovedAt)
	assert.Equal(t, approveAt.Add(30*24*time.Hour), *job.ExpiresAt)
	assert.Equal(t, JobPending, change.From)
	assert.Equal(t, admin, *change.ChangedBy)
	assert.Equal(t, uint(10), change.OwnerID)
	assert.Equal(t, OwnerJob, change.OwnerType)
}

func TestJob_RejectNeedsReason(t *testing.T) {
	job := newTestJob(t)
	_, err := job.Submit(testNow, uuid.Nil)
	require.NoError(t, err)

	_, err = job.Reject(testNow, uuid.New(), "  ")
	assert.ErrorIs(t, err, ErrReasonRequired)
	assert.Equal(t, JobPending, job.Status)

	_, err = job.Reject(testNow, uuid.New(), "missing salary")
	require.NoError(t, err)
	assert.Equal(t, JobRejected, job.Status)
	assert.True(t, job.Editable())

	_, err = job.Submit(testNow, uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, job.Reason)
}

func TestJob_InvalidTransitions(t *testing.T) {
	job := newTestJob(t)

	_, err := job.Approve(testNow, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = job.Close(testNow, uuid.New(), "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, JobDraft, job.Status)
	assert.Equal(t, 4, job.StatusCode)
}

func TestJob_Expire(t *testing.T) {
	job := newTestJob(t)
	_, _ = job.Submit(testNow, uuid.Nil)
	_, err := job.Approve(testNow, uuid.New())
	require.NoError(t, err)

	assert.True(t, job.IsOpen(testNow.Add(time.Hour)))

	_, err = job.Expire(testNow.Add(24 * time.Hour))
	assert.ErrorIs(t, err, ErrNotDue)

	later := testNow.Add(JobListingLifetime)
	assert.False(t, job.IsOpen(later))
	change, err := job.Expire(later)
	require.NoError(t, err)
	assert.Equal(t, JobClosed, job.Status)
	assert.Equal(t, 3, job.StatusCode)
	assert.Nil(t, change.ChangedBy)
	assert.Equal(t, later, *job.ClosedAt)

	_, err = job.Expire(later)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestJob_ToJobResponseMarksApplied(t *testing.T) {
	student := User{ID: uuid.New(), Role: RoleStudent}
	job := newTestJob(t)
	job.Applications = []Application{{StudentID: student.ID}}

	assert.True(t, job.ToJobResponse(student).Applied)
	assert.False(t, job.ToJobResponse(User{ID: uuid.New(), Role: RoleStudent}).Applied)
	assert.False(t, job.ToJobResponse(User{ID: student.ID, Role: RoleAdmin}).Applied)
}

func TestUser_PasswordNeverSerialised(t *testing.T) {
	user := User{ID: uuid.New(), Username: "alice", Password: "$2a$10$hash", Role: RoleStudent}
	b, err := json.Marshal(Student{UserID: user.ID, User: user})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "password")
	assert.NotContains(t, string(b), "$2a$10$hash")
}
