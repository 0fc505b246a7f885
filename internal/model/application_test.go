package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTerms() OfferTerms {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return OfferTerms{StartDate: &start, EndDate: &end, Allowance: "RM1200"}
}

func offeredApplication(t *testing.T) Application {
	t.Helper()
	app := NewApplication(3, uuid.New(), " hire me ", nil, testNow)
	app.ID = 7
	_, err := app.Shortlist(testNow, uuid.New())
	require.NoError(t, err)
	_, err = app.MakeOffer(testTerms(), testNow, uuid.New())
	require.NoError(t, err)
	return app
}

func TestNewApplication(t *testing.T) {
	app := NewApplication(3, uuid.New(), " hire me ", nil, testNow)

	assert.Equal(t, ApplicationNew, app.Status)
	assert.Equal(t, 0, app.StatusCode)
	assert.Equal(t, "hire me", app.CoverLetter)
	assert.Equal(t, testNow, app.AppliedAt)
	require.Len(t, app.History, 1)
}

func TestApplication_OfferSetsDeadline(t *testing.T) {
	app := offeredApplication(t)

	assert.Equal(t, ApplicationPendingAcceptance, app.Status)
	assert.Equal(t, 4, app.StatusCode)
	require.NotNil(t, app.OfferExpiresAt)
	assert.Equal(t, app.OfferedAt.Add(7*24*time.Hour), *app.OfferExpiresAt)
	assert.Equal(t, "RM1200", app.Offer.Allowance)
}

func TestApplication_OfferRequiresDates(t *testing.T) {
	app := NewApplication(3, uuid.New(), "", nil, testNow)
	_, err := app.Shortlist(testNow, uuid.Nil)
	require.NoError(t, err)

	terms := testTerms()
	terms.EndDate = terms.StartDate
	_, err = app.MakeOffer(terms, testNow, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = app.MakeOffer(OfferTerms{}, testNow, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, ApplicationShortlisted, app.Status)
}

func TestApplication_OfferOnlyFromShortlisted(t *testing.T) {
	app := NewApplication(3, uuid.New(), "", nil, testNow)
	_, err := app.MakeOffer(testTerms(), testNow, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplication_AcceptAndDecline(t *testing.T) {
	app := offeredApplication(t)
	change, err := app.Accept(testNow.Add(time.Hour), app.StudentID)
	require.NoError(t, err)
	assert.Equal(t, ApplicationAccepted, app.Status)
	assert.Equal(t, 5, change.Code)
	assert.NotNil(t, app.RespondedAt)

	_, err = app.Decline(testNow, app.StudentID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	other := offeredApplication(t)
	_, err = other.Decline(testNow, other.StudentID, "found another")
	require.NoError(t, err)
	assert.Equal(t, 6, other.StatusCode)
}

func TestApplication_AcceptAfterDeadlineFails(t *testing.T) {
	app := offeredApplication(t)
	_, err := app.Accept(testNow.Add(OfferLifetime), app.StudentID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, ApplicationPendingAcceptance, app.Status)
}

func TestApplication_Expire(t *testing.T) {
	app := offeredApplication(t)

	_, err := app.Expire(testNow.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotDue)

	_, err = app.Expire(testNow.Add(OfferLifetime))
	require.NoError(t, err)
	assert.Equal(t, ApplicationExpired, app.Status)
	assert.Equal(t, 7, app.StatusCode)
}

func TestApplication_WithdrawAndReject(t *testing.T) {
	app := NewApplication(3, uuid.New(), "", nil, testNow)
	_, err := app.Withdraw(testNow, app.StudentID)
	require.NoError(t, err)
	assert.Equal(t, 3, app.StatusCode)

	_, err = app.Reject(testNow, uuid.New(), "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	other := NewApplication(3, uuid.New(), "", nil, testNow)
	_, err = other.Reject(testNow, uuid.New(), "")
	require.NoError(t, err)
	assert.Equal(t, ApplicationRejected, other.Status)

	offered := offeredApplication(t)
	_, err = offered.Withdraw(testNow, offered.StudentID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNewInternship_FromAcceptedApplication(t *testing.T) {
	app := offeredApplication(t)
	app.Job = &Job{ID: 3, CompanyID: 9}

	_, err := NewInternship(&app, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = app.Accept(testNow, app.StudentID)
	require.NoError(t, err)

	internship, err := NewInternship(&app, testNow)
	require.NoError(t, err)
	assert.Equal(t, uint(7), internship.ApplicationID)
	assert.Equal(t, uint(9), internship.CompanyID)
	assert.Equal(t, app.StudentID, internship.StudentID)
	assert.Equal(t, *app.Offer.StartDate, internship.StartDate)
	assert.Equal(t, InternshipUpcoming, internship.Status)
	assert.Equal(t, 0, internship.StatusCode)
}
