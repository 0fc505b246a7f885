package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompany_Transitions(t *testing.T) {
	admin := uuid.New()
	c := NewCompany(uuid.New(), EditableCompanyInfo{Name: "Acme"}, testNow)
	c.ID = 1
	assert.Equal(t, 0, c.StatusCode)
	assert.False(t, c.IsActive())

	_, err := c.Suspend(testNow, admin, "spam")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	change, err := c.Approve(testNow, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"approved_at"}, change.Columns)
	assert.True(t, c.IsActive())

	_, err = c.Suspend(testNow, admin, "")
	assert.ErrorIs(t, err, ErrReasonRequired)
	_, err = c.Suspend(testNow, admin, "spam")
	require.NoError(t, err)
	assert.Equal(t, 3, c.StatusCode)

	_, err = c.Reinstate(testNow, admin)
	require.NoError(t, err)
	assert.Equal(t, CompanyApproved, c.Status)
}

func TestCompany_RejectAndReopen(t *testing.T) {
	c := NewCompany(uuid.New(), EditableCompanyInfo{}, testNow)
	_, err := c.Reject(testNow, uuid.New(), "blurry scan")
	require.NoError(t, err)
	assert.Equal(t, 2, c.StatusCode)

	_, err = c.Reopen(testNow, c.OwnerUserID)
	require.NoError(t, err)
	assert.Equal(t, CompanyPending, c.Status)
}

func TestValidateDocuments(t *testing.T) {
	err := ValidateDocuments([]VerificationDocument{{Kind: DocumentOther, StorageKey: "k"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = ValidateDocuments([]VerificationDocument{{Kind: "passport", StorageKey: "k"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = ValidateDocuments([]VerificationDocument{{Kind: " SSM ", StorageKey: ""}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	docs := []VerificationDocument{{Kind: " SSM ", StorageKey: "k1"}, {Kind: DocumentOther, StorageKey: "k2"}}
	require.NoError(t, ValidateDocuments(docs))
	assert.Equal(t, DocumentSSM, docs[0].Kind)
}

func TestVerification_Review(t *testing.T) {
	admin := uuid.New()
	v, err := NewVerification(1, []VerificationDocument{{Kind: DocumentBusinessLicense, StorageKey: "k"}}, "", testNow, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, VerificationPending, v.Status)

	_, err = v.Reject(testNow, admin, "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	_, err = v.Approve(testNow, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, v.StatusCode)
	assert.Equal(t, admin, *v.ReviewedBy)

	_, err = v.Reject(testNow, admin, "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, -1, JobStatusCode("unknown"))
	assert.Equal(t, 4, JobStatusCode(JobDraft))
	assert.Equal(t, 1, CompanyStatusCode(CompanyApproved))
	assert.Equal(t, 7, ApplicationStatusCode(ApplicationExpired))
	assert.Equal(t, 2, InternshipStatusCode(InternshipTerminated))
	assert.Equal(t, 2, TimesheetStatusCode(TimesheetRejected))
	assert.Equal(t, 0, RequestStatusCode(RequestPending))
}
