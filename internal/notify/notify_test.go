package notify

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/model"
)

func TestForChange(t *testing.T) {
	user := uuid.New()
	n := ForChange(user, model.NotifyOfferReceived, model.StatusChange{
		OwnerType: model.OwnerApplication,
		OwnerID:   9,
		From:      model.ApplicationShortlisted,
		To:        model.ApplicationPendingAcceptance,
		Code:      4,
	})

	assert.Equal(t, user, n.UserID)
	assert.Equal(t, model.NotifyOfferReceived, n.Type)
	assert.Equal(t, "Application pending acceptance", n.Title)
	assert.Equal(t, "Application #9 is now pending acceptance.", n.Message)
	assert.Equal(t, model.OwnerApplication, n.RefType)
	assert.Equal(t, uint(9), n.RefID)

	var data map[string]any
	require.NoError(t, json.Unmarshal(n.Data, &data))
	assert.Equal(t, "shortlisted", data["from"])
	assert.Equal(t, float64(4), data["status_code"])
}

func TestForChangeWithReason(t *testing.T) {
	n := ForChange(uuid.New(), model.NotifyJobReviewed, model.StatusChange{
		OwnerType: model.OwnerJob,
		OwnerID:   3,
		To:        model.JobRejected,
		Reason:    "missing salary",
	})
	assert.Equal(t, "Job listing rejected", n.Title)
	assert.Contains(t, n.Message, "Reason: missing salary")
}

func TestSendSkipsAnonymous(t *testing.T) {
	// nil tx is never touched when every note is addressed to nobody
	assert.NoError(t, Send(nil, New(uuid.Nil, model.NotifyJobClosed, "x", "", "", 0)))
}
