// Package notify builds and stores in-app notifications.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"InternHub-backend/internal/model"
)

var ownerLabels = map[string]string{
	model.OwnerCompany:      "Company",
	model.OwnerVerification: "Verification",
	model.OwnerJob:          "Job listing",
	model.OwnerApplication:  "Application",
	model.OwnerInternship:   "Internship",
	model.OwnerTimesheet:    "Timesheet",
	model.OwnerRequest:      "Request",
}

// New returns a notification for user about the record refType/refID.
func New(user uuid.UUID, kind, title, message, refType string, refID uint) model.Notification {
	return model.Notification{
		UserID:  user,
		Type:    kind,
		Title:   title,
		Message: message,
		RefType: refType,
		RefID:   refID,
	}
}

// ForChange describes a committed status change to user.
func ForChange(user uuid.UUID, kind string, change model.StatusChange) model.Notification {
	label, ok := ownerLabels[change.OwnerType]
	if !ok {
		label = change.OwnerType
	}
	status := strings.ReplaceAll(change.To, "_", " ")

	message := fmt.Sprintf("%s #%d is now %s.", label, change.OwnerID, status)
	if change.Reason != "" {
		message += " Reason: " + change.Reason
	}

	n := New(user, kind, fmt.Sprintf("%s %s", label, status), message, change.OwnerType, change.OwnerID)
	return WithData(n, map[string]any{
		"from":        change.From,
		"to":          change.To,
		"status_code": change.Code,
	})
}

// WithData attaches a JSON payload. Values that cannot be encoded are dropped.
func WithData(n model.Notification, data map[string]any) model.Notification {
	raw, err := json.Marshal(data)
	if err != nil {
		return n
	}
	n.Data = datatypes.JSON(raw)
	return n
}

// Send inserts notes in tx. Notes addressed to nobody are skipped.
func Send(tx *gorm.DB, notes ...model.Notification) error {
	batch := make([]model.Notification, 0, len(notes))
	for _, n := range notes {
		if n.UserID == uuid.Nil {
			continue
		}
		batch = append(batch, n)
	}
	if len(batch) == 0 {
		return nil
	}
	if err := tx.Create(&batch).Error; err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	return nil
}
