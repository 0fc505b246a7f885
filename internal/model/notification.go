package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification types
const (
	NotifyVerificationReviewed = "verification_reviewed"
	NotifyCompanyStatus        = "company_status"
	NotifyJobReviewed          = "job_reviewed"
	NotifyJobClosed            = "job_closed"
	NotifyApplicationReceived  = "application_received"
	NotifyApplicationUpdated   = "application_updated"
	NotifyOfferReceived        = "offer_received"
	NotifyOfferAnswered        = "offer_answered"
	NotifyInternshipUpdated    = "internship_updated"
	NotifyTimesheetSubmitted   = "timesheet_submitted"
	NotifyTimesheetReviewed    = "timesheet_reviewed"
	NotifyRequestReceived      = "request_received"
	NotifyRequestReviewed      = "request_reviewed"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_notification_user_read" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Type      string         `gorm:"type:text;not null" json:"type"`
	Title     string         `gorm:"type:text;not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	RefType   string         `gorm:"type:text" json:"ref_type,omitempty"`
	RefID     uint           `json:"ref_id,omitempty"`
	Data      datatypes.JSON `json:"data,omitempty"`
	Read      bool           `gorm:"not null;default:false;index:idx_notification_user_read" json:"read"`
	ReadAt    *time.Time     `gorm:"type:timestamp" json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
