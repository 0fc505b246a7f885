package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Application states.
const (
	ApplicationNew               = "new"
	ApplicationShortlisted       = "shortlisted"
	ApplicationRejected          = "rejected"
	ApplicationWithdrawn         = "withdrawn"
	ApplicationPendingAcceptance = "pending_acceptance"
	ApplicationAccepted          = "accepted"
	ApplicationDeclined          = "declined"
	ApplicationExpired           = "expired"
)

// OfferLifetime is how long a student has to answer an offer.
const OfferLifetime = 7 * 24 * time.Hour

var applicationTransitions = transitionTable{
	owner: OwnerApplication,
	codes: map[string]int{
		ApplicationNew:               0,
		ApplicationShortlisted:       1,
		ApplicationRejected:          2,
		ApplicationWithdrawn:         3,
		ApplicationPendingAcceptance: 4,
		ApplicationAccepted:          5,
		ApplicationDeclined:          6,
		ApplicationExpired:           7,
	},
	next: map[string][]string{
		ApplicationNew:               {ApplicationShortlisted, ApplicationRejected, ApplicationWithdrawn},
		ApplicationShortlisted:       {ApplicationPendingAcceptance, ApplicationRejected, ApplicationWithdrawn},
		ApplicationPendingAcceptance: {ApplicationAccepted, ApplicationDeclined, ApplicationExpired},
	},
}

// ApplicationStatusCode returns the numeric code of an application status.
func ApplicationStatusCode(status string) int { return applicationTransitions.Code(status) }

// OfferTerms are the conditions a company attaches to an offer.
type OfferTerms struct {
	StartDate *time.Time `gorm:"type:date" json:"start_date,omitempty"`
	EndDate   *time.Time `gorm:"type:date" json:"end_date,omitempty"`
	Allowance string     `gorm:"type:text" json:"allowance,omitempty"`
	Note      string     `gorm:"type:text" json:"note,omitempty"`
}

// Validate requires both dates with the end after the start.
func (o OfferTerms) Validate() error {
	if o.StartDate == nil || o.EndDate == nil {
		return fmt.Errorf("%w: offer start and end dates are required", ErrInvalidInput)
	}
	if !o.EndDate.After(*o.StartDate) {
		return fmt.Errorf("%w: offer end date must be after start date", ErrInvalidInput)
	}
	return nil
}

// Application is a student's application to a job listing.
type Application struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID     uint      `gorm:"not null;uniqueIndex:idx_application_student_job" json:"job_id"`
	Job       *Job      `gorm:"foreignKey:JobID" json:"job,omitempty"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_application_student_job;index" json:"student_id"`
	Student   *Student  `gorm:"foreignKey:StudentID;references:UserID;constraint:OnDelete:CASCADE" json:"student,omitempty"`

	CoverLetter string  `gorm:"type:text" json:"cover_letter"`
	ResumeKey   *string `gorm:"type:text" json:"resume_key"`

	Status         string     `gorm:"type:text;not null;index" json:"status"`
	StatusCode     int        `gorm:"not null" json:"status_code"`
	AppliedAt      time.Time  `gorm:"type:timestamp;not null" json:"applied_at"`
	ShortlistedAt  *time.Time `gorm:"type:timestamp" json:"shortlisted_at,omitempty"`
	OfferedAt      *time.Time `gorm:"type:timestamp" json:"offered_at,omitempty"`
	OfferExpiresAt *time.Time `gorm:"type:timestamp;index" json:"offer_expires_at,omitempty"`
	RespondedAt    *time.Time `gorm:"type:timestamp" json:"responded_at,omitempty"`
	Reason         string     `gorm:"type:text" json:"reason,omitempty"`
	Offer          OfferTerms `gorm:"embedded;embeddedPrefix:offer_" json:"offer"`

	History   []StatusChange `gorm:"polymorphic:Owner;polymorphicValue:application" json:"history,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewApplication returns a fresh application of student to job.
func NewApplication(jobID uint, student uuid.UUID, coverLetter string, resumeKey *string, now time.Time) Application {
	return Application{
		JobID:       jobID,
		StudentID:   student,
		CoverLetter: strings.TrimSpace(coverLetter),
		ResumeKey:   resumeKey,
		Status:      ApplicationNew,
		StatusCode:  applicationTransitions.Code(ApplicationNew),
		AppliedAt:   now,
		History:     []StatusChange{applicationTransitions.initial(ApplicationNew, now, actor(student))},
	}
}

// IsOfferOverdue reports whether a pending offer passed its deadline.
func (a *Application) IsOfferOverdue(now time.Time) bool {
	return a.Status == ApplicationPendingAcceptance && a.OfferExpiresAt != nil && !now.Before(*a.OfferExpiresAt)
}

func (a *Application) move(to string, now time.Time, by *uuid.UUID, reason string) (StatusChange, error) {
	change, err := applicationTransitions.change(a.ID, a.Status, to, now, by, reason)
	if err != nil {
		return change, err
	}
	a.Status, a.StatusCode = to, change.Code
	return change, nil
}

// Shortlist moves a new application forward.
func (a *Application) Shortlist(now time.Time, by uuid.UUID) (StatusChange, error) {
	change, err := a.move(ApplicationShortlisted, now, actor(by), "")
	if err != nil {
		return change, err
	}
	a.ShortlistedAt = timePtr(now)
	change.Columns = []string{"shortlisted_at"}
	return change, nil
}

// Reject turns the application down. The reason is optional.
func (a *Application) Reject(now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	change, err := a.move(ApplicationRejected, now, actor(by), reason)
	if err != nil {
		return change, err
	}
	a.Reason = reason
	change.Columns = []string{"reason"}
	return change, nil
}

// Withdraw is the student pulling out before an offer is made.
func (a *Application) Withdraw(now time.Time, by uuid.UUID) (StatusChange, error) {
	change, err := a.move(ApplicationWithdrawn, now, actor(by), "")
	if err != nil {
		return change, err
	}
	a.RespondedAt = timePtr(now)
	change.Columns = []string{"responded_at"}
	return change, nil
}

// MakeOffer attaches terms to a shortlisted application and starts the
// OfferLifetime countdown.
func (a *Application) MakeOffer(terms OfferTerms, now time.Time, by uuid.UUID) (StatusChange, error) {
	if err := terms.Validate(); err != nil {
		return StatusChange{}, err
	}
	change, err := a.move(ApplicationPendingAcceptance, now, actor(by), "")
	if err != nil {
		return change, err
	}
	a.Offer = terms
	a.OfferedAt = timePtr(now)
	a.OfferExpiresAt = timePtr(now.Add(OfferLifetime))
	change.Columns = []string{"offered_at", "offer_expires_at", "offer_start_date", "offer_end_date", "offer_allowance", "offer_note"}
	return change, nil
}

// Accept takes the offer. It fails once the offer is overdue even if the
// sweeper has not expired it yet.
func (a *Application) Accept(now time.Time, by uuid.UUID) (StatusChange, error) {
	if a.IsOfferOverdue(now) {
		return StatusChange{}, fmt.Errorf("%w: offer expired at %s", ErrInvalidTransition, a.OfferExpiresAt.Format(time.RFC3339))
	}
	return a.respond(ApplicationAccepted, now, actor(by), "")
}

// Decline refuses the offer.
func (a *Application) Decline(now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	return a.respond(ApplicationDeclined, now, actor(by), reason)
}

// Expire lapses an unanswered offer after its deadline.
func (a *Application) Expire(now time.Time) (StatusChange, error) {
	if a.Status == ApplicationPendingAcceptance && !a.IsOfferOverdue(now) {
		return StatusChange{}, ErrNotDue
	}
	return a.respond(ApplicationExpired, now, nil, "offer expired")
}

func (a *Application) respond(to string, now time.Time, by *uuid.UUID, reason string) (StatusChange, error) {
	change, err := a.move(to, now, by, reason)
	if err != nil {
		return change, err
	}
	a.RespondedAt = timePtr(now)
	a.Reason = reason
	change.Columns = []string{"responded_at", "reason"}
	return change, nil
}
