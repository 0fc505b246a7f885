package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Internship states.
const (
	InternshipUpcoming   = "upcoming"
	InternshipActive     = "active"
	InternshipTerminated = "terminated"
	InternshipCompleted  = "completed"
)

var internshipTransitions = transitionTable{
	owner: OwnerInternship,
	codes: map[string]int{
		InternshipUpcoming:   0,
		InternshipActive:     1,
		InternshipTerminated: 2,
		InternshipCompleted:  3,
	},
	next: map[string][]string{
		InternshipUpcoming: {InternshipActive, InternshipTerminated},
		InternshipActive:   {InternshipCompleted, InternshipTerminated},
	},
}

// InternshipStatusCode returns the numeric code of an internship status.
func InternshipStatusCode(status string) int { return internshipTransitions.Code(status) }

// Internship is the employment record created when an offer is accepted.
type Internship struct {
	ID            uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicationID uint         `gorm:"not null;uniqueIndex" json:"application_id"`
	Application   *Application `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"-"`
	JobID         uint         `gorm:"not null;index" json:"job_id"`
	Job           *Job         `gorm:"foreignKey:JobID" json:"job,omitempty"`
	CompanyID     uint         `gorm:"not null;index" json:"company_id"`
	Company       *Company     `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	StudentID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"student_id"`
	Student       *Student     `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`

	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`
	Allowance string    `gorm:"type:text" json:"allowance"`

	Status       string     `gorm:"type:text;not null;index" json:"status"`
	StatusCode   int        `gorm:"not null" json:"status_code"`
	StartedAt    *time.Time `gorm:"type:timestamp" json:"started_at,omitempty"`
	CompletedAt  *time.Time `gorm:"type:timestamp" json:"completed_at,omitempty"`
	TerminatedAt *time.Time `gorm:"type:timestamp" json:"terminated_at,omitempty"`
	Reason       string     `gorm:"type:text" json:"reason,omitempty"`

	History   []StatusChange `gorm:"polymorphic:Owner;polymorphicValue:internship" json:"history,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewInternship derives the employment record from an accepted application.
// The application must carry its job so the company is known.
func NewInternship(app *Application, now time.Time) (Internship, error) {
	if app.Status != ApplicationAccepted {
		return Internship{}, fmt.Errorf("%w: application %d is %s", ErrInvalidTransition, app.ID, app.Status)
	}
	if app.Job == nil {
		return Internship{}, fmt.Errorf("%w: application %d has no job loaded", ErrInvalidInput, app.ID)
	}
	if err := app.Offer.Validate(); err != nil {
		return Internship{}, err
	}
	return Internship{
		ApplicationID: app.ID,
		JobID:         app.JobID,
		CompanyID:     app.Job.CompanyID,
		StudentID:     app.StudentID,
		StartDate:     *app.Offer.StartDate,
		EndDate:       *app.Offer.EndDate,
		Allowance:     app.Offer.Allowance,
		Status:        InternshipUpcoming,
		StatusCode:    internshipTransitions.Code(InternshipUpcoming),
		History:       []StatusChange{internshipTransitions.initial(InternshipUpcoming, now, actor(app.StudentID))},
	}, nil
}

// IsParticipant reports whether user is the intern or the hiring company's owner.
func (i *Internship) IsParticipant(user User) bool {
	if user.ID == i.StudentID {
		return true
	}
	return i.Company != nil && i.Company.OwnerUserID == user.ID
}

// IsOpen reports whether requests and timesheets may still be filed.
func (i *Internship) IsOpen() bool {
	return i.Status == InternshipUpcoming || i.Status == InternshipActive
}

// IsStartDue reports whether an upcoming internship reached its start date.
func (i *Internship) IsStartDue(now time.Time) bool {
	return i.Status == InternshipUpcoming && !now.Before(i.StartDate)
}

// IsCompletionDue reports whether an active internship is past its end
// date. The end date itself is the last working day.
func (i *Internship) IsCompletionDue(now time.Time) bool {
	return i.Status == InternshipActive && !now.Before(i.EndDate.AddDate(0, 0, 1))
}

func (i *Internship) move(to string, now time.Time, by *uuid.UUID, reason string) (StatusChange, error) {
	change, err := internshipTransitions.change(i.ID, i.Status, to, now, by, reason)
	if err != nil {
		return change, err
	}
	i.Status, i.StatusCode = to, change.Code
	return change, nil
}

// Start activates an upcoming internship on its start date.
func (i *Internship) Start(now time.Time) (StatusChange, error) {
	if i.Status == InternshipUpcoming && !i.IsStartDue(now) {
		return StatusChange{}, ErrNotDue
	}
	change, err := i.move(InternshipActive, now, nil, "")
	if err != nil {
		return change, err
	}
	i.StartedAt = timePtr(now)
	change.Columns = []string{"started_at"}
	return change, nil
}

// Complete closes an active internship after its end date.
func (i *Internship) Complete(now time.Time) (StatusChange, error) {
	if i.Status == InternshipActive && !i.IsCompletionDue(now) {
		return StatusChange{}, ErrNotDue
	}
	change, err := i.move(InternshipCompleted, now, nil, "")
	if err != nil {
		return change, err
	}
	i.CompletedAt = timePtr(now)
	change.Columns = []string{"completed_at"}
	return change, nil
}

// Terminate ends the internship early.
func (i *Internship) Terminate(now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	change, err := i.move(InternshipTerminated, now, actor(by), reason)
	if err != nil {
		return change, err
	}
	i.TerminatedAt = timePtr(now)
	i.Reason = reason
	change.Columns = []string{"terminated_at", "reason"}
	return change, nil
}

// Extend pushes the end date later. It does not change status.
func (i *Internship) Extend(newEnd time.Time) error {
	if !i.IsOpen() {
		return fmt.Errorf("%w: internship %d is %s", ErrInvalidTransition, i.ID, i.Status)
	}
	if !newEnd.After(i.EndDate) {
		return fmt.Errorf("%w: new end date must be after %s", ErrInvalidInput, i.EndDate.Format(time.DateOnly))
	}
	i.EndDate = newEnd
	return nil
}
