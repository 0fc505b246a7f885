package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Job listing states.
const (
	JobPending  = "pending"
	JobActive   = "active"
	JobRejected = "rejected"
	JobClosed   = "closed"
	JobDraft    = "draft"
)

// Job types
const (
	JobTypeInternship = "internship"
	JobTypePartTime   = "part-time"
	JobTypeFullTime   = "full-time"
)

// JobListingLifetime is how long an approved listing stays open.
const JobListingLifetime = 30 * 24 * time.Hour

var jobTransitions = transitionTable{
	owner: OwnerJob,
	codes: map[string]int{
		JobPending:  0,
		JobActive:   1,
		JobRejected: 2,
		JobClosed:   3,
		JobDraft:    4,
	},
	next: map[string][]string{
		JobDraft:    {JobPending},
		JobRejected: {JobPending},
		JobPending:  {JobActive, JobRejected},
		JobActive:   {JobClosed},
	},
}

// JobStatusCode returns the numeric code of a job status.
func JobStatusCode(status string) int { return jobTransitions.Code(status) }

// EditableJobInfo is the part of a listing its company may edit.
type EditableJobInfo struct {
	Title        string         `gorm:"type:text;not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Requirements string         `gorm:"type:text" json:"requirements"`
	Location     string         `gorm:"type:text" json:"location"`
	Type         string         `gorm:"type:text" json:"type"`
	Salary       string         `gorm:"type:text" json:"salary"`
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`
	Positions    int            `gorm:"not null;default:1" json:"positions"`
}

// Normalize trims and validates listing content.
func (info *EditableJobInfo) Normalize() error {
	info.Title = strings.TrimSpace(info.Title)
	if info.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	info.Type = strings.ToLower(strings.TrimSpace(info.Type))
	switch info.Type {
	case "":
		info.Type = JobTypeInternship
	case JobTypeInternship, JobTypePartTime, JobTypeFullTime:
	default:
		return fmt.Errorf("%w: unknown job type %q", ErrInvalidInput, info.Type)
	}
	if info.Positions < 0 {
		return fmt.Errorf("%w: positions must not be negative", ErrInvalidInput)
	}
	if info.Positions == 0 {
		info.Positions = 1
	}
	for i := range info.Tags {
		info.Tags[i] = strings.ToLower(strings.TrimSpace(info.Tags[i]))
	}
	return nil
}

// Job is a listing posted by a company.
type Job struct {
	ID        uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID uint     `gorm:"not null;index" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"company,omitempty"`
	EditableJobInfo

	Status      string     `gorm:"type:text;not null;index" json:"status"`
	StatusCode  int        `gorm:"not null" json:"status_code"`
	SubmittedAt *time.Time `gorm:"type:timestamp" json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `gorm:"type:timestamp" json:"approved_at,omitempty"`
	ExpiresAt   *time.Time `gorm:"type:timestamp;index" json:"expires_at,omitempty"`
	ClosedAt    *time.Time `gorm:"type:timestamp" json:"closed_at,omitempty"`
	Reason      string     `gorm:"type:text" json:"reason,omitempty"`

	Applications []Application  `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
	History      []StatusChange `gorm:"polymorphic:Owner;polymorphicValue:job" json:"history,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewJob returns a draft listing for company.
func NewJob(companyID uint, info EditableJobInfo, now time.Time, by uuid.UUID) (Job, error) {
	if err := info.Normalize(); err != nil {
		return Job{}, err
	}
	return Job{
		CompanyID:       companyID,
		EditableJobInfo: info,
		Status:          JobDraft,
		StatusCode:      jobTransitions.Code(JobDraft),
		History:         []StatusChange{jobTransitions.initial(JobDraft, now, actor(by))},
	}, nil
}

// Editable reports whether listing content may still change.
func (j *Job) Editable() bool {
	return j.Status == JobDraft || j.Status == JobRejected
}

// IsOpen reports whether students may apply at now.
func (j *Job) IsOpen(now time.Time) bool {
	return j.Status == JobActive && (j.ExpiresAt == nil || now.Before(*j.ExpiresAt))
}

// IsExpired reports whether an active listing outlived its expiry.
func (j *Job) IsExpired(now time.Time) bool {
	return j.Status == JobActive && j.ExpiresAt != nil && !now.Before(*j.ExpiresAt)
}

func (j *Job) move(to string, now time.Time, by *uuid.UUID, reason string) (StatusChange, error) {
	change, err := jobTransitions.change(j.ID, j.Status, to, now, by, reason)
	if err != nil {
		return change, err
	}
	j.Status, j.StatusCode = to, change.Code
	return change, nil
}

// Submit sends a draft or rejected listing for admin review.
func (j *Job) Submit(now time.Time, by uuid.UUID) (StatusChange, error) {
	change, err := j.move(JobPending, now, actor(by), "")
	if err != nil {
		return change, err
	}
	j.SubmittedAt = timePtr(now)
	j.Reason = ""
	change.Columns = []string{"submitted_at", "reason"}
	return change, nil
}

// Approve publishes the listing for JobListingLifetime.
func (j *Job) Approve(now time.Time, by uuid.UUID) (StatusChange, error) {
	change, err := j.move(JobActive, now, actor(by), "")
	if err != nil {
		return change, err
	}
	j.ApprovedAt = timePtr(now)
	j.ExpiresAt = timePtr(now.Add(JobListingLifetime))
	change.Columns = []string{"approved_at", "expires_at"}
	return change, nil
}

// Reject sends the listing back to its company with a reason.
func (j *Job) Reject(now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	if strings.TrimSpace(reason) == "" {
		return StatusChange{}, ErrReasonRequired
	}
	change, err := j.move(JobRejected, now, actor(by), reason)
	if err != nil {
		return change, err
	}
	j.Reason = reason
	change.Columns = []string{"reason"}
	return change, nil
}

// Close stops an active listing from accepting applications.
func (j *Job) Close(now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	return j.close(now, actor(by), reason)
}

// Expire closes an active listing whose expiry has passed.
func (j *Job) Expire(now time.Time) (StatusChange, error) {
	if j.Status == JobActive && !j.IsExpired(now) {
		return StatusChange{}, ErrNotDue
	}
	return j.close(now, nil, "listing expired")
}

func (j *Job) close(now time.Time, by *uuid.UUID, reason string) (StatusChange, error) {
	change, err := j.move(JobClosed, now, by, reason)
	if err != nil {
		return change, err
	}
	j.ClosedAt = timePtr(now)
	j.Reason = reason
	change.Columns = []string{"closed_at", "reason"}
	return change, nil
}

// JobResponse is a listing as returned to a specific viewer.
type JobResponse struct {
	Job
	Applied bool `json:"applied"`
}

// ToJobResponse marks whether the student viewer already applied.
func (j *Job) ToJobResponse(user User) JobResponse {
	applied := false
	if user.Role == RoleStudent {
		for _, application := range j.Applications {
			if application.StudentID == user.ID {
				applied = true
				break
			}
		}
	}
	return JobResponse{Job: *j, Applied: applied}
}
