package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Timesheet states.
const (
	TimesheetSubmitted = "submitted"
	TimesheetApproved  = "approved"
	TimesheetRejected  = "rejected"
)

// MaxHoursPerEntry caps a single day's entry.
const MaxHoursPerEntry = 24

var timesheetTransitions = transitionTable{
	owner: OwnerTimesheet,
	codes: map[string]int{
		TimesheetSubmitted: 0,
		TimesheetApproved:  1,
		TimesheetRejected:  2,
	},
	next: map[string][]string{
		TimesheetSubmitted: {TimesheetApproved, TimesheetRejected},
		TimesheetRejected:  {TimesheetSubmitted},
	},
}

// TimesheetStatusCode returns the numeric code of a timesheet status.
func TimesheetStatusCode(status string) int { return timesheetTransitions.Code(status) }

// WeekStart returns the Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// TimesheetEntry is one worked day.
type TimesheetEntry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	TimesheetID uint      `gorm:"not null;index" json:"-"`
	Date        time.Time `gorm:"type:date;not null" json:"date"`
	Hours       float64   `gorm:"not null" json:"hours"`
	Description string    `gorm:"type:text" json:"description"`
}

// ValidateEntries checks entries against the week starting at periodStart
// and returns their total hours. Each day may appear once, which caps a day
// at MaxHoursPerEntry.
func ValidateEntries(periodStart time.Time, entries []TimesheetEntry) (float64, error) {
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: at least one entry is required", ErrInvalidInput)
	}
	periodEnd := periodStart.AddDate(0, 0, 7)
	seen := make(map[time.Time]struct{}, len(entries))
	total := 0.0
	for i := range entries {
		e := &entries[i]
		day := time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, time.UTC)
		if _, dup := seen[day]; dup {
			return 0, fmt.Errorf("%w: more than one entry for %s", ErrInvalidInput, day.Format(time.DateOnly))
		}
		seen[day] = struct{}{}
		if e.Date.Before(periodStart) || !e.Date.Before(periodEnd) {
			return 0, fmt.Errorf("%w: entry %s is outside the week of %s", ErrInvalidInput,
				e.Date.Format(time.DateOnly), periodStart.Format(time.DateOnly))
		}
		if e.Hours <= 0 || e.Hours > MaxHoursPerEntry {
			return 0, fmt.Errorf("%w: entry %s has %.2f hours", ErrInvalidInput, e.Date.Format(time.DateOnly), e.Hours)
		}
		e.Description = strings.TrimSpace(e.Description)
		total += e.Hours
	}
	return total, nil
}

// Timesheet is a student's weekly hours for an internship.
type Timesheet struct {
	ID           uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	InternshipID uint             `gorm:"not null;uniqueIndex:idx_timesheet_period" json:"internship_id"`
	Internship   *Internship      `gorm:"foreignKey:InternshipID;constraint:OnDelete:CASCADE" json:"-"`
	PeriodStart  time.Time        `gorm:"type:date;not null;uniqueIndex:idx_timesheet_period" json:"period_start"`
	Entries      []TimesheetEntry `gorm:"foreignKey:TimesheetID;constraint:OnDelete:CASCADE" json:"entries"`
	TotalHours   float64          `gorm:"not null" json:"total_hours"`

	Status      string     `gorm:"type:text;not null;index" json:"status"`
	StatusCode  int        `gorm:"not null" json:"status_code"`
	SubmittedAt time.Time  `gorm:"type:timestamp;not null" json:"submitted_at"`
	ReviewedAt  *time.Time `gorm:"type:timestamp" json:"reviewed_at,omitempty"`
	ReviewedBy  *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	Reason      string     `gorm:"type:text" json:"reason,omitempty"`

	History   []StatusChange `gorm:"polymorphic:Owner;polymorphicValue:timesheet" json:"history,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewTimesheet validates entries and returns a submitted timesheet for the
// week containing periodStart.
func NewTimesheet(internshipID uint, periodStart time.Time, entries []TimesheetEntry, now time.Time, by uuid.UUID) (Timesheet, error) {
	start := WeekStart(periodStart)
	if !start.Equal(periodStart.UTC()) {
		return Timesheet{}, fmt.Errorf("%w: period_start must be a Monday", ErrInvalidInput)
	}
	total, err := ValidateEntries(start, entries)
	if err != nil {
		return Timesheet{}, err
	}
	return Timesheet{
		InternshipID: internshipID,
		PeriodStart:  start,
		Entries:      entries,
		TotalHours:   total,
		Status:       TimesheetSubmitted,
		StatusCode:   timesheetTransitions.Code(TimesheetSubmitted),
		SubmittedAt:  now,
		History:      []StatusChange{timesheetTransitions.initial(TimesheetSubmitted, now, actor(by))},
	}, nil
}

func (t *Timesheet) move(to string, now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	change, err := timesheetTransitions.change(t.ID, t.Status, to, now, actor(by), reason)
	if err != nil {
		return change, err
	}
	t.Status, t.StatusCode = to, change.Code
	return change, nil
}

func (t *Timesheet) review(to string, now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	change, err := t.move(to, now, by, reason)
	if err != nil {
		return change, err
	}
	t.ReviewedAt = timePtr(now)
	t.ReviewedBy = actor(by)
	t.Reason = reason
	change.Columns = []string{"reviewed_at", "reviewed_by", "reason"}
	return change, nil
}

// Approve signs off the submitted hours.
func (t *Timesheet) Approve(now time.Time, by uuid.UUID) (StatusChange, error) {
	return t.review(TimesheetApproved, now, by, "")
}

// Reject returns the timesheet to the student with a reason.
func (t *Timesheet) Reject(now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	if strings.TrimSpace(reason) == "" {
		return StatusChange{}, ErrReasonRequired
	}
	return t.review(TimesheetRejected, now, by, reason)
}

// Resubmit replaces the entries of a rejected timesheet.
func (t *Timesheet) Resubmit(entries []TimesheetEntry, now time.Time, by uuid.UUID) (StatusChange, error) {
	if !timesheetTransitions.Allows(t.Status, TimesheetSubmitted) {
		return StatusChange{}, fmt.Errorf("%w: timesheet cannot move from %q to %q", ErrInvalidTransition, t.Status, TimesheetSubmitted)
	}
	total, err := ValidateEntries(t.PeriodStart, entries)
	if err != nil {
		return StatusChange{}, err
	}
	change, err := t.move(TimesheetSubmitted, now, by, "")
	if err != nil {
		return change, err
	}
	t.Entries = entries
	t.TotalHours = total
	t.SubmittedAt = now
	t.ReviewedAt, t.ReviewedBy, t.Reason = nil, nil, ""
	change.Columns = []string{"total_hours", "submitted_at", "reviewed_at", "reviewed_by", "reason"}
	return change, nil
}
