package model

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Errors returned by workflow transitions and input validation. ErrConflict
// is returned by persistence when another request moved the record first.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReasonRequired    = errors.New("reason is required")
	ErrNotDue            = errors.New("transition is not due yet")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("record was modified by another request")
)

// Owner types recorded in status_changes.owner_type.
const (
	OwnerCompany      = "company"
	OwnerVerification = "company_verification"
	OwnerJob          = "job"
	OwnerApplication  = "application"
	OwnerInternship   = "internship"
	OwnerTimesheet    = "timesheet"
	OwnerRequest      = "internship_request"
)

// StatusChange is one append-only entry of an entity's status history.
type StatusChange struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	OwnerID   uint       `gorm:"not null;index:idx_status_change_owner" json:"-"`
	OwnerType string     `gorm:"type:text;not null;index:idx_status_change_owner" json:"-"`
	From      string     `gorm:"type:text" json:"from,omitempty"`
	To        string     `gorm:"type:text;not null" json:"status"`
	Code      int        `gorm:"not null" json:"status_code"`
	ChangedAt time.Time  `gorm:"type:timestamp;not null" json:"changed_at"`
	ChangedBy *uuid.UUID `gorm:"type:uuid" json:"changed_by,omitempty"`
	Reason    string     `gorm:"type:text" json:"reason,omitempty"`

	// Columns lists the owner columns the transition touched besides
	// status, status_code and updated_at.
	Columns []string `gorm:"-" json:"-"`
}

// transitionTable maps each status to its numeric code and allowed successors.
type transitionTable struct {
	owner string
	codes map[string]int
	next  map[string][]string
}

// Code returns the numeric code of status, or -1 when status is unknown.
func (t transitionTable) Code(status string) int {
	code, ok := t.codes[status]
	if !ok {
		return -1
	}
	return code
}

// Allows reports whether from -> to is a legal move.
func (t transitionTable) Allows(from, to string) bool {
	return slices.Contains(t.next[from], to)
}

func (t transitionTable) change(id uint, from, to string, at time.Time, by *uuid.UUID, reason string) (StatusChange, error) {
	if !t.Allows(from, to) {
		return StatusChange{}, fmt.Errorf("%w: %s cannot move from %q to %q", ErrInvalidTransition, t.owner, from, to)
	}
	return StatusChange{
		OwnerID:   id,
		OwnerType: t.owner,
		From:      from,
		To:        to,
		Code:      t.codes[to],
		ChangedAt: at,
		ChangedBy: by,
		Reason:    reason,
	}, nil
}

// initial builds the first history entry of a freshly created entity.
func (t transitionTable) initial(status string, at time.Time, by *uuid.UUID) StatusChange {
	return StatusChange{
		OwnerType: t.owner,
		To:        status,
		Code:      t.codes[status],
		ChangedAt: at,
		ChangedBy: by,
	}
}

func actor(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func timePtr(t time.Time) *time.Time {
	return &t
}
