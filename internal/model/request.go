package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request types.
const (
	RequestExtension   = "extension"
	RequestTermination = "termination"
)

// Request states.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

var requestTransitions = transitionTable{
	owner: OwnerRequest,
	codes: map[string]int{
		RequestPending:  0,
		RequestApproved: 1,
		RequestRejected: 2,
	},
	next: map[string][]string{
		RequestPending: {RequestApproved, RequestRejected},
	},
}

// RequestStatusCode returns the numeric code of a request status.
func RequestStatusCode(status string) int { return requestTransitions.Code(status) }

// InternshipRequest asks the counterparty to extend or terminate an internship.
type InternshipRequest struct {
	ID               uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	InternshipID     uint        `gorm:"not null;index;uniqueIndex:idx_one_pending_request,where:status = 'pending'" json:"internship_id"`
	Internship       *Internship `gorm:"foreignKey:InternshipID;constraint:OnDelete:CASCADE" json:"-"`
	Type             string      `gorm:"type:text;not null;uniqueIndex:idx_one_pending_request,where:status = 'pending'" json:"type"`
	RequestedBy      uuid.UUID   `gorm:"type:uuid;not null" json:"requested_by"`
	RequestedEndDate *time.Time  `gorm:"type:date" json:"requested_end_date,omitempty"`
	EffectiveDate    *time.Time  `gorm:"type:date" json:"effective_date,omitempty"`
	Reason           string      `gorm:"type:text" json:"reason"`

	Status     string     `gorm:"type:text;not null;index" json:"status"`
	StatusCode int        `gorm:"not null" json:"status_code"`
	ReviewedAt *time.Time `gorm:"type:timestamp" json:"reviewed_at,omitempty"`
	ReviewedBy *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewNote string     `gorm:"type:text" json:"review_note,omitempty"`

	History   []StatusChange `gorm:"polymorphic:Owner;polymorphicValue:internship_request" json:"history,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewRequest validates a request against the internship it targets.
func NewRequest(internship *Internship, kind string, requestedEnd, effective *time.Time, reason string, now time.Time, by uuid.UUID) (InternshipRequest, error) {
	if !internship.IsOpen() {
		return InternshipRequest{}, fmt.Errorf("%w: internship %d is %s", ErrInvalidTransition, internship.ID, internship.Status)
	}
	req := InternshipRequest{
		InternshipID: internship.ID,
		Type:         strings.ToLower(strings.TrimSpace(kind)),
		RequestedBy:  by,
		Reason:       strings.TrimSpace(reason),
		Status:       RequestPending,
		StatusCode:   requestTransitions.Code(RequestPending),
		History:      []StatusChange{requestTransitions.initial(RequestPending, now, actor(by))},
	}
	switch req.Type {
	case RequestExtension:
		if requestedEnd == nil {
			return InternshipRequest{}, fmt.Errorf("%w: requested_end_date is required", ErrInvalidInput)
		}
		if !requestedEnd.After(internship.EndDate) {
			return InternshipRequest{}, fmt.Errorf("%w: requested_end_date must be after %s", ErrInvalidInput, internship.EndDate.Format(time.DateOnly))
		}
		req.RequestedEndDate = requestedEnd
	case RequestTermination:
		if req.Reason == "" {
			return InternshipRequest{}, ErrReasonRequired
		}
		if effective == nil {
			effective = timePtr(now)
		}
		req.EffectiveDate = effective
	default:
		return InternshipRequest{}, fmt.Errorf("%w: unknown request type %q", ErrInvalidInput, kind)
	}
	return req, nil
}

// CanReview reports whether user may decide on the request: the
// participant who did not file it, or an admin.
func (r *InternshipRequest) CanReview(user User, internship *Internship) bool {
	if user.Role == RoleAdmin {
		return true
	}
	return user.ID != r.RequestedBy && internship.IsParticipant(user)
}

func (r *InternshipRequest) review(to string, now time.Time, by uuid.UUID, note string) (StatusChange, error) {
	change, err := requestTransitions.change(r.ID, r.Status, to, now, actor(by), note)
	if err != nil {
		return change, err
	}
	r.Status, r.StatusCode = to, change.Code
	r.ReviewedAt = timePtr(now)
	r.ReviewedBy = actor(by)
	r.ReviewNote = note
	change.Columns = []string{"reviewed_at", "reviewed_by", "review_note"}
	return change, nil
}

// Approve accepts the request and applies its effect to internship. The
// returned internship change is empty for extensions, which do not move
// the internship's status.
func (r *InternshipRequest) Approve(internship *Internship, now time.Time, by uuid.UUID, note string) (StatusChange, *StatusChange, error) {
	if r.Status != RequestPending {
		return StatusChange{}, nil, fmt.Errorf("%w: request is %s", ErrInvalidTransition, r.Status)
	}
	var effect *StatusChange
	switch r.Type {
	case RequestExtension:
		if err := internship.Extend(*r.RequestedEndDate); err != nil {
			return StatusChange{}, nil, err
		}
	case RequestTermination:
		change, err := internship.Terminate(now, by, r.Reason)
		if err != nil {
			return StatusChange{}, nil, err
		}
		effect = &change
	}
	change, err := r.review(RequestApproved, now, by, note)
	return change, effect, err
}

// Reject declines the request, recording note.
func (r *InternshipRequest) Reject(now time.Time, by uuid.UUID, note string) (StatusChange, error) {
	return r.review(RequestRejected, now, by, note)
}
