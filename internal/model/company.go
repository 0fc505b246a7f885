package model

import (
	"time"

	"github.com/google/uuid"
)

// Company verification states.
const (
	CompanyPending   = "pending"
	CompanyApproved  = "approved"
	CompanyRejected  = "rejected"
	CompanySuspended = "suspended"
)

var companyTransitions = transitionTable{
	owner: OwnerCompany,
	codes: map[string]int{
		CompanyPending:   0,
		CompanyApproved:  1,
		CompanyRejected:  2,
		CompanySuspended: 3,
	},
	next: map[string][]string{
		CompanyPending:   {CompanyApproved, CompanyRejected},
		CompanyRejected:  {CompanyPending},
		CompanyApproved:  {CompanySuspended},
		CompanySuspended: {CompanyApproved},
	},
}

// CompanyStatusCode returns the numeric code of a company status.
func CompanyStatusCode(status string) int { return companyTransitions.Code(status) }

// EditableCompanyInfo is the part of a company its owner may change.
type EditableCompanyInfo struct {
	Name           string  `gorm:"type:text" json:"name"`
	RegistrationNo string  `gorm:"type:text" json:"registration_no"`
	Industry       string  `gorm:"type:text" json:"industry"`
	Size           *string `gorm:"type:text" json:"size"`
	Overview       string  `gorm:"type:text" json:"overview"`
	Website        string  `gorm:"type:text" json:"website"`
	Address        string  `gorm:"type:text" json:"address"`
}

// Company is the organisation owned by a user with RoleCompany.
type Company struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"owner_user_id"`
	Owner       User      `gorm:"foreignKey:OwnerUserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	EditableCompanyInfo

	Status     string     `gorm:"type:text;not null;default:'pending';index" json:"status"`
	StatusCode int        `gorm:"not null;default:0" json:"status_code"`
	ApprovedAt *time.Time `gorm:"type:timestamp" json:"approved_at,omitempty"`

	History   []StatusChange `gorm:"polymorphic:Owner;polymorphicValue:company" json:"history,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewCompany returns a pending company for owner with its first history entry.
func NewCompany(owner uuid.UUID, info EditableCompanyInfo, now time.Time) Company {
	return Company{
		OwnerUserID:         owner,
		EditableCompanyInfo: info,
		Status:              CompanyPending,
		StatusCode:          companyTransitions.Code(CompanyPending),
		History:             []StatusChange{companyTransitions.initial(CompanyPending, now, actor(owner))},
	}
}

// IsActive reports whether the company may publish listings and hire.
func (c *Company) IsActive() bool {
	return c.Status == CompanyApproved
}

func (c *Company) move(to string, now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	change, err := companyTransitions.change(c.ID, c.Status, to, now, actor(by), reason)
	if err != nil {
		return change, err
	}
	c.Status, c.StatusCode = to, change.Code
	return change, nil
}

// Approve marks the company verified.
func (c *Company) Approve(now time.Time, by uuid.UUID) (StatusChange, error) {
	change, err := c.move(CompanyApproved, now, by, "")
	if err != nil {
		return change, err
	}
	c.ApprovedAt = timePtr(now)
	change.Columns = []string{"approved_at"}
	return change, nil
}

// Reject marks the company as failing verification.
func (c *Company) Reject(now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	return c.move(CompanyRejected, now, by, reason)
}

// Reopen returns a rejected company to pending when it submits new documents.
func (c *Company) Reopen(now time.Time, by uuid.UUID) (StatusChange, error) {
	return c.move(CompanyPending, now, by, "")
}

// Suspend blocks an approved company.
func (c *Company) Suspend(now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	if reason == "" {
		return StatusChange{}, ErrReasonRequired
	}
	return c.move(CompanySuspended, now, by, reason)
}

// Reinstate lifts a suspension.
func (c *Company) Reinstate(now time.Time, by uuid.UUID) (StatusChange, error) {
	return c.move(CompanyApproved, now, by, "")
}
