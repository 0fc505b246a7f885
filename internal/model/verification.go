package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Verification review states.
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// Document kinds accepted in a verification.
const (
	DocumentSSM             = "ssm"
	DocumentBusinessLicense = "business_license"
	DocumentOther           = "other"
)

var verificationTransitions = transitionTable{
	owner: OwnerVerification,
	codes: map[string]int{
		VerificationPending:  0,
		VerificationApproved: 1,
		VerificationRejected: 2,
	},
	next: map[string][]string{
		VerificationPending: {VerificationApproved, VerificationRejected},
	},
}

// VerificationDocument references an uploaded file backing a verification.
type VerificationDocument struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	VerificationID uint   `gorm:"not null;index" json:"-"`
	Kind           string `gorm:"type:text;not null" json:"kind"`
	StorageKey     string `gorm:"type:text;not null" json:"storage_key"`
	Filename       string `gorm:"type:text" json:"filename"`
}

// CompanyVerification is one KYC submission of a company.
type CompanyVerification struct {
	ID        uint                   `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID uint                   `gorm:"not null;index;uniqueIndex:idx_one_pending_verification,where:status = 'pending'" json:"company_id"`
	Company   *Company               `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"company,omitempty"`
	Documents []VerificationDocument `gorm:"foreignKey:VerificationID;constraint:OnDelete:CASCADE" json:"documents"`
	Notes     string                 `gorm:"type:text" json:"notes"`

	Status      string     `gorm:"type:text;not null;index" json:"status"`
	StatusCode  int        `gorm:"not null" json:"status_code"`
	SubmittedAt time.Time  `gorm:"type:timestamp;not null" json:"submitted_at"`
	ReviewedAt  *time.Time `gorm:"type:timestamp" json:"reviewed_at,omitempty"`
	ReviewedBy  *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	Reason      string     `gorm:"type:text" json:"reason,omitempty"`

	History   []StatusChange `gorm:"polymorphic:Owner;polymorphicValue:company_verification" json:"history,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ValidateDocuments checks that a submission carries at least one SSM
// certificate or business licence and only known kinds.
func ValidateDocuments(docs []VerificationDocument) error {
	if len(docs) == 0 {
		return fmt.Errorf("%w: at least one document is required", ErrInvalidInput)
	}
	hasPrimary := false
	for i := range docs {
		docs[i].Kind = strings.ToLower(strings.TrimSpace(docs[i].Kind))
		switch docs[i].Kind {
		case DocumentSSM, DocumentBusinessLicense:
			hasPrimary = true
		case DocumentOther:
		default:
			return fmt.Errorf("%w: unknown document kind %q", ErrInvalidInput, docs[i].Kind)
		}
		if strings.TrimSpace(docs[i].StorageKey) == "" {
			return fmt.Errorf("%w: document %d has no storage key", ErrInvalidInput, i)
		}
	}
	if !hasPrimary {
		return fmt.Errorf("%w: an SSM certificate or business license is required", ErrInvalidInput)
	}
	return nil
}

// NewVerification builds a pending submission for company.
func NewVerification(companyID uint, docs []VerificationDocument, notes string, now time.Time, by uuid.UUID) (CompanyVerification, error) {
	if err := ValidateDocuments(docs); err != nil {
		return CompanyVerification{}, err
	}
	return CompanyVerification{
		CompanyID:   companyID,
		Documents:   docs,
		Notes:       notes,
		Status:      VerificationPending,
		StatusCode:  verificationTransitions.Code(VerificationPending),
		SubmittedAt: now,
		History:     []StatusChange{verificationTransitions.initial(VerificationPending, now, actor(by))},
	}, nil
}

func (v *CompanyVerification) review(to string, now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	change, err := verificationTransitions.change(v.ID, v.Status, to, now, actor(by), reason)
	if err != nil {
		return change, err
	}
	v.Status, v.StatusCode = to, change.Code
	v.ReviewedAt = timePtr(now)
	v.ReviewedBy = actor(by)
	v.Reason = reason
	change.Columns = []string{"reviewed_at", "reviewed_by", "reason"}
	return change, nil
}

// Approve accepts the submitted documents.
func (v *CompanyVerification) Approve(now time.Time, by uuid.UUID) (StatusChange, error) {
	return v.review(VerificationApproved, now, by, "")
}

// Reject refuses the submitted documents; reason is mandatory.
func (v *CompanyVerification) Reject(now time.Time, by uuid.UUID, reason string) (StatusChange, error) {
	if strings.TrimSpace(reason) == "" {
		return StatusChange{}, ErrReasonRequired
	}
	return v.review(VerificationRejected, now, by, reason)
}
