package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User roles
const (
	RoleStudent = "student"
	RoleCompany = "company"
	RoleAdmin   = "admin"
)

// EditableUserInfo is the part of a user account its owner may change.
type EditableUserInfo struct {
	Email *string `gorm:"type:text;uniqueIndex" json:"email"`
	Tel   *string `gorm:"type:text" json:"tel"`
}

// User is the account record shared by every role. Password holds a bcrypt
// hash and is never serialised.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username string    `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Password string    `gorm:"type:text" json:"-"`
	Role     string    `gorm:"type:text;not null;index" json:"role"`
	EditableUserInfo
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a fresh UUID when none was given.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Username = strings.TrimSpace(u.Username)
	if u.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*u.Email))
		u.Email = &normalized
	}
	return nil
}

// EditableStudentInfo is the part of a student profile its owner may change.
type EditableStudentInfo struct {
	FirstName  string         `gorm:"type:text" json:"first_name"`
	LastName   string         `gorm:"type:text" json:"last_name"`
	University string         `gorm:"type:text" json:"university"`
	Program    string         `gorm:"type:text" json:"program"`
	Year       *string        `gorm:"type:text" json:"year"`
	Skills     pq.StringArray `gorm:"type:text[]" json:"skills"`
	ResumeKey  *string        `gorm:"type:text" json:"resume_key"`
}

// Student is the profile of a user with RoleStudent.
type Student struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	User   User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"user"`
	EditableStudentInfo
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name, falling back to the username.
func (s *Student) FullName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.User.Username
	}
	return name
}
