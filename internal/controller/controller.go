// Package controller holds what every resource controller shares: the
// database, the event publisher, the clock and a few request helpers.
package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"InternHub-backend/internal/database"
	"InternHub-backend/internal/events"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/notify"
	"InternHub-backend/internal/utilities"
)

// Base is embedded by the resource controllers.
type Base struct {
	DB     *database.DBinstanceStruct
	Events events.Publisher
	Now    func() time.Time
}

// NewBase returns a Base using the wall clock. A nil publisher drops events.
func NewBase(db *database.DBinstanceStruct, pub events.Publisher) Base {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return Base{DB: db, Events: pub, Now: time.Now}
}

// Clock returns the current UTC time.
func (b Base) Clock() time.Time {
	if b.Now == nil {
		return time.Now().UTC()
	}
	return b.Now().UTC()
}

// Publish announces committed changes. It never fails the request.
func (b Base) Publish(c *gin.Context, changes ...model.StatusChange) {
	events.PublishChanges(c.Request.Context(), b.Events, changes...)
}

// Tx runs fn in a transaction bound to the request context.
func (b Base) Tx(c *gin.Context, fn func(tx *gorm.DB) error) error {
	return b.DB.WithContext(c.Request.Context()).Transaction(fn)
}

// Transition saves one status change of owner together with notes, then
// publishes it. On failure the error response is already written.
func (b Base) Transition(c *gin.Context, action string, owner any, change model.StatusChange, notes ...model.Notification) bool {
	err := b.Tx(c, func(tx *gorm.DB) error {
		if err := database.SaveTransition(tx, owner, change); err != nil {
			return err
		}
		return notify.Send(tx, notes...)
	})
	if err != nil {
		utilities.RespondError(c, action, err)
		return false
	}
	b.Publish(c, change)
	return true
}

// CurrentUser returns the authenticated user or answers 401.
func CurrentUser(c *gin.Context) (model.User, bool) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return user, false
	}
	return user, true
}

// CompanyOf loads the company owned by user. A company account without a
// company record answers 404.
func (b Base) CompanyOf(c *gin.Context, user model.User) (model.Company, bool) {
	var company model.Company
	err := b.DB.WithContext(c.Request.Context()).Where("owner_user_id = ?", user.ID).First(&company).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Company profile not found"})
		return company, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve company information: %s", err.Error()),
		})
		return company, false
	}
	return company, true
}

// ActiveCompanyOf is CompanyOf restricted to approved companies; others get 403.
func (b Base) ActiveCompanyOf(c *gin.Context, user model.User) (model.Company, bool) {
	company, ok := b.CompanyOf(c, user)
	if !ok {
		return company, false
	}
	if !company.IsActive() {
		c.JSON(http.StatusForbidden, utilities.ErrorResponse{
			Error: fmt.Sprintf("Company is %s, only approved companies can do this", company.Status),
		})
		return company, false
	}
	return company, true
}

// InternshipFor loads internship id for user. Only its student, its
// company owner and admins may see it; others get 403.
func (b Base) InternshipFor(c *gin.Context, user model.User, id uint) (model.Internship, bool) {
	var internship model.Internship
	if err := b.DB.WithContext(c.Request.Context()).
		Preload("Company").Preload("Job").Preload("Student").
		First(&internship, id).Error; err != nil {
		utilities.RespondError(c, "Internship not found", err)
		return internship, false
	}
	if user.Role != model.RoleAdmin && !internship.IsParticipant(user) {
		Forbidden(c, "You are not a participant of this internship")
		return internship, false
	}
	return internship, true
}

// FilesOf returns the files among keys that owner uploaded, by key.
// Keys owned by someone else are simply missing from the result.
func (b Base) FilesOf(c *gin.Context, owner uuid.UUID, keys ...string) (map[string]model.File, error) {
	var files []model.File
	if err := b.DB.WithContext(c.Request.Context()).
		Where("key IN ? AND owner_id = ?", keys, owner).
		Find(&files).Error; err != nil {
		return nil, err
	}
	out := make(map[string]model.File, len(files))
	for _, f := range files {
		out[f.Key] = f
	}
	return out, nil
}

// DecodeStrict decodes the JSON body into dst, rejecting unknown fields.
func DecodeStrict(c *gin.Context, dst any) bool {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return false
	}
	return true
}

// ReasonBody is the optional body of reject, suspend and decline actions.
type ReasonBody struct {
	Reason string `json:"reason"`
}

// BindReason reads an optional {"reason": "..."} body. An empty body is fine.
func BindReason(c *gin.Context) (string, bool) {
	var body ReasonBody
	if c.Request.ContentLength == 0 {
		return "", true
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return "", false
	}
	return body.Reason, true
}

// Forbidden answers 403 with msg.
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, utilities.ErrorResponse{Error: msg})
}
