// Package user serves the signed-in user's own account and student profile.
package user

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// UserController handles /me and /students/me.
type UserController struct {
	controller.Base
}

// NewUserController creates a new instance of UserController
func NewUserController(base controller.Base) *UserController {
	return &UserController{Base: base}
}

// MeResponse is the account plus its role-specific profile.
type MeResponse struct {
	User    model.User     `json:"user"`
	Student *model.Student `json:"student,omitempty"`
	Company *model.Company `json:"company,omitempty"`
}

type editStudent struct {
	model.EditableStudentInfo
	model.EditableUserInfo
}

// GetMe returns the signed-in account with its student or company profile.
// @Summary Get own account
// @Tags User
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} MeResponse
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /me [get]
func (uc *UserController) GetMe(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}

	resp := MeResponse{User: user}
	db := uc.DB.WithContext(c.Request.Context())

	var err error
	switch user.Role {
	case model.RoleStudent:
		var student model.Student
		if err = db.Where("user_id = ?", user.ID).First(&student).Error; err == nil {
			resp.Student = &student
		}
	case model.RoleCompany:
		var company model.Company
		if err = db.Where("owner_user_id = ?", user.ID).First(&company).Error; err == nil {
			resp.Company = &company
		}
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve profile: %s", err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStudentProfile returns the signed-in student's profile.
// @Summary Get own student profile
// @Tags Student
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} model.Student
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as student"
// @Failure 404 {object} utilities.ErrorResponse "Profile not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /students/me [get]
func (uc *UserController) GetStudentProfile(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}

	var student model.Student
	if err := uc.DB.WithContext(c.Request.Context()).Preload("User").
		Where("user_id = ?", user.ID).First(&student).Error; err != nil {
		utilities.RespondError(c, "Failed to retrieve student profile", err)
		return
	}

	c.JSON(http.StatusOK, student)
}

// EditStudentProfile overwrites the non-empty fields of the student profile
// and of the account's contact details.
// @Summary Edit own student profile
// @Description resume_key must name a file uploaded by the same student
// @Tags Student
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param profile body editStudent true "Student info to be written"
// @Success 200 {object} model.Student
// @Failure 400 {object} utilities.ErrorResponse "Invalid request body or resume key"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as student"
// @Failure 409 {object} utilities.ErrorResponse "Email already used"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /students/me [patch]
func (uc *UserController) EditStudentProfile(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}

	var student model.Student
	if err := uc.DB.WithContext(c.Request.Context()).Preload("User").
		Where("user_id = ?", user.ID).First(&student).Error; err != nil {
		utilities.RespondError(c, "Failed to retrieve student profile", err)
		return
	}

	edited := editStudent{}
	if !controller.DecodeStrict(c, &edited) {
		return
	}

	if edited.ResumeKey != nil {
		files, err := uc.FilesOf(c, user.ID, *edited.ResumeKey)
		if err != nil {
			utilities.RespondError(c, "Failed to check resume", err)
			return
		}
		if _, ok := files[*edited.ResumeKey]; !ok {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "resume_key does not name one of your uploads"})
			return
		}
	}

	utilities.MergeNonEmpty(&student.EditableStudentInfo, &edited.EditableStudentInfo)
	utilities.MergeNonEmpty(&student.User.EditableUserInfo, &edited.EditableUserInfo)

	err := uc.Tx(c, func(tx *gorm.DB) error {
		if err := tx.Model(&student.User).Select("email", "tel").Updates(&student.User).Error; err != nil {
			return err
		}
		return tx.Model(&student).Select("first_name", "last_name", "university", "program", "year", "skills", "resume_key").
			Updates(&student).Error
	})
	if database.IsUniqueViolation(err) {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: "Email already used by another account"})
		return
	}
	if err != nil {
		utilities.RespondError(c, "Failed to update student profile", err)
		return
	}

	c.JSON(http.StatusOK, student)
}
