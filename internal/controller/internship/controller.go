// Package internship exposes the employment records created from accepted offers.
package internship

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// InternshipController handles internship records.
type InternshipController struct {
	controller.Base
}

// NewInternshipController creates a new instance of InternshipController
func NewInternshipController(base controller.Base) *InternshipController {
	return &InternshipController{Base: base}
}

// GetMyInternships lists the caller's internships: as intern for students,
// as employer for companies.
// @Summary List own internships
// @Tags Internship
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "Only internships in this status"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.Internship]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as student or company"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /internships/mine [get]
func (ic *InternshipController) GetMyInternships(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	page := utilities.ParsePage(c)

	query := ic.DB.WithContext(c.Request.Context()).Model(&model.Internship{})
	switch user.Role {
	case model.RoleStudent:
		query = query.Where("student_id = ?", user.ID)
	case model.RoleCompany:
		company, ok := ic.CompanyOf(c, user)
		if !ok {
			return
		}
		query = query.Where("company_id = ?", company.ID)
	}
	if status := strings.ToLower(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}

	internships := []model.Internship{}
	if err := page.Paginate(query).
		Preload("Job").Preload("Company").Preload("Student").
		Order("start_date DESC, id DESC").
		Find(&internships).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, utilities.PagedResponse[model.Internship]{Data: internships, Total: total, Page: page})
}

// GetInternship returns one internship with its history.
// @Summary Get internship by ID
// @Description Visible to the intern, the employer and admins
// @Tags Internship
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Success 200 {object} model.Internship
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not a participant"
// @Failure 404 {object} utilities.ErrorResponse "Internship not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /internships/{id} [get]
func (ic *InternshipController) GetInternship(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return
	}
	internship, ok := ic.InternshipFor(c, user, id)
	if !ok {
		return
	}

	history, err := database.History(ic.DB.WithContext(c.Request.Context()), model.OwnerInternship, internship.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to retrieve history", err)
		return
	}
	internship.History = history

	c.JSON(http.StatusOK, internship)
}
