// Package admin holds the administrator-only company management endpoints.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/notify"
	"InternHub-backend/internal/utilities"
)

// AdminController handles admin moderation of companies.
type AdminController struct {
	controller.Base
}

// NewAdminController creates a new instance of AdminController
func NewAdminController(base controller.Base) *AdminController {
	return &AdminController{Base: base}
}

// ListCompanies function query companies based on given query "status"
// @Summary List companies
// @Description Only admin can access this endpoints
// @Description If no status given, the server will return all companies
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "Space or comma separated statuses, case insensitive" example(pending suspended)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.Company]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /companies [get]
func (ac *AdminController) ListCompanies(c *gin.Context) {
	page := utilities.ParsePage(c)
	query := ac.DB.WithContext(c.Request.Context()).Model(&model.Company{})

	if raw := c.Query("status"); raw != "" {
		statuses := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool { return r == ' ' || r == ',' })
		query = query.Where("status IN ?", statuses)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}

	companies := []model.Company{}
	if err := page.Paginate(query).Order("created_at ASC, id ASC").Find(&companies).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}

	c.JSON(http.StatusOK, utilities.PagedResponse[model.Company]{Data: companies, Total: total, Page: page})
}

// SuspendCompany blocks an approved company. A reason is required.
// @Summary Suspend a company
// @Description Only admin can access this endpoints
// @Tags Admin
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Company ID"
// @Param body body controller.ReasonBody true "Why the company is suspended"
// @Success 200 {object} model.Company
// @Failure 400 {object} utilities.ErrorResponse "Missing reason"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 404 {object} utilities.ErrorResponse "Company not found"
// @Failure 409 {object} utilities.ErrorResponse "Company is not approved"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /companies/{id}/suspend [post]
func (ac *AdminController) SuspendCompany(c *gin.Context) {
	ac.moveCompany(c, func(company *model.Company, user model.User, reason string) (model.StatusChange, error) {
		return company.Suspend(ac.Clock(), user.ID, strings.TrimSpace(reason))
	})
}

// ReinstateCompany lifts a suspension.
// @Summary Reinstate a suspended company
// @Description Only admin can access this endpoints
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Company ID"
// @Success 200 {object} model.Company
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 404 {object} utilities.ErrorResponse "Company not found"
// @Failure 409 {object} utilities.ErrorResponse "Company is not suspended"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /companies/{id}/reinstate [post]
func (ac *AdminController) ReinstateCompany(c *gin.Context) {
	ac.moveCompany(c, func(company *model.Company, user model.User, _ string) (model.StatusChange, error) {
		return company.Reinstate(ac.Clock(), user.ID)
	})
}

func (ac *AdminController) moveCompany(c *gin.Context, move func(*model.Company, model.User, string) (model.StatusChange, error)) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return
	}
	reason, ok := controller.BindReason(c)
	if !ok {
		return
	}

	var company model.Company
	if err := ac.DB.WithContext(c.Request.Context()).First(&company, id).Error; err != nil {
		utilities.RespondError(c, "Failed to retrieve company", err)
		return
	}

	change, err := move(&company, user, reason)
	if err != nil {
		utilities.RespondError(c, "Failed to change company status", err)
		return
	}

	note := notify.ForChange(company.OwnerUserID, model.NotifyCompanyStatus, change)
	if !ac.Transition(c, "Failed to change company status", &company, change, note) {
		return
	}

	c.JSON(http.StatusOK, company)
}
