package company

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// CompanyController serves company profiles.
type CompanyController struct {
	controller.Base
}

// NewCompanyController creates a new instance of CompanyController
func NewCompanyController(base controller.Base) *CompanyController {
	return &CompanyController{Base: base}
}

type editCompanyUser struct {
	model.EditableCompanyInfo
	model.EditableUserInfo
}

// PublicCompany is what any signed-in user may see of a company.
type PublicCompany struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Industry string  `json:"industry"`
	Size     *string `json:"size"`
	Overview string  `json:"overview"`
	Website  string  `json:"website"`
	Address  string  `json:"address"`
	Status   string  `json:"status"`
}

// GetMyCompany retrieves the company owned by the signed-in user, history included.
// @Summary Retrieve own company profile
// @Tags Company
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} model.Company "Successfully retrieve company profile"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as company"
// @Failure 404 {object} utilities.ErrorResponse "Company profile not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /companies/me [get]
func (cc *CompanyController) GetMyCompany(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}

	company, ok := cc.CompanyOf(c, user)
	if !ok {
		return
	}

	history, err := database.History(cc.DB.WithContext(c.Request.Context()), model.OwnerCompany, company.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to retrieve company history", err)
		return
	}
	company.History = history

	c.JSON(http.StatusOK, company)
}

// EditMyCompany overwrites the non-empty profile fields of the caller's
// company. Status cannot be changed here.
// @Summary Edit own company profile
// @Description Unknown fields, including status, are rejected
// @Tags Company
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param profile body editCompanyUser true "Company info to be written"
// @Success 200 {object} model.Company "Successfully updated"
// @Failure 400 {object} utilities.ErrorResponse "Invalid request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as company"
// @Failure 404 {object} utilities.ErrorResponse "Company profile not found"
// @Failure 409 {object} utilities.ErrorResponse "Email already used"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /companies/me [patch]
func (cc *CompanyController) EditMyCompany(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}

	company, ok := cc.CompanyOf(c, user)
	if !ok {
		return
	}

	edited := editCompanyUser{}
	if !controller.DecodeStrict(c, &edited) {
		return
	}

	utilities.MergeNonEmpty(&company.EditableCompanyInfo, &edited.EditableCompanyInfo)
	utilities.MergeNonEmpty(&user.EditableUserInfo, &edited.EditableUserInfo)

	err := cc.Tx(c, func(tx *gorm.DB) error {
		if err := tx.Model(&user).Select("email", "tel").Updates(&user).Error; err != nil {
			return err
		}
		return tx.Model(&company).
			Select("name", "registration_no", "industry", "size", "overview", "website", "address").
			Updates(&company).Error
	})
	if database.IsUniqueViolation(err) {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: "Email already used by another account"})
		return
	}
	if err != nil {
		utilities.RespondError(c, "Failed to update company profile", err)
		return
	}

	c.JSON(http.StatusOK, company)
}

// GetCompanyByID returns the public profile of a company.
// @Summary Get company by ID
// @Tags Company
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Company ID"
// @Success 200 {object} PublicCompany
// @Failure 400 {object} utilities.ErrorResponse "Invalid id"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 404 {object} utilities.ErrorResponse "Company not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /companies/{id} [get]
func (cc *CompanyController) GetCompanyByID(c *gin.Context) {
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return
	}

	var company model.Company
	if err := cc.DB.WithContext(c.Request.Context()).First(&company, id).Error; err != nil {
		utilities.RespondError(c, "Company not found", err)
		return
	}

	c.JSON(http.StatusOK, PublicCompany{
		ID:       company.ID,
		Name:     company.Name,
		Industry: company.Industry,
		Size:     company.Size,
		Overview: company.Overview,
		Website:  company.Website,
		Address:  company.Address,
		Status:   company.Status,
	})
}
