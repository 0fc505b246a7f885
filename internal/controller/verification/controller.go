// Package verification handles company KYC submissions and their review.
package verification

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/notify"
	"InternHub-backend/internal/utilities"
)

type VerificationController struct {
	controller.Base
}

func NewVerificationController(base controller.Base) *VerificationController {
	return &VerificationController{Base: base}
}

type documentInput struct {
	Kind       string `json:"kind" binding:"required"`
	StorageKey string `json:"storage_key" binding:"required"`
	Filename   string `json:"filename"`
}

type submitInput struct {
	Documents []documentInput `json:"documents" binding:"required"`
	Notes     string          `json:"notes"`
}

// SubmitVerification files a new set of documents for the caller's company.
// @Summary Submit company verification documents
// @Description Every storage_key must come from /upload by the same account.
// @Description A rejected company goes back to pending.
// @Tags Verification
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body submitInput true "Documents"
// @Success 201 {object} model.CompanyVerification
// @Failure 400 {object} utilities.ErrorResponse "Invalid documents"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as company"
// @Failure 409 {object} utilities.ErrorResponse "A verification is already pending, or company already verified"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /company-verifications [post]
func (vc *VerificationController) SubmitVerification(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	company, ok := vc.CompanyOf(c, user)
	if !ok {
		return
	}

	var input submitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	if company.Status != model.CompanyPending && company.Status != model.CompanyRejected {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{
			Error: fmt.Sprintf("Company is %s and does not need verification", company.Status),
		})
		return
	}

	keys := make([]string, 0, len(input.Documents))
	for _, d := range input.Documents {
		keys = append(keys, d.StorageKey)
	}
	files, err := vc.FilesOf(c, user.ID, keys...)
	if err != nil {
		utilities.RespondError(c, "Failed to check documents", err)
		return
	}

	docs := make([]model.VerificationDocument, 0, len(input.Documents))
	for _, d := range input.Documents {
		file, found := files[d.StorageKey]
		if !found {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
				Error: fmt.Sprintf("storage_key %q does not name one of your uploads", d.StorageKey),
			})
			return
		}
		filename := strings.TrimSpace(d.Filename)
		if filename == "" {
			filename = file.Filename
		}
		docs = append(docs, model.VerificationDocument{Kind: d.Kind, StorageKey: d.StorageKey, Filename: filename})
	}

	now := vc.Clock()
	v, err := model.NewVerification(company.ID, docs, strings.TrimSpace(input.Notes), now, user.ID)
	if err != nil {
		utilities.RespondError(c, "Invalid verification", err)
		return
	}

	var changes []model.StatusChange
	err = vc.Tx(c, func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&model.CompanyVerification{}).
			Where("company_id = ? AND status = ?", company.ID, model.VerificationPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return errPendingVerification
		}

		if company.Status == model.CompanyRejected {
			change, err := company.Reopen(now, user.ID)
			if err != nil {
				return err
			}
			if err := database.SaveTransition(tx, &company, change); err != nil {
				return err
			}
			changes = append(changes, change)
		}

		if err := tx.Create(&v).Error; err != nil {
			return err
		}
		changes = append(changes, v.History...)
		return nil
	})
	if errors.Is(err, errPendingVerification) || database.IsUniqueViolation(err) {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: "Another verification of this company is still pending"})
		return
	}
	if err != nil {
		utilities.RespondError(c, "Failed to submit verification", err)
		return
	}
	vc.Publish(c, changes...)

	c.JSON(http.StatusCreated, v)
}

var errPendingVerification = errors.New("verification already pending")

// ListVerifications returns the caller's company submissions, or for an
// admin every submission optionally filtered by status.
// @Summary List company verifications
// @Tags Verification
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.CompanyVerification]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as company or admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /company-verifications [get]
func (vc *VerificationController) ListVerifications(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	page := utilities.ParsePage(c)

	query := vc.DB.WithContext(c.Request.Context()).Model(&model.CompanyVerification{})
	if user.Role != model.RoleAdmin {
		company, ok := vc.CompanyOf(c, user)
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

	verifications := []model.CompanyVerification{}
	if err := page.Paginate(query).Preload("Documents").Preload("Company").
		Order("submitted_at DESC, id DESC").Find(&verifications).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}

	c.JSON(http.StatusOK, utilities.PagedResponse[model.CompanyVerification]{Data: verifications, Total: total, Page: page})
}

// GetVerification returns one submission with its history.
// @Summary Get a company verification
// @Tags Verification
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Verification ID"
// @Success 200 {object} model.CompanyVerification
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not your company"
// @Failure 404 {object} utilities.ErrorResponse "Verification not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /company-verifications/{id} [get]
func (vc *VerificationController) GetVerification(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	v, ok := vc.load(c)
	if !ok {
		return
	}
	if user.Role != model.RoleAdmin && v.Company.OwnerUserID != user.ID {
		controller.Forbidden(c, "You can only view verifications of your own company")
		return
	}

	history, err := database.History(vc.DB.WithContext(c.Request.Context()), model.OwnerVerification, v.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to retrieve history", err)
		return
	}
	v.History = history

	c.JSON(http.StatusOK, v)
}

// ApproveVerification accepts the documents and approves the company in
// the same transaction.
// @Summary Approve a company verification
// @Description Only admin can access this endpoints
// @Tags Verification
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Verification ID"
// @Success 200 {object} model.CompanyVerification
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as admin"
// @Failure 404 {object} utilities.ErrorResponse "Verification not found"
// @Failure 409 {object} utilities.ErrorResponse "Verification already reviewed"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /company-verifications/{id}/approve [post]
func (vc *VerificationController) ApproveVerification(c *gin.Context) {
	vc.review(c, func(v *model.CompanyVerification, company *model.Company, user model.User, _ string) ([]model.StatusChange, error) {
		now := vc.Clock()
		vChange, err := v.Approve(now, user.ID)
		if err != nil {
			return nil, err
		}
		cChange, err := company.Approve(now, user.ID)
		if err != nil {
			return nil, err
		}
		return []model.StatusChange{vChange, cChange}, nil
	})
}

// RejectVerification refuses the documents and rejects the company in the
// same transaction. A reason is required.
// @Summary Reject a company verification
// @Description Only admin can access this endpoints
// @Tags Verification
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Verification ID"
// @Param body body controller.ReasonBody true "Why the documents were refused"
// @Success 200 {object} model.CompanyVerification
// @Failure 400 {object} utilities.ErrorResponse "Missing reason"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as admin"
// @Failure 404 {object} utilities.ErrorResponse "Verification not found"
// @Failure 409 {object} utilities.ErrorResponse "Verification already reviewed"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /company-verifications/{id}/reject [post]
func (vc *VerificationController) RejectVerification(c *gin.Context) {
	vc.review(c, func(v *model.CompanyVerification, company *model.Company, user model.User, reason string) ([]model.StatusChange, error) {
		now := vc.Clock()
		vChange, err := v.Reject(now, user.ID, reason)
		if err != nil {
			return nil, err
		}
		cChange, err := company.Reject(now, user.ID, reason)
		if err != nil {
			return nil, err
		}
		return []model.StatusChange{vChange, cChange}, nil
	})
}

type reviewFunc func(*model.CompanyVerification, *model.Company, model.User, string) ([]model.StatusChange, error)

// review applies decide to a verification and its company, then persists
// both transitions with one notification to the company owner.
func (vc *VerificationController) review(c *gin.Context, decide reviewFunc) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	reason, ok := controller.BindReason(c)
	if !ok {
		return
	}
	v, ok := vc.load(c)
	if !ok {
		return
	}
	company := *v.Company

	changes, err := decide(&v, &company, user, strings.TrimSpace(reason))
	if err != nil {
		utilities.RespondError(c, "Failed to review verification", err)
		return
	}

	err = vc.Tx(c, func(tx *gorm.DB) error {
		if err := database.SaveTransition(tx, &v, changes[0]); err != nil {
			return err
		}
		if err := database.SaveTransition(tx, &company, changes[1]); err != nil {
			return err
		}
		return notify.Send(tx, notify.ForChange(company.OwnerUserID, model.NotifyVerificationReviewed, changes[0]))
	})
	if err != nil {
		utilities.RespondError(c, "Failed to review verification", err)
		return
	}
	vc.Publish(c, changes...)

	v.Company = &company
	c.JSON(http.StatusOK, v)
}

func (vc *VerificationController) load(c *gin.Context) (model.CompanyVerification, bool) {
	var v model.CompanyVerification
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return v, false
	}
	if err := vc.DB.WithContext(c.Request.Context()).
		Preload("Documents").Preload("Company").
		First(&v, id).Error; err != nil {
		utilities.RespondError(c, "Verification not found", err)
		return v, false
	}
	return v, true
}
