// Package application provides HTTP handlers for job application operations.
package application

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/notify"
	"InternHub-backend/internal/utilities"
)

// ApplicationController handles job application related endpoints
type ApplicationController struct {
	controller.Base
}

// NewApplicationController creates a new instance of ApplicationController
func NewApplicationController(base controller.Base) *ApplicationController {
	return &ApplicationController{Base: base}
}

type applyInput struct {
	JobID       uint    `json:"job_id" binding:"required"`
	CoverLetter string  `json:"cover_letter"`
	ResumeKey   *string `json:"resume_key"`
}

// OfferInput carries the offer terms. Dates use YYYY-MM-DD.
type OfferInput struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Allowance string `json:"allowance"`
	Note      string `json:"note"`
}

func (in OfferInput) terms() (model.OfferTerms, error) {
	start, err := time.Parse(time.DateOnly, in.StartDate)
	if err != nil {
		return model.OfferTerms{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", model.ErrInvalidInput)
	}
	end, err := time.Parse(time.DateOnly, in.EndDate)
	if err != nil {
		return model.OfferTerms{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", model.ErrInvalidInput)
	}
	return model.OfferTerms{
		StartDate: &start,
		EndDate:   &end,
		Allowance: strings.TrimSpace(in.Allowance),
		Note:      strings.TrimSpace(in.Note),
	}, nil
}

// AcceptResponse is the accepted application and the internship it created.
type AcceptResponse struct {
	Application model.Application `json:"application"`
	Internship  model.Internship  `json:"internship"`
}

// Apply handles the creation of a new job application by a student.
// @Summary Apply to a job listing
// @Description Only student can access this endpoint. Without resume_key the profile resume is used.
// @Tags Application
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param application body applyInput true "Application information"
// @Success 201 {object} model.Application "Successfully applied"
// @Failure 400 {object} utilities.ErrorResponse "Invalid request body or resume key"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as student"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 409 {object} utilities.ErrorResponse "Already applied, or job not open"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications [post]
func (ac *ApplicationController) Apply(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}

	var input applyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	db := ac.DB.WithContext(c.Request.Context())

	var job model.Job
	if err := db.Preload("Company").First(&job, input.JobID).Error; err != nil {
		utilities.RespondError(c, "Job not found", err)
		return
	}
	now := ac.Clock()
	if !job.IsOpen(now) || !job.Company.IsActive() {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: "Job listing is not open for applications"})
		return
	}

	resumeKey := input.ResumeKey
	if resumeKey == nil {
		var student model.Student
		if err := db.Where("user_id = ?", user.ID).First(&student).Error; err != nil {
			utilities.RespondError(c, "Failed to retrieve student profile", err)
			return
		}
		resumeKey = student.ResumeKey
	} else {
		files, err := ac.FilesOf(c, user.ID, *resumeKey)
		if err != nil {
			utilities.RespondError(c, "Failed to check resume", err)
			return
		}
		if _, found := files[*resumeKey]; !found {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "resume_key does not name one of your uploads"})
			return
		}
	}

	application := model.NewApplication(job.ID, user.ID, input.CoverLetter, resumeKey, now)
	err := ac.Tx(c, func(tx *gorm.DB) error {
		if err := tx.Create(&application).Error; err != nil {
			return err
		}
		return notify.Send(tx, notify.New(job.Company.OwnerUserID, model.NotifyApplicationReceived,
			"New application",
			fmt.Sprintf("A student applied to %q.", job.Title),
			model.OwnerApplication, application.ID))
	})
	if database.IsUniqueViolation(err) {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: "You have already applied to this job listing"})
		return
	}
	if err != nil {
		utilities.RespondError(c, "Failed to create application", err)
		return
	}
	ac.Publish(c, application.History...)

	c.JSON(http.StatusCreated, application)
}

// GetMyApplications lists the caller's applications, newest first.
// @Summary List own applications
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "Only applications in this status"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.Application]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as student"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/mine [get]
func (ac *ApplicationController) GetMyApplications(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	page := utilities.ParsePage(c)

	query := ac.DB.WithContext(c.Request.Context()).Model(&model.Application{}).Where("student_id = ?", user.ID)
	if status := strings.ToLower(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}

	applications := []model.Application{}
	if err := page.Paginate(query).Preload("Job.Company").Order("applied_at DESC, id DESC").Find(&applications).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, utilities.PagedResponse[model.Application]{Data: applications, Total: total, Page: page})
}

// GetApplication returns one application with its history.
// @Summary Get application by ID
// @Description Visible to the applicant, the hiring company and admins
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Success 200 {object} model.Application
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not a party of this application"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id} [get]
func (ac *ApplicationController) GetApplication(c *gin.Context) {
	user, app, ok := ac.load(c)
	if !ok {
		return
	}
	if user.Role != model.RoleAdmin && !isApplicant(user, &app) && !isEmployer(user, &app) {
		controller.Forbidden(c, "You are not a party of this application")
		return
	}

	history, err := database.History(ac.DB.WithContext(c.Request.Context()), model.OwnerApplication, app.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to retrieve history", err)
		return
	}
	app.History = history

	c.JSON(http.StatusOK, app)
}

// Shortlist moves a new application forward.
// @Summary Shortlist an application
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Success 200 {object} model.Application
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the hiring company"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/shortlist [post]
func (ac *ApplicationController) Shortlist(c *gin.Context) {
	user, app, ok := ac.loadAsEmployer(c)
	if !ok {
		return
	}
	change, err := app.Shortlist(ac.Clock(), user.ID)
	ac.finish(c, &app, change, err, notify.ForChange(app.StudentID, model.NotifyApplicationUpdated, change))
}

// Reject turns an application down. The reason is optional.
// @Summary Reject an application
// @Tags Application
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Param body body controller.ReasonBody false "Optional reason"
// @Success 200 {object} model.Application
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the hiring company"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/reject [post]
func (ac *ApplicationController) Reject(c *gin.Context) {
	reason, ok := controller.BindReason(c)
	if !ok {
		return
	}
	user, app, ok := ac.loadAsEmployer(c)
	if !ok {
		return
	}
	change, err := app.Reject(ac.Clock(), user.ID, strings.TrimSpace(reason))
	ac.finish(c, &app, change, err, notify.ForChange(app.StudentID, model.NotifyApplicationUpdated, change))
}

// Withdraw lets the applicant pull out before an offer is made.
// @Summary Withdraw an application
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Success 200 {object} model.Application
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not your application"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/withdraw [post]
func (ac *ApplicationController) Withdraw(c *gin.Context) {
	user, app, ok := ac.loadAsApplicant(c)
	if !ok {
		return
	}
	change, err := app.Withdraw(ac.Clock(), user.ID)
	ac.finish(c, &app, change, err, notify.ForChange(app.Job.Company.OwnerUserID, model.NotifyApplicationUpdated, change))
}

// MakeOffer attaches terms to a shortlisted application. The student has
// seven days to answer.
// @Summary Make an offer
// @Description Only approved companies can make offers
// @Tags Application
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Param offer body OfferInput true "Offer terms"
// @Success 200 {object} model.Application
// @Failure 400 {object} utilities.ErrorResponse "Invalid offer terms"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the hiring company, or company not approved"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/offer [post]
func (ac *ApplicationController) MakeOffer(c *gin.Context) {
	var input OfferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	terms, err := input.terms()
	if err != nil {
		utilities.RespondError(c, "Invalid offer", err)
		return
	}

	user, app, ok := ac.loadAsEmployer(c)
	if !ok {
		return
	}
	if !app.Job.Company.IsActive() {
		controller.Forbidden(c, fmt.Sprintf("Company is %s, only approved companies can do this", app.Job.Company.Status))
		return
	}

	change, err := app.MakeOffer(terms, ac.Clock(), user.ID)
	ac.finish(c, &app, change, err, notify.ForChange(app.StudentID, model.NotifyOfferReceived, change))
}

// AcceptOffer takes the offer and creates the internship in the same
// transaction.
// @Summary Accept an offer
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Success 200 {object} AcceptResponse
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not your application"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "No pending offer, or offer expired"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/accept [post]
func (ac *ApplicationController) AcceptOffer(c *gin.Context) {
	user, app, ok := ac.loadAsApplicant(c)
	if !ok {
		return
	}

	now := ac.Clock()
	change, err := app.Accept(now, user.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to accept offer", err)
		return
	}
	internship, err := model.NewInternship(&app, now)
	if err != nil {
		utilities.RespondError(c, "Failed to accept offer", err)
		return
	}

	err = ac.Tx(c, func(tx *gorm.DB) error {
		if err := database.SaveTransition(tx, &app, change); err != nil {
			return err
		}
		if err := tx.Omit("Application", "Job", "Company", "Student").Create(&internship).Error; err != nil {
			return err
		}
		return notify.Send(tx, notify.ForChange(app.Job.Company.OwnerUserID, model.NotifyOfferAnswered, change))
	})
	if database.IsUniqueViolation(err) {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: "An internship already exists for this application"})
		return
	}
	if err != nil {
		utilities.RespondError(c, "Failed to accept offer", err)
		return
	}
	ac.Publish(c, append([]model.StatusChange{change}, internship.History...)...)

	c.JSON(http.StatusOK, AcceptResponse{Application: app, Internship: internship})
}

// DeclineOffer refuses the offer. The reason is optional.
// @Summary Decline an offer
// @Tags Application
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Param body body controller.ReasonBody false "Optional reason"
// @Success 200 {object} model.Application
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not your application"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "No pending offer"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/decline [post]
func (ac *ApplicationController) DeclineOffer(c *gin.Context) {
	reason, ok := controller.BindReason(c)
	if !ok {
		return
	}
	user, app, ok := ac.loadAsApplicant(c)
	if !ok {
		return
	}
	change, err := app.Decline(ac.Clock(), user.ID, strings.TrimSpace(reason))
	ac.finish(c, &app, change, err, notify.ForChange(app.Job.Company.OwnerUserID, model.NotifyOfferAnswered, change))
}

// finish persists a single transition computed by a handler and answers
// with the application.
func (ac *ApplicationController) finish(c *gin.Context, app *model.Application, change model.StatusChange, err error, note model.Notification) {
	if err != nil {
		utilities.RespondError(c, "Failed to update application", err)
		return
	}
	if !ac.Transition(c, "Failed to update application", app, change, note) {
		return
	}
	c.JSON(http.StatusOK, app)
}

func (ac *ApplicationController) load(c *gin.Context) (model.User, model.Application, bool) {
	var app model.Application
	user, ok := controller.CurrentUser(c)
	if !ok {
		return user, app, false
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return user, app, false
	}
	if err := ac.DB.WithContext(c.Request.Context()).
		Preload("Job.Company").Preload("Student").
		First(&app, id).Error; err != nil {
		utilities.RespondError(c, "Application not found", err)
		return user, app, false
	}
	return user, app, true
}

func (ac *ApplicationController) loadAsEmployer(c *gin.Context) (model.User, model.Application, bool) {
	user, app, ok := ac.load(c)
	if ok && !isEmployer(user, &app) {
		controller.Forbidden(c, "Only the hiring company can do this")
		return user, app, false
	}
	return user, app, ok
}

func (ac *ApplicationController) loadAsApplicant(c *gin.Context) (model.User, model.Application, bool) {
	user, app, ok := ac.load(c)
	if ok && !isApplicant(user, &app) {
		controller.Forbidden(c, "Only the applicant can do this")
		return user, app, false
	}
	return user, app, ok
}

func isApplicant(user model.User, app *model.Application) bool {
	return user.ID == app.StudentID
}

func isEmployer(user model.User, app *model.Application) bool {
	return app.Job != nil && app.Job.Company != nil && app.Job.Company.OwnerUserID == user.ID
}
