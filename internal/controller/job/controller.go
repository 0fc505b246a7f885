// Package job serves job listings: the public board, company drafts and
// the admin review queue.
package job

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/notify"
	"InternHub-backend/internal/utilities"
)

// JobController handles /jobs.
type JobController struct {
	controller.Base
}

// NewJobController creates a new instance of JobController
func NewJobController(base controller.Base) *JobController {
	return &JobController{Base: base}
}

// GetJobs lists open listings of approved companies.
// @Summary Browse open job listings
// @Description Only active, unexpired listings of approved companies are returned, newest approval first.
// @Tags Job
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param search query string false "Case-insensitive match on title"
// @Param type query string false "internship, part-time or full-time"
// @Param tag query string false "Listing tag"
// @Param location query string false "Case-insensitive match on location"
// @Param company query int false "Company ID"
// @Param order query string false "desc (default) or asc on approved_at"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.JobResponse]
// @Failure 400 {object} utilities.ErrorResponse "Invalid company filter"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs [get]
func (jc *JobController) GetJobs(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	page := utilities.ParsePage(c)

	query := jc.DB.WithContext(c.Request.Context()).Model(&model.Job{}).
		Joins("JOIN companies ON companies.id = jobs.company_id").
		Where("jobs.status = ? AND (jobs.expires_at IS NULL OR jobs.expires_at > ?)", model.JobActive, jc.Clock()).
		Where("companies.status = ?", model.CompanyApproved)

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("jobs.title ILIKE ?", "%"+search+"%")
	}
	if jobType := strings.ToLower(strings.TrimSpace(c.Query("type"))); jobType != "" {
		query = query.Where("jobs.type = ?", jobType)
	}
	if tag := strings.ToLower(strings.TrimSpace(c.Query("tag"))); tag != "" {
		query = query.Where("? = ANY(jobs.tags)", tag)
	}
	if location := strings.TrimSpace(c.Query("location")); location != "" {
		query = query.Where("jobs.location ILIKE ?", "%"+location+"%")
	}
	if raw := c.Query("company"); raw != "" {
		companyID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid company"})
			return
		}
		query = query.Where("jobs.company_id = ?", companyID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}

	order := "jobs.approved_at DESC, jobs.id DESC"
	if strings.EqualFold(c.Query("order"), "asc") {
		order = "jobs.approved_at ASC, jobs.id ASC"
	}

	var jobs []model.Job
	if err := jc.withApplied(page.Paginate(query), user).
		Select("jobs.*").
		Preload("Company").
		Order(order).
		Find(&jobs).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}

	c.JSON(http.StatusOK, utilities.PagedResponse[model.JobResponse]{Data: toResponses(jobs, user), Total: total, Page: page})
}

// CreateJob stores a new draft listing for the caller's approved company.
// @Summary Create a draft job listing
// @Tags Job
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param job body model.EditableJobInfo true "Listing content"
// @Success 201 {object} model.Job
// @Failure 400 {object} utilities.ErrorResponse "Invalid listing"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Company is not approved"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs [post]
func (jc *JobController) CreateJob(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	company, ok := jc.ActiveCompanyOf(c, user)
	if !ok {
		return
	}

	var info model.EditableJobInfo
	if !controller.DecodeStrict(c, &info) {
		return
	}

	job, err := model.NewJob(company.ID, info, jc.Clock(), user.ID)
	if err != nil {
		utilities.RespondError(c, "Invalid job listing", err)
		return
	}

	if err := jc.DB.WithContext(c.Request.Context()).Create(&job).Error; err != nil {
		utilities.RespondError(c, "Failed to create job listing", err)
		return
	}
	jc.Publish(c, job.History...)

	c.JSON(http.StatusCreated, job)
}

// GetMyJobs lists every listing of the caller's company.
// @Summary List own job listings
// @Tags Job
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "Only listings in this status"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.Job]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as company"
// @Failure 404 {object} utilities.ErrorResponse "Company profile not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/mine [get]
func (jc *JobController) GetMyJobs(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	company, ok := jc.CompanyOf(c, user)
	if !ok {
		return
	}

	query := jc.DB.WithContext(c.Request.Context()).Model(&model.Job{}).Where("company_id = ?", company.ID)
	if status := strings.ToLower(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	jc.respondPage(c, query, "created_at DESC, id DESC")
}

// GetPendingJobs is the admin review queue, oldest submission first.
// @Summary List listings awaiting review
// @Description Only admin can access this endpoints
// @Tags Job
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.Job]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/pending [get]
func (jc *JobController) GetPendingJobs(c *gin.Context) {
	query := jc.DB.WithContext(c.Request.Context()).Model(&model.Job{}).Where("status = ?", model.JobPending)
	jc.respondPage(c, query, "submitted_at ASC, id ASC")
}

func (jc *JobController) respondPage(c *gin.Context, query *gorm.DB, order string) {
	page := utilities.ParsePage(c)
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}

	jobs := []model.Job{}
	if err := page.Paginate(query).Preload("Company").Order(order).Find(&jobs).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, utilities.PagedResponse[model.Job]{Data: jobs, Total: total, Page: page})
}

// GetJobByID returns one listing. Listings that are not open are only
// visible to their company and admins.
// @Summary Get job listing by ID
// @Tags Job
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job ID"
// @Success 200 {object} model.JobResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid id"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id} [get]
func (jc *JobController) GetJobByID(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return
	}

	var job model.Job
	if err := jc.withApplied(jc.DB.WithContext(c.Request.Context()), user).
		Preload("Company").First(&job, id).Error; err != nil {
		utilities.RespondError(c, "Job not found", err)
		return
	}

	if canManage(user, &job) {
		history, err := database.History(jc.DB.WithContext(c.Request.Context()), model.OwnerJob, job.ID)
		if err != nil {
			utilities.RespondError(c, "Failed to retrieve history", err)
			return
		}
		job.History = history
	} else if !job.IsOpen(jc.Clock()) || !job.Company.IsActive() {
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Job not found"})
		return
	}

	c.JSON(http.StatusOK, job.ToJobResponse(user))
}

// EditJob overwrites the non-empty fields of a draft or rejected listing.
// @Summary Edit a job listing
// @Description Active, pending and closed listings are frozen
// @Tags Job
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job ID"
// @Param job body model.EditableJobInfo true "Fields to change"
// @Success 200 {object} model.Job
// @Failure 400 {object} utilities.ErrorResponse "Invalid listing"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the owner"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 409 {object} utilities.ErrorResponse "Listing is not editable"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id} [patch]
func (jc *JobController) EditJob(c *gin.Context) {
	_, job, ok := jc.loadManaged(c)
	if !ok {
		return
	}

	var edited model.EditableJobInfo
	if !controller.DecodeStrict(c, &edited) {
		return
	}
	if !job.Editable() {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{
			Error: fmt.Sprintf("Job listing is %s, only draft or rejected listings can be edited", job.Status),
		})
		return
	}

	utilities.MergeNonEmpty(&job.EditableJobInfo, &edited)
	if err := job.Normalize(); err != nil {
		utilities.RespondError(c, "Invalid job listing", err)
		return
	}

	result := jc.DB.WithContext(c.Request.Context()).Model(&job).
		Where("status IN ?", []string{model.JobDraft, model.JobRejected}).
		Select("title", "description", "requirements", "location", "type", "salary", "tags", "positions").
		Updates(&job)
	if result.Error != nil {
		utilities.RespondError(c, "Failed to update job listing", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: "Job listing changed status, reload and try again"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// DeleteJob removes a draft listing.
// @Summary Delete a draft job listing
// @Tags Job
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job ID"
// @Success 200 {object} utilities.MessageResponse
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the owner"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 409 {object} utilities.ErrorResponse "Only drafts can be deleted"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id} [delete]
func (jc *JobController) DeleteJob(c *gin.Context) {
	_, job, ok := jc.loadManaged(c)
	if !ok {
		return
	}

	err := jc.Tx(c, func(tx *gorm.DB) error {
		result := tx.Where("status = ?", model.JobDraft).Delete(&model.Job{}, job.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: job listing is %s, only drafts can be deleted", model.ErrInvalidTransition, job.Status)
		}
		return tx.Where("owner_type = ? AND owner_id = ?", model.OwnerJob, job.ID).Delete(&model.StatusChange{}).Error
	})
	if err != nil {
		utilities.RespondError(c, "Failed to delete job listing", err)
		return
	}

	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Job listing deleted"})
}

// SubmitJob sends a draft or rejected listing to the admin queue.
// @Summary Submit a listing for review
// @Tags Job
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job ID"
// @Success 200 {object} model.Job
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the owner, or company not approved"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id}/submit [post]
func (jc *JobController) SubmitJob(c *gin.Context) {
	user, job, ok := jc.loadManaged(c)
	if !ok {
		return
	}
	if !job.Company.IsActive() {
		controller.Forbidden(c, fmt.Sprintf("Company is %s, only approved companies can do this", job.Company.Status))
		return
	}

	change, err := job.Submit(jc.Clock(), user.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to submit job listing", err)
		return
	}
	if !jc.Transition(c, "Failed to submit job listing", &job, change) {
		return
	}
	c.JSON(http.StatusOK, job)
}

// ApproveJob publishes a pending listing for 30 days.
// @Summary Approve a job listing
// @Description Only admin can access this endpoints
// @Tags Job
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job ID"
// @Success 200 {object} model.Job
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as admin"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition or company not approved"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id}/approve [post]
func (jc *JobController) ApproveJob(c *gin.Context) {
	user, job, ok := jc.loadManaged(c)
	if !ok {
		return
	}
	if !job.Company.IsActive() {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{
			Error: fmt.Sprintf("Company is %s, its listings cannot be approved", job.Company.Status),
		})
		return
	}

	change, err := job.Approve(jc.Clock(), user.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to approve job listing", err)
		return
	}
	note := notify.ForChange(job.Company.OwnerUserID, model.NotifyJobReviewed, change)
	if !jc.Transition(c, "Failed to approve job listing", &job, change, note) {
		return
	}
	c.JSON(http.StatusOK, job)
}

// RejectJob returns a pending listing to its company. A reason is required.
// @Summary Reject a job listing
// @Description Only admin can access this endpoints
// @Tags Job
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job ID"
// @Param body body controller.ReasonBody true "Why the listing was rejected"
// @Success 200 {object} model.Job
// @Failure 400 {object} utilities.ErrorResponse "Missing reason"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as admin"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id}/reject [post]
func (jc *JobController) RejectJob(c *gin.Context) {
	reason, ok := controller.BindReason(c)
	if !ok {
		return
	}
	user, job, ok := jc.loadManaged(c)
	if !ok {
		return
	}

	change, err := job.Reject(jc.Clock(), user.ID, reason)
	if err != nil {
		utilities.RespondError(c, "Failed to reject job listing", err)
		return
	}
	note := notify.ForChange(job.Company.OwnerUserID, model.NotifyJobReviewed, change)
	if !jc.Transition(c, "Failed to reject job listing", &job, change, note) {
		return
	}
	c.JSON(http.StatusOK, job)
}

// CloseJob stops an active listing from taking applications.
// @Summary Close a job listing
// @Description The owning company or an admin may close an active listing
// @Tags Job
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job ID"
// @Param body body controller.ReasonBody false "Optional reason"
// @Success 200 {object} model.Job
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the owner"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id}/close [post]
func (jc *JobController) CloseJob(c *gin.Context) {
	reason, ok := controller.BindReason(c)
	if !ok {
		return
	}
	user, job, ok := jc.loadManaged(c)
	if !ok {
		return
	}

	change, err := job.Close(jc.Clock(), user.ID, strings.TrimSpace(reason))
	if err != nil {
		utilities.RespondError(c, "Failed to close job listing", err)
		return
	}

	var notes []model.Notification
	if user.ID != job.Company.OwnerUserID {
		notes = append(notes, notify.ForChange(job.Company.OwnerUserID, model.NotifyJobClosed, change))
	}
	if !jc.Transition(c, "Failed to close job listing", &job, change, notes...) {
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetJobApplications lists the applications received by a listing.
// @Summary List applications of a job listing
// @Tags Job
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job ID"
// @Param status query string false "Only applications in this status"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.Application]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the owner"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id}/applications [get]
func (jc *JobController) GetJobApplications(c *gin.Context) {
	_, job, ok := jc.loadManaged(c)
	if !ok {
		return
	}
	page := utilities.ParsePage(c)

	query := jc.DB.WithContext(c.Request.Context()).Model(&model.Application{}).Where("job_id = ?", job.ID)
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
	if err := page.Paginate(query).Preload("Student").Order("applied_at ASC, id ASC").Find(&applications).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, utilities.PagedResponse[model.Application]{Data: applications, Total: total, Page: page})
}

// loadManaged loads the :id listing with its company and checks that the
// caller owns it or is an admin.
func (jc *JobController) loadManaged(c *gin.Context) (model.User, model.Job, bool) {
	var job model.Job
	user, ok := controller.CurrentUser(c)
	if !ok {
		return user, job, false
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return user, job, false
	}
	if err := jc.DB.WithContext(c.Request.Context()).Preload("Company").First(&job, id).Error; err != nil {
		utilities.RespondError(c, "Job not found", err)
		return user, job, false
	}
	if !canManage(user, &job) {
		controller.Forbidden(c, "You can only manage listings of your own company")
		return user, job, false
	}
	return user, job, true
}

func canManage(user model.User, job *model.Job) bool {
	if user.Role == model.RoleAdmin {
		return true
	}
	return job.Company != nil && job.Company.OwnerUserID == user.ID
}

// withApplied preloads the student's own application so responses can
// report whether they already applied.
func (jc *JobController) withApplied(db *gorm.DB, user model.User) *gorm.DB {
	if user.Role != model.RoleStudent {
		return db
	}
	return db.Preload("Applications", "student_id = ?", user.ID)
}

func toResponses(jobs []model.Job, user model.User) []model.JobResponse {
	out := make([]model.JobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobs[i].ToJobResponse(user))
	}
	return out
}
