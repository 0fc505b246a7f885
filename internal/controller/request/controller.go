// Package request handles extension and termination requests filed against
// an internship by one participant and decided by the other.
package request

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/notify"
	"InternHub-backend/internal/utilities"
)

var errPendingRequest = errors.New("request already pending")

// RequestController handles extension and termination requests on internships.
type RequestController struct {
	controller.Base
}

// NewRequestController creates a new instance of RequestController
func NewRequestController(base controller.Base) *RequestController {
	return &RequestController{Base: base}
}

type createInput struct {
	Type             string `json:"type" binding:"required"`
	RequestedEndDate string `json:"requested_end_date"`
	EffectiveDate    string `json:"effective_date"`
	Reason           string `json:"reason"`
}

// ReviewBody is the optional body of approve and reject.
type ReviewBody struct {
	Note string `json:"note"`
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", model.ErrInvalidInput, field)
	}
	return &t, nil
}

// CreateRequest files an extension or termination request.
// @Summary File an internship request
// @Description Extensions need requested_end_date after the current end date. Terminations need a reason; effective_date defaults to today.
// @Tags Request
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Param request body createInput true "Request"
// @Success 201 {object} model.InternshipRequest
// @Failure 400 {object} utilities.ErrorResponse "Invalid request"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not a participant"
// @Failure 404 {object} utilities.ErrorResponse "Internship not found"
// @Failure 409 {object} utilities.ErrorResponse "Internship closed or a request of this type is pending"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /internships/{id}/requests [post]
func (rc *RequestController) CreateRequest(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return
	}
	var input createInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	internship, ok := rc.InternshipFor(c, user, id)
	if !ok {
		return
	}
	if !internship.IsParticipant(user) {
		controller.Forbidden(c, "Only the intern or the employer can file requests")
		return
	}

	requestedEnd, err := parseDate("requested_end_date", input.RequestedEndDate)
	if err != nil {
		utilities.RespondError(c, "Invalid request", err)
		return
	}
	effective, err := parseDate("effective_date", input.EffectiveDate)
	if err != nil {
		utilities.RespondError(c, "Invalid request", err)
		return
	}
	req, err := model.NewRequest(&internship, input.Type, requestedEnd, effective, input.Reason, rc.Clock(), user.ID)
	if err != nil {
		utilities.RespondError(c, "Invalid request", err)
		return
	}

	err = rc.Tx(c, func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&model.InternshipRequest{}).
			Where("internship_id = ? AND type = ? AND status = ?", internship.ID, req.Type, model.RequestPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return errPendingRequest
		}
		if err := tx.Create(&req).Error; err != nil {
			return err
		}
		return notify.Send(tx, notify.New(counterparty(&internship, user.ID), model.NotifyRequestReceived,
			fmt.Sprintf("New %s request", req.Type),
			fmt.Sprintf("A %s request was filed for internship #%d.", req.Type, internship.ID),
			model.OwnerRequest, req.ID))
	})
	if errors.Is(err, errPendingRequest) || database.IsUniqueViolation(err) {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{
			Error: fmt.Sprintf("A %s request for this internship is already pending", req.Type),
		})
		return
	}
	if err != nil {
		utilities.RespondError(c, "Failed to file request", err)
		return
	}
	rc.Publish(c, req.History...)

	c.JSON(http.StatusCreated, req)
}

// ListRequests returns the requests of an internship, newest first.
// @Summary List requests of an internship
// @Tags Request
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.InternshipRequest]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not a participant"
// @Failure 404 {object} utilities.ErrorResponse "Internship not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /internships/{id}/requests [get]
func (rc *RequestController) ListRequests(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return
	}
	internship, ok := rc.InternshipFor(c, user, id)
	if !ok {
		return
	}
	page := utilities.ParsePage(c)

	query := rc.DB.WithContext(c.Request.Context()).Model(&model.InternshipRequest{}).
		Where("internship_id = ?", internship.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	requests := []model.InternshipRequest{}
	if err := page.Paginate(query).Order("created_at DESC, id DESC").Find(&requests).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, utilities.PagedResponse[model.InternshipRequest]{Data: requests, Total: total, Page: page})
}

// GetRequest returns one request with its history.
// @Summary Get request by ID
// @Tags Request
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Request ID"
// @Success 200 {object} model.InternshipRequest
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not a participant"
// @Failure 404 {object} utilities.ErrorResponse "Request not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /requests/{id} [get]
func (rc *RequestController) GetRequest(c *gin.Context) {
	_, req, ok := rc.load(c)
	if !ok {
		return
	}
	history, err := database.History(rc.DB.WithContext(c.Request.Context()), model.OwnerRequest, req.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to retrieve history", err)
		return
	}
	req.History = history
	c.JSON(http.StatusOK, req)
}

// ApproveRequest accepts the request and applies it to the internship.
// @Summary Approve a request
// @Description Only the participant who did not file the request, or an admin, can decide it
// @Tags Request
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Request ID"
// @Param body body ReviewBody false "Optional note"
// @Success 200 {object} model.InternshipRequest
// @Failure 400 {object} utilities.ErrorResponse "Invalid body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not allowed to review"
// @Failure 404 {object} utilities.ErrorResponse "Request not found"
// @Failure 409 {object} utilities.ErrorResponse "Request or internship no longer open"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /requests/{id}/approve [post]
func (rc *RequestController) ApproveRequest(c *gin.Context) {
	note, ok := bindNote(c)
	if !ok {
		return
	}
	user, req, ok := rc.loadForReview(c)
	if !ok {
		return
	}
	internship := req.Internship
	now := rc.Clock()

	change, effect, err := req.Approve(internship, now, user.ID, note)
	if err != nil {
		utilities.RespondError(c, "Failed to approve request", err)
		return
	}

	notes := []model.Notification{notify.ForChange(req.RequestedBy, model.NotifyRequestReviewed, change)}
	for _, p := range []uuid.UUID{internship.StudentID, internship.Company.OwnerUserID} {
		if p == req.RequestedBy || p == user.ID {
			continue
		}
		if effect != nil {
			notes = append(notes, notify.ForChange(p, model.NotifyInternshipUpdated, *effect))
			continue
		}
		notes = append(notes, notify.New(p, model.NotifyInternshipUpdated, "Internship extended",
			fmt.Sprintf("Internship #%d now ends on %s.", internship.ID, internship.EndDate.Format(time.DateOnly)),
			model.OwnerInternship, internship.ID))
	}

	err = rc.Tx(c, func(tx *gorm.DB) error {
		if err := database.SaveTransition(tx, &req, change); err != nil {
			return err
		}
		if effect != nil {
			if err := database.SaveTransition(tx, internship, *effect); err != nil {
				return err
			}
		} else {
			res := tx.Model(&model.Internship{}).
				Where("id = ? AND status IN ?", internship.ID, []string{model.InternshipUpcoming, model.InternshipActive}).
				Updates(map[string]any{"end_date": internship.EndDate, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: internship %d is no longer open", model.ErrConflict, internship.ID)
			}
		}
		return notify.Send(tx, notes...)
	})
	if err != nil {
		utilities.RespondError(c, "Failed to approve request", err)
		return
	}
	rc.Publish(c, change)
	if effect != nil {
		rc.Publish(c, *effect)
	}

	c.JSON(http.StatusOK, req)
}

// RejectRequest declines the request. The internship is left unchanged.
// @Summary Reject a request
// @Description Only the participant who did not file the request, or an admin, can decide it
// @Tags Request
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Request ID"
// @Param body body ReviewBody false "Optional note"
// @Success 200 {object} model.InternshipRequest
// @Failure 400 {object} utilities.ErrorResponse "Invalid body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not allowed to review"
// @Failure 404 {object} utilities.ErrorResponse "Request not found"
// @Failure 409 {object} utilities.ErrorResponse "Request is not pending"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /requests/{id}/reject [post]
func (rc *RequestController) RejectRequest(c *gin.Context) {
	note, ok := bindNote(c)
	if !ok {
		return
	}
	user, req, ok := rc.loadForReview(c)
	if !ok {
		return
	}
	change, err := req.Reject(rc.Clock(), user.ID, note)
	if err != nil {
		utilities.RespondError(c, "Failed to reject request", err)
		return
	}
	if !rc.Transition(c, "Failed to reject request", &req, change,
		notify.ForChange(req.RequestedBy, model.NotifyRequestReviewed, change)) {
		return
	}
	c.JSON(http.StatusOK, req)
}

func bindNote(c *gin.Context) (string, bool) {
	var body ReviewBody
	if c.Request.ContentLength == 0 {
		return "", true
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return "", false
	}
	return body.Note, true
}

// counterparty is the participant of internship other than by.
func counterparty(internship *model.Internship, by uuid.UUID) uuid.UUID {
	if by == internship.StudentID {
		return internship.Company.OwnerUserID
	}
	return internship.StudentID
}

func (rc *RequestController) load(c *gin.Context) (model.User, model.InternshipRequest, bool) {
	var req model.InternshipRequest
	user, ok := controller.CurrentUser(c)
	if !ok {
		return user, req, false
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return user, req, false
	}
	if err := rc.DB.WithContext(c.Request.Context()).
		Preload("Internship.Company").
		First(&req, id).Error; err != nil {
		utilities.RespondError(c, "Request not found", err)
		return user, req, false
	}
	if user.Role != model.RoleAdmin && !req.Internship.IsParticipant(user) {
		controller.Forbidden(c, "You are not a participant of this internship")
		return user, req, false
	}
	return user, req, true
}

func (rc *RequestController) loadForReview(c *gin.Context) (model.User, model.InternshipRequest, bool) {
	user, req, ok := rc.load(c)
	if ok && !req.CanReview(user, req.Internship) {
		controller.Forbidden(c, "Only the other party or an admin can review this request")
		return user, req, false
	}
	return user, req, ok
}
