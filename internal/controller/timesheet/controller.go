// Package timesheet handles weekly hour submissions of interns.
package timesheet

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/notify"
	"InternHub-backend/internal/utilities"
)

// TimesheetController handles weekly timesheets of interns.
type TimesheetController struct {
	controller.Base
}

// NewTimesheetController creates a new instance of TimesheetController
func NewTimesheetController(base controller.Base) *TimesheetController {
	return &TimesheetController{Base: base}
}

// EntryInput is one worked day. Date uses YYYY-MM-DD.
type EntryInput struct {
	Date        string  `json:"date" binding:"required"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
}

type submitInput struct {
	PeriodStart string       `json:"period_start" binding:"required"`
	Entries     []EntryInput `json:"entries"`
}

type resubmitInput struct {
	Entries []EntryInput `json:"entries"`
}

func parseEntries(in []EntryInput) ([]model.TimesheetEntry, error) {
	entries := make([]model.TimesheetEntry, 0, len(in))
	for _, e := range in {
		date, err := time.Parse(time.DateOnly, e.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: entry date %q must be YYYY-MM-DD", model.ErrInvalidInput, e.Date)
		}
		entries = append(entries, model.TimesheetEntry{Date: date, Hours: e.Hours, Description: e.Description})
	}
	return entries, nil
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return false
	}
	return true
}

// SubmitTimesheet files the hours of one week of an active internship.
// @Summary Submit a weekly timesheet
// @Description period_start must be a Monday; entries must fall inside that week with 0 < hours <= 24
// @Tags Timesheet
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Param timesheet body submitInput true "Week and entries"
// @Success 201 {object} model.Timesheet
// @Failure 400 {object} utilities.ErrorResponse "Invalid entries"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the intern"
// @Failure 404 {object} utilities.ErrorResponse "Internship not found"
// @Failure 409 {object} utilities.ErrorResponse "Internship not active, or week already submitted"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /internships/{id}/timesheets [post]
func (tc *TimesheetController) SubmitTimesheet(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return
	}
	var input submitInput
	if !bind(c, &input) {
		return
	}

	internship, ok := tc.InternshipFor(c, user, id)
	if !ok {
		return
	}
	if internship.StudentID != user.ID {
		controller.Forbidden(c, "Only the intern can submit timesheets")
		return
	}
	if internship.Status != model.InternshipActive {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{
			Error: fmt.Sprintf("Internship is %s, timesheets need an active internship", internship.Status),
		})
		return
	}

	periodStart, err := time.Parse(time.DateOnly, input.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "period_start must be YYYY-MM-DD"})
		return
	}
	entries, err := parseEntries(input.Entries)
	if err != nil {
		utilities.RespondError(c, "Invalid timesheet", err)
		return
	}
	sheet, err := model.NewTimesheet(internship.ID, periodStart, entries, tc.Clock(), user.ID)
	if err != nil {
		utilities.RespondError(c, "Invalid timesheet", err)
		return
	}

	err = tc.Tx(c, func(tx *gorm.DB) error {
		if err := tx.Create(&sheet).Error; err != nil {
			return err
		}
		return notify.Send(tx, notify.New(internship.Company.OwnerUserID, model.NotifyTimesheetSubmitted,
			"Timesheet submitted",
			fmt.Sprintf("%s logged %.1f hours for the week of %s.", internship.Student.FullName(), sheet.TotalHours, sheet.PeriodStart.Format(time.DateOnly)),
			model.OwnerTimesheet, sheet.ID))
	})
	if database.IsUniqueViolation(err) {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: "A timesheet for this week already exists"})
		return
	}
	if err != nil {
		utilities.RespondError(c, "Failed to submit timesheet", err)
		return
	}
	tc.Publish(c, sheet.History...)

	c.JSON(http.StatusCreated, sheet)
}

// ListTimesheets returns the timesheets of an internship, latest week first.
// @Summary List timesheets of an internship
// @Tags Timesheet
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.Timesheet]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not a participant"
// @Failure 404 {object} utilities.ErrorResponse "Internship not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /internships/{id}/timesheets [get]
func (tc *TimesheetController) ListTimesheets(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return
	}
	internship, ok := tc.InternshipFor(c, user, id)
	if !ok {
		return
	}
	page := utilities.ParsePage(c)

	query := tc.DB.WithContext(c.Request.Context()).Model(&model.Timesheet{}).
		Where("internship_id = ?", internship.ID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}

	sheets := []model.Timesheet{}
	if err := page.Paginate(query).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC") }).
		Order("period_start DESC").
		Find(&sheets).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, utilities.PagedResponse[model.Timesheet]{Data: sheets, Total: total, Page: page})
}

// GetTimesheet returns one timesheet with entries and history.
// @Summary Get timesheet by ID
// @Tags Timesheet
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Timesheet ID"
// @Success 200 {object} model.Timesheet
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not a participant"
// @Failure 404 {object} utilities.ErrorResponse "Timesheet not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /timesheets/{id} [get]
func (tc *TimesheetController) GetTimesheet(c *gin.Context) {
	_, sheet, ok := tc.load(c)
	if !ok {
		return
	}
	history, err := database.History(tc.DB.WithContext(c.Request.Context()), model.OwnerTimesheet, sheet.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to retrieve history", err)
		return
	}
	sheet.History = history
	c.JSON(http.StatusOK, sheet)
}

// ApproveTimesheet signs off the submitted hours.
// @Summary Approve a timesheet
// @Description Only the employer can review timesheets
// @Tags Timesheet
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Timesheet ID"
// @Success 200 {object} model.Timesheet
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the employer"
// @Failure 404 {object} utilities.ErrorResponse "Timesheet not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /timesheets/{id}/approve [post]
func (tc *TimesheetController) ApproveTimesheet(c *gin.Context) {
	user, sheet, ok := tc.loadAsEmployer(c)
	if !ok {
		return
	}
	change, err := sheet.Approve(tc.Clock(), user.ID)
	tc.finish(c, &sheet, change, err)
}

// RejectTimesheet returns the timesheet to the intern. A reason is required.
// @Summary Reject a timesheet
// @Description Only the employer can review timesheets
// @Tags Timesheet
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Timesheet ID"
// @Param body body controller.ReasonBody true "What needs fixing"
// @Success 200 {object} model.Timesheet
// @Failure 400 {object} utilities.ErrorResponse "Missing reason"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the employer"
// @Failure 404 {object} utilities.ErrorResponse "Timesheet not found"
// @Failure 409 {object} utilities.ErrorResponse "Invalid status transition"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /timesheets/{id}/reject [post]
func (tc *TimesheetController) RejectTimesheet(c *gin.Context) {
	reason, ok := controller.BindReason(c)
	if !ok {
		return
	}
	user, sheet, ok := tc.loadAsEmployer(c)
	if !ok {
		return
	}
	change, err := sheet.Reject(tc.Clock(), user.ID, reason)
	tc.finish(c, &sheet, change, err)
}

func (tc *TimesheetController) finish(c *gin.Context, sheet *model.Timesheet, change model.StatusChange, err error) {
	if err != nil {
		utilities.RespondError(c, "Failed to review timesheet", err)
		return
	}
	note := notify.ForChange(sheet.Internship.StudentID, model.NotifyTimesheetReviewed, change)
	if !tc.Transition(c, "Failed to review timesheet", sheet, change, note) {
		return
	}
	c.JSON(http.StatusOK, sheet)
}

// ResubmitTimesheet replaces the entries of a rejected timesheet and sends
// it back for review.
// @Summary Resubmit a rejected timesheet
// @Tags Timesheet
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Timesheet ID"
// @Param timesheet body resubmitInput true "New entries"
// @Success 200 {object} model.Timesheet
// @Failure 400 {object} utilities.ErrorResponse "Invalid entries"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not the intern"
// @Failure 404 {object} utilities.ErrorResponse "Timesheet not found"
// @Failure 409 {object} utilities.ErrorResponse "Timesheet is not rejected"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /timesheets/{id}/resubmit [post]
func (tc *TimesheetController) ResubmitTimesheet(c *gin.Context) {
	var input resubmitInput
	if !bind(c, &input) {
		return
	}
	user, sheet, ok := tc.load(c)
	if !ok {
		return
	}
	if sheet.Internship.StudentID != user.ID {
		controller.Forbidden(c, "Only the intern can resubmit timesheets")
		return
	}

	entries, err := parseEntries(input.Entries)
	if err != nil {
		utilities.RespondError(c, "Invalid timesheet", err)
		return
	}
	change, err := sheet.Resubmit(entries, tc.Clock(), user.ID)
	if err != nil {
		utilities.RespondError(c, "Failed to resubmit timesheet", err)
		return
	}
	for i := range sheet.Entries {
		sheet.Entries[i].TimesheetID = sheet.ID
	}

	err = tc.Tx(c, func(tx *gorm.DB) error {
		if err := database.SaveTransition(tx, &sheet, change); err != nil {
			return err
		}
		if err := tx.Where("timesheet_id = ?", sheet.ID).Delete(&model.TimesheetEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&sheet.Entries).Error; err != nil {
			return err
		}
		return notify.Send(tx, notify.ForChange(sheet.Internship.Company.OwnerUserID, model.NotifyTimesheetSubmitted, change))
	})
	if err != nil {
		utilities.RespondError(c, "Failed to resubmit timesheet", err)
		return
	}
	tc.Publish(c, change)

	c.JSON(http.StatusOK, sheet)
}

// load fetches the :id timesheet with entries and its internship, and
// checks the caller takes part in that internship.
func (tc *TimesheetController) load(c *gin.Context) (model.User, model.Timesheet, bool) {
	var sheet model.Timesheet
	user, ok := controller.CurrentUser(c)
	if !ok {
		return user, sheet, false
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return user, sheet, false
	}
	if err := tc.DB.WithContext(c.Request.Context()).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC") }).
		Preload("Internship.Company").
		First(&sheet, id).Error; err != nil {
		utilities.RespondError(c, "Timesheet not found", err)
		return user, sheet, false
	}
	if user.Role != model.RoleAdmin && !sheet.Internship.IsParticipant(user) {
		controller.Forbidden(c, "You are not a participant of this internship")
		return user, sheet, false
	}
	return user, sheet, true
}

func (tc *TimesheetController) loadAsEmployer(c *gin.Context) (model.User, model.Timesheet, bool) {
	user, sheet, ok := tc.load(c)
	if ok && sheet.Internship.Company.OwnerUserID != user.ID {
		controller.Forbidden(c, "Only the employer can review timesheets")
		return user, sheet, false
	}
	return user, sheet, ok
}
