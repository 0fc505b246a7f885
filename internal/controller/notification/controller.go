// Package notification serves the caller's in-app notifications.
package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// NotificationController serves the caller's notification inbox.
type NotificationController struct {
	controller.Base
}

// NewNotificationController creates a new instance of NotificationController
func NewNotificationController(base controller.Base) *NotificationController {
	return &NotificationController{Base: base}
}

// UnreadCount is the body of GET /notifications/unread-count.
type UnreadCount struct {
	Unread int64 `json:"unread"`
}

// MarkedCount is the body of POST /notifications/read-all.
type MarkedCount struct {
	Marked int64 `json:"marked"`
}

// ListNotifications returns the caller's notifications, newest first.
// @Summary List my notifications
// @Tags Notification
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param unread query bool false "Only unread notifications"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utilities.PagedResponse[model.Notification]
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /notifications [get]
func (nc *NotificationController) ListNotifications(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	page := utilities.ParsePage(c)

	query := nc.DB.WithContext(c.Request.Context()).Model(&model.Notification{}).
		Where("user_id = ?", user.ID)
	if unread, _ := strconv.ParseBool(c.Query("unread")); unread {
		query = query.Where("read = ?", false)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	notes := []model.Notification{}
	if err := page.Paginate(query).Order("created_at DESC, id DESC").Find(&notes).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, utilities.PagedResponse[model.Notification]{Data: notes, Total: total, Page: page})
}

// GetUnreadCount
// @Summary Count my unread notifications
// @Tags Notification
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} UnreadCount
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /notifications/unread-count [get]
func (nc *NotificationController) GetUnreadCount(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	var count int64
	if err := nc.DB.WithContext(c.Request.Context()).Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", user.ID, false).
		Count(&count).Error; err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, UnreadCount{Unread: count})
}

// MarkRead marks one of the caller's notifications read. Notifications of
// other users answer 404.
// @Summary Mark a notification read
// @Tags Notification
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Notification ID"
// @Success 200 {object} model.Notification
// @Failure 400 {object} utilities.ErrorResponse "Invalid id"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 404 {object} utilities.ErrorResponse "Notification not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /notifications/{id}/read [post]
func (nc *NotificationController) MarkRead(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseID(c, "id")
	if !ok {
		return
	}

	db := nc.DB.WithContext(c.Request.Context())
	var note model.Notification
	if err := db.Where("id = ? AND user_id = ?", id, user.ID).First(&note).Error; err != nil {
		utilities.RespondError(c, "Notification not found", err)
		return
	}
	if !note.Read {
		now := nc.Clock()
		if err := db.Model(&note).Updates(map[string]any{"read": true, "read_at": now}).Error; err != nil {
			utilities.RespondError(c, "Failed to update notification", err)
			return
		}
		note.Read, note.ReadAt = true, &now
	}
	c.JSON(http.StatusOK, note)
}

// MarkAllRead marks every unread notification of the caller read.
// @Summary Mark all my notifications read
// @Tags Notification
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} MarkedCount
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /notifications/read-all [post]
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}
	res := nc.DB.WithContext(c.Request.Context()).Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", user.ID, false).
		Updates(map[string]any{"read": true, "read_at": nc.Clock()})
	if res.Error != nil {
		utilities.RespondError(c, "Failed to update notifications", res.Error)
		return
	}
	c.JSON(http.StatusOK, MarkedCount{Marked: res.RowsAffected})
}
