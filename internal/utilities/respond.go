package utilities

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/model"
)

// StatusFor maps domain and ORM errors to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrReasonRequired):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInvalidTransition), errors.Is(err, model.ErrNotDue), errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err with the status chosen by StatusFor. Unexpected
// errors are prefixed with action so the client sees what failed.
func RespondError(c *gin.Context, action string, err error) {
	status := StatusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = fmt.Sprintf("%s: %s", action, err.Error())
	case http.StatusNotFound:
		msg = fmt.Sprintf("%s: record not found", action)
	}
	c.JSON(status, ErrorResponse{Error: msg})
}

// ParseID reads a positive numeric path parameter.
func ParseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Invalid %s", name)})
		return 0, false
	}
	return uint(id), true
}

// Page is the pagination window read from ?page=&limit=.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Offset is the number of rows to skip.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Paginate applies the window to a gorm query.
func (p Page) Paginate(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.Limit)
}

// ParsePage reads page (default 1) and limit (default 20, max 100).
func ParsePage(c *gin.Context) Page {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return Page{Page: page, Limit: limit}
}

// PagedResponse wraps one page of results.
type PagedResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page
}
