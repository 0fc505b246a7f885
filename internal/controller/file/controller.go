// Package file provides HTTP handlers for uploads and downloads.
package file

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/metrics"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/storage"
	"InternHub-backend/internal/utilities"
)

const uploadObjectPrefix = "uploads"

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// FileController handles file related endpoints. A nil Store keeps file
// content in the database.
type FileController struct {
	controller.Base
	Store    storage.Storage
	MaxBytes int64
}

// NewFileController creates a new instance of FileController
func NewFileController(base controller.Base, store storage.Storage, maxBytes int64) *FileController {
	return &FileController{Base: base, Store: store, MaxBytes: maxBytes}
}

// UploadResponse describes a stored upload.
type UploadResponse struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Upload stores one file and returns the key other requests refer to it by.
// @Summary Upload a file
// @Description Only files smaller than 10 MB with .pdf, .jpg, .jpeg or .png extension are permitted
// @Tags File
// @Accept mpfd
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param file formData file true "File to upload"
// @Success 201 {object} UploadResponse
// @Failure 400 {object} utilities.ErrorResponse "Missing file"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 413 {object} utilities.ErrorResponse "File size is larger than 10 MB"
// @Failure 415 {object} utilities.ErrorResponse "File extension is not allowed"
// @Failure 500 {object} utilities.ErrorResponse "Storage error"
// @Router /upload [post]
func (fc *FileController) Upload(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}

	rawFile, err := c.FormFile("file")
	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		c.JSON(http.StatusRequestEntityTooLarge, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve file: %s", err.Error()),
		})
		return
	}
	if fc.MaxBytes > 0 && rawFile.Size > fc.MaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, utilities.ErrorResponse{
			Error: fmt.Sprintf("File is larger than %d bytes", fc.MaxBytes),
		})
		return
	}

	extension := strings.ToLower(filepath.Ext(rawFile.Filename))
	contentType, allowed := contentTypes[extension]
	if !allowed {
		c.JSON(http.StatusUnsupportedMediaType, utilities.ErrorResponse{
			Error: fmt.Sprintf("Unsupported file extension: %s", extension),
		})
		return
	}

	f, err := rawFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Cannot open file"})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close upload", "error", err)
		}
	}()

	file := model.File{
		Key:         uuid.NewString() + extension,
		OwnerID:     user.ID,
		Filename:    filepath.Base(rawFile.Filename),
		Extension:   extension,
		ContentType: contentType,
		Size:        rawFile.Size,
	}
	if err := fc.persistFileData(c, &file, f); err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to store file: %s", err.Error()),
		})
		return
	}

	if err := fc.DB.WithContext(c.Request.Context()).Create(&file).Error; err != nil {
		fc.discard(c, &file)
		utilities.RespondError(c, "Failed to save file information", err)
		return
	}
	metrics.Uploads.WithLabelValues(fc.backend()).Inc()

	c.JSON(http.StatusCreated, UploadResponse{
		Key:         file.Key,
		Filename:    file.Filename,
		Size:        file.Size,
		ContentType: file.ContentType,
	})
}

// GetFile sends a stored file as a downloadable attachment. The uploader,
// admins and companies that received an application carrying the file may
// download it.
// @Summary Retrieve downloadable attachment
// @Tags File
// @Produce octet-stream
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param key path string true "Key returned by /upload"
// @Success 200 {string} binary "Successfully retrieve file"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not allowed to read this file"
// @Failure 404 {object} utilities.ErrorResponse "Given file key not found"
// @Failure 500 {object} utilities.ErrorResponse "Fail to send file content"
// @Router /files/{key} [get]
func (fc *FileController) GetFile(c *gin.Context) {
	user, ok := controller.CurrentUser(c)
	if !ok {
		return
	}

	var file model.File
	if err := fc.DB.WithContext(c.Request.Context()).First(&file, "key = ?", c.Param("key")).Error; err != nil {
		utilities.RespondError(c, "File not found", err)
		return
	}

	allowed, err := fc.canRead(c, user, &file)
	if err != nil {
		utilities.RespondError(c, "Database error", err)
		return
	}
	if !allowed {
		controller.Forbidden(c, "You are not allowed to read this file")
		return
	}

	fc.writeFileResponse(c, &file)
}

// canRead extends File.CanRead to employers holding an application that
// attached the file.
func (fc *FileController) canRead(c *gin.Context, user model.User, file *model.File) (bool, error) {
	if file.CanRead(user) {
		return true, nil
	}
	if user.Role != model.RoleCompany {
		return false, nil
	}
	var count int64
	err := fc.DB.WithContext(c.Request.Context()).Model(&model.Application{}).
		Joins("JOIN jobs ON jobs.id = applications.job_id").
		Joins("JOIN companies ON companies.id = jobs.company_id").
		Where("applications.resume_key = ? AND companies.owner_user_id = ?", file.Key, user.ID).
		Count(&count).Error
	return count > 0, err
}

func (fc *FileController) writeFileResponse(c *gin.Context, file *model.File) {
	c.Writer.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Writer.Header().Set("Content-Type", "application/octet-stream")

	if file.StorageObject != "" {
		if fc.Store == nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: "Object storage is disabled while the requested file is stored remotely",
			})
			return
		}
		reader, info, err := fc.Store.Get(c.Request.Context(), file.StorageObject)
		if err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to download file from storage: %s", err.Error()),
			})
			return
		}
		defer func() {
			if err := reader.Close(); err != nil {
				slog.Warn("failed to close storage reader", "key", file.Key, "error", err)
			}
		}()

		if info.Size > 0 {
			c.Writer.Header().Set("Content-Length", fmt.Sprint(info.Size))
		}
		if _, err := io.Copy(c.Writer, reader); err != nil {
			fc.handleWriterError(c, err)
		}
		return
	}

	c.Writer.Header().Set("Content-Length", fmt.Sprint(len(file.Content)))
	if _, err := c.Writer.Write(file.Content); err != nil {
		fc.handleWriterError(c, err)
	}
}

func (fc *FileController) handleWriterError(c *gin.Context, err error) {
	slog.Warn("failed to send file", "error", err)
	if !c.Writer.Written() {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: "Failed to send file content",
		})
	} else {
		c.Abort()
	}
}

// persistFileData streams r to the object store, or reads it into
// file.Content when none is configured.
func (fc *FileController) persistFileData(c *gin.Context, file *model.File, r io.Reader) error {
	if fc.Store == nil {
		content, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		file.Content = content
		file.StorageObject = ""
		return nil
	}

	objectName := fmt.Sprintf("%s/%s/%s", uploadObjectPrefix, file.OwnerID, file.Key)
	if err := fc.Store.Put(c.Request.Context(), objectName, r, file.Size, file.ContentType); err != nil {
		return err
	}
	file.StorageObject = objectName
	file.Content = nil
	return nil
}

// discard removes an object whose metadata could not be saved.
func (fc *FileController) discard(c *gin.Context, file *model.File) {
	if fc.Store == nil || file.StorageObject == "" {
		return
	}
	if err := fc.Store.Delete(c.Request.Context(), file.StorageObject); err != nil {
		slog.Warn("failed to delete orphaned object", "object", file.StorageObject, "error", err)
	}
}

func (fc *FileController) backend() string {
	if fc.Store == nil {
		return storage.BackendDatabase
	}
	return fc.Store.Backend()
}

