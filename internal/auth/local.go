package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// LocalAuthHandler holds DB reference for handler methods.
type LocalAuthHandler struct {
	DB *database.DBinstanceStruct
}

// NewLocalAuthHandler creates a new instance of LocalAuthHandler with the provided database connection.
func NewLocalAuthHandler(db *database.DBinstanceStruct) *LocalAuthHandler {
	return &LocalAuthHandler{
		DB: db,
	}
}

type registerInfo struct {
	Username    string  `json:"username" binding:"required"`
	Password    string  `json:"password" binding:"required"`
	Role        string  `json:"role" binding:"required,oneof=student company"`
	Email       *string `json:"email" binding:"omitempty,email"`
	CompanyName string  `json:"company_name"`
}

type loginInfo struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is returned after a successful registration. Exactly one
// of Student and Company is set, matching the role.
type RegisterResponse struct {
	User        model.User     `json:"user"`
	Student     *model.Student `json:"student,omitempty"`
	Company     *model.Company `json:"company,omitempty"`
	AccessToken string         `json:"access_token"`
}

// LoginResponse carries the authenticated user and a fresh access token.
type LoginResponse struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"access_token"`
}

// RegisterHandler creates a student or company account. Companies start
// with a pending company record that must pass verification.
// @Summary Register with username and password
// @Description Username and email must be unused and password must be at least 8 characters long
// @Tags Auth
// @Accept json
// @Produce json
// @Param Info body registerInfo true "role can be only 'student' or 'company'"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} utilities.ErrorResponse "Info provided not met the condition"
// @Failure 409 {object} utilities.ErrorResponse "Username or email already exist"
// @Failure 500 {object} utilities.ErrorResponse "Database or password hashing error"
// @Router /auth/register [post]
func (lh *LocalAuthHandler) RegisterHandler(c *gin.Context) {
	var info registerInfo

	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Username, password, and Role (Only 'student' or 'company') must be provided",
		})
		return
	}
	info.Username = strings.TrimSpace(info.Username)

	if len(info.Password) < MinPasswordLength {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Password should longer or equal to 8 characters",
		})
		return
	}

	hashedPassword, err := utilities.HashPassword(info.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed hash password: %s", err.Error()),
		})
		return
	}

	resp := RegisterResponse{
		User: model.User{
			Username:         info.Username,
			Password:         hashedPassword,
			Role:             info.Role,
			EditableUserInfo: model.EditableUserInfo{Email: info.Email},
		},
	}

	err = lh.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&resp.User).Error; err != nil {
			return err
		}

		switch info.Role {
		case model.RoleStudent:
			student := model.Student{UserID: resp.User.ID}
			if err := tx.Create(&student).Error; err != nil {
				return err
			}
			resp.Student = &student
		case model.RoleCompany:
			name := strings.TrimSpace(info.CompanyName)
			if name == "" {
				name = info.Username
			}
			company := model.NewCompany(resp.User.ID, model.EditableCompanyInfo{Name: name}, time.Now().UTC())
			if err := tx.Create(&company).Error; err != nil {
				return err
			}
			resp.Company = &company
		}
		return nil
	})
	switch {
	case database.IsUniqueViolation(err):
		LogAuthAttempt("info", "Local", "Fail", info.Username, "register: duplicate username or email")
		c.JSON(http.StatusConflict, utilities.ErrorResponse{
			Error: "Username or email already exist",
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to create user: %s", err.Error()),
		})
		return
	}

	resp.AccessToken, err = GenerateStandardToken(resp.User.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to generate access token: %s", err.Error()),
		})
		return
	}

	LogAuthAttempt("info", "Local", "Success", info.Username, "register as "+info.Role)
	c.JSON(http.StatusCreated, resp)
}

// LoginHandler checks credentials and returns an access token.
// @Summary Login with username and password
// @Description Username must exist and password match
// @Tags Auth
// @Accept json
// @Produce json
// @Param Info body loginInfo true "Credentials for login"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} utilities.ErrorResponse "Info provided not met the condition"
// @Failure 401 {object} utilities.ErrorResponse "Username not exist or password incorrect"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /auth/login [post]
func (lh *LocalAuthHandler) LoginHandler(c *gin.Context) {
	var info loginInfo

	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Username or password is not provided",
		})
		return
	}

	var user model.User
	err := lh.DB.Where("username = ?", strings.TrimSpace(info.Username)).First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		LogAuthAttempt("info", "Local", "Fail", info.Username, "unknown username")
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{
			Error: "Username or password is incorrect",
		})
		return

	case err == nil:
		// Do nothing

	default:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}

	if user.Password == "" || !utilities.VerifyPassword(info.Password, user.Password) {
		LogAuthAttempt("info", "Local", "Fail", info.Username, "wrong password")
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{
			Error: "Username or password is incorrect",
		})
		return
	}

	accessToken, err := GenerateStandardToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to generate access token: %s", err.Error()),
		})
		return
	}

	LogAuthAttempt("info", "Local", "Success", info.Username, "")
	c.JSON(http.StatusOK, LoginResponse{
		User:        user,
		AccessToken: accessToken,
	})
}
