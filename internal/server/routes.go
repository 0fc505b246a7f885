// Package server wires the gin engine: middleware, routes and handlers.
package server

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Init swagger doc
	_ "InternHub-backend/docs"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/controller/admin"
	"InternHub-backend/internal/controller/application"
	"InternHub-backend/internal/controller/company"
	"InternHub-backend/internal/controller/file"
	"InternHub-backend/internal/controller/internship"
	"InternHub-backend/internal/controller/job"
	"InternHub-backend/internal/controller/notification"
	"InternHub-backend/internal/controller/request"
	"InternHub-backend/internal/controller/timesheet"
	"InternHub-backend/internal/controller/user"
	"InternHub-backend/internal/controller/verification"
	"InternHub-backend/internal/middleware"
	"InternHub-backend/internal/model"
)

// RegisterRoutes will register each http endpoint on a new gin engine.
func (s *Server) RegisterRoutes() (http.Handler, error) {
	r := gin.Default()

	reg := s.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if s.Config.MetricsEnabled {
		prom, err := middleware.NewPrometheusMiddleware(reg)
		if err != nil {
			return nil, err
		}
		r.Use(prom.Handler())
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.Config.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(middleware.SafeHeader())

	blacklist := s.sessionBlacklist()

	base := controller.NewBase(s.DB, s.Events)
	lAuth := auth.NewLocalAuthHandler(s.DB)
	logout := auth.NewLogoutController(blacklist)
	users := user.NewUserController(base)
	companies := company.NewCompanyController(base)
	admins := admin.NewAdminController(base)
	verifications := verification.NewVerificationController(base)
	jobs := job.NewJobController(base)
	applications := application.NewApplicationController(base)
	internships := internship.NewInternshipController(base)
	timesheets := timesheet.NewTimesheetController(base)
	requests := request.NewRequestController(base)
	notifications := notification.NewNotificationController(base)
	files := file.NewFileController(base, s.Store, s.Config.Storage.MaxUploadBytes)

	r.GET("/health", s.healthHandler)
	if s.Config.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		// Anonymous routes are limited per client IP, the rest per user.
		authRoute := v1.Group("/auth")
		authRoute.Use(middleware.RateLimiterMiddleware(s.Config.RateLimit, s.Redis))
		{
			authRoute.POST("register", lAuth.RegisterHandler)
			authRoute.POST("login", lAuth.LoginHandler)
			authRoute.POST("logout", middleware.JwtBlacklistCheck(blacklist), middleware.RequireAuth(s.DB), logout.LogoutHandler)
		}

		needAuth := v1.Group("")
		needAuth.Use(middleware.JwtBlacklistCheck(blacklist), middleware.RequireAuth(s.DB),
			middleware.RateLimiterMiddleware(s.Config.RateLimit, s.Redis))
		{
			needAuth.GET("/me", users.GetMe)
			needAuth.POST("/upload", middleware.SizeLimit(s.Config.Storage.MaxUploadBytes), files.Upload)
			needAuth.GET("/files/:key", files.GetFile)

			studentRoute := needAuth.Group("/students/me", middleware.CheckRole(model.RoleStudent))
			{
				studentRoute.GET("", users.GetStudentProfile)
				studentRoute.PATCH("", users.EditStudentProfile)
			}

			companyRoute := needAuth.Group("/companies")
			{
				companyRoute.GET("/me", middleware.CheckRole(model.RoleCompany), companies.GetMyCompany)
				companyRoute.PATCH("/me", middleware.CheckRole(model.RoleCompany), companies.EditMyCompany)
				companyRoute.GET("/:id", companies.GetCompanyByID)
				companyRoute.GET("", middleware.CheckRole(model.RoleAdmin), admins.ListCompanies)
				companyRoute.POST("/:id/suspend", middleware.CheckRole(model.RoleAdmin), admins.SuspendCompany)
				companyRoute.POST("/:id/reinstate", middleware.CheckRole(model.RoleAdmin), admins.ReinstateCompany)
			}

			verificationRoute := needAuth.Group("/company-verifications")
			{
				verificationRoute.POST("", middleware.CheckRole(model.RoleCompany), verifications.SubmitVerification)
				verificationRoute.Use(middleware.CheckRole(model.RoleCompany, model.RoleAdmin))
				verificationRoute.GET("", verifications.ListVerifications)
				verificationRoute.GET("/:id", verifications.GetVerification)
				verificationRoute.POST("/:id/approve", middleware.CheckRole(model.RoleAdmin), verifications.ApproveVerification)
				verificationRoute.POST("/:id/reject", middleware.CheckRole(model.RoleAdmin), verifications.RejectVerification)
			}

			jobRoute := needAuth.Group("/jobs")
			{
				jobRoute.GET("", jobs.GetJobs)
				jobRoute.GET("/:id", jobs.GetJobByID)
				jobRoute.POST("", middleware.CheckRole(model.RoleCompany), jobs.CreateJob)
				jobRoute.GET("/mine", middleware.CheckRole(model.RoleCompany), jobs.GetMyJobs)
				jobRoute.POST("/:id/submit", middleware.CheckRole(model.RoleCompany), jobs.SubmitJob)
				jobRoute.GET("/pending", middleware.CheckRole(model.RoleAdmin), jobs.GetPendingJobs)
				jobRoute.POST("/:id/approve", middleware.CheckRole(model.RoleAdmin), jobs.ApproveJob)
				jobRoute.POST("/:id/reject", middleware.CheckRole(model.RoleAdmin), jobs.RejectJob)

				managed := jobRoute.Group("", middleware.CheckRole(model.RoleCompany, model.RoleAdmin))
				managed.PATCH("/:id", jobs.EditJob)
				managed.DELETE("/:id", jobs.DeleteJob)
				managed.POST("/:id/close", jobs.CloseJob)
				managed.GET("/:id/applications", jobs.GetJobApplications)
			}

			applicationRoute := needAuth.Group("/applications")
			{
				applicationRoute.GET("/:id", applications.GetApplication)

				asStudent := applicationRoute.Group("", middleware.CheckRole(model.RoleStudent))
				asStudent.POST("", applications.Apply)
				asStudent.GET("/mine", applications.GetMyApplications)
				asStudent.POST("/:id/withdraw", applications.Withdraw)
				asStudent.POST("/:id/accept", applications.AcceptOffer)
				asStudent.POST("/:id/decline", applications.DeclineOffer)

				asCompany := applicationRoute.Group("", middleware.CheckRole(model.RoleCompany))
				asCompany.POST("/:id/shortlist", applications.Shortlist)
				asCompany.POST("/:id/reject", applications.Reject)
				asCompany.POST("/:id/offer", applications.MakeOffer)
			}

			internshipRoute := needAuth.Group("/internships")
			{
				internshipRoute.GET("/mine", middleware.CheckRole(model.RoleStudent, model.RoleCompany), internships.GetMyInternships)
				internshipRoute.GET("/:id", internships.GetInternship)
				internshipRoute.GET("/:id/timesheets", timesheets.ListTimesheets)
				internshipRoute.POST("/:id/timesheets", middleware.CheckRole(model.RoleStudent), timesheets.SubmitTimesheet)
				internshipRoute.GET("/:id/requests", requests.ListRequests)
				internshipRoute.POST("/:id/requests", middleware.CheckRole(model.RoleStudent, model.RoleCompany), requests.CreateRequest)
			}

			timesheetRoute := needAuth.Group("/timesheets")
			{
				timesheetRoute.GET("/:id", timesheets.GetTimesheet)
				timesheetRoute.POST("/:id/approve", middleware.CheckRole(model.RoleCompany), timesheets.ApproveTimesheet)
				timesheetRoute.POST("/:id/reject", middleware.CheckRole(model.RoleCompany), timesheets.RejectTimesheet)
				timesheetRoute.POST("/:id/resubmit", middleware.CheckRole(model.RoleStudent), timesheets.ResubmitTimesheet)
			}

			requestRoute := needAuth.Group("/requests")
			{
				requestRoute.GET("/:id", requests.GetRequest)
				requestRoute.POST("/:id/approve", requests.ApproveRequest)
				requestRoute.POST("/:id/reject", requests.RejectRequest)
			}

			notificationRoute := needAuth.Group("/notifications")
			{
				notificationRoute.GET("", notifications.ListNotifications)
				notificationRoute.GET("/unread-count", notifications.GetUnreadCount)
				notificationRoute.POST("/read-all", notifications.MarkAllRead)
				notificationRoute.POST("/:id/read", notifications.MarkRead)
			}
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r, nil
}

// healthHandler reports database health; 503 when the database is down.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (s *Server) healthHandler(c *gin.Context) {
	stats := s.DB.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}

// sessionBlacklist returns the configured store, falling back to Redis when
// available and to process memory otherwise.
func (s *Server) sessionBlacklist() auth.JwtBlacklistStore {
	switch {
	case s.Blacklist != nil:
		return s.Blacklist
	case s.Redis != nil:
		return auth.NewRedisBlacklistStore(s.Redis)
	default:
		return auth.NewInMemoryBlacklistStore(context.Background(), auth.DefaultBlacklistCleanup)
	}
}
