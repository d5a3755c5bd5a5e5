package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	httpH "github.com/yungbote/coursehub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursehub-backend/internal/http/middleware"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	AuthHandler       *httpH.AuthHandler
	UserHandler       *httpH.UserHandler
	CourseHandler     *httpH.CourseHandler
	LessonHandler     *httpH.LessonHandler
	EnrollmentHandler *httpH.EnrollmentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "coursehub"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	// Auth (public)
	if cfg.AuthHandler != nil {
		public := api.Group("/auth")
		public.POST("/register", cfg.AuthHandler.Register)
		public.POST("/login", cfg.AuthHandler.Login)
		public.POST("/refresh", cfg.AuthHandler.Refresh)
		public.POST("/forgot-password", cfg.AuthHandler.ForgotPassword)
		public.POST("/reset-password", cfg.AuthHandler.ResetPassword)
	}

	if cfg.AuthMiddleware == nil {
		return r
	}

	// Catalog (anonymous or signed in)
	browse := api.Group("/", cfg.AuthMiddleware.OptionalAuth())
	{
		if cfg.CourseHandler != nil {
			browse.GET("/courses", cfg.CourseHandler.ListPublished)
			browse.GET("/courses/:id", cfg.CourseHandler.Get)
			browse.GET("/courses/:id/reviews", cfg.CourseHandler.ListReviews)
		}
		if cfg.LessonHandler != nil {
			browse.GET("/courses/:id/lessons", cfg.LessonHandler.ListCourseLessons)
		}
	}

	protected := api.Group("/", cfg.AuthMiddleware.RequireAuth())
	{
		if cfg.AuthHandler != nil {
			protected.POST("/auth/logout", cfg.AuthHandler.Logout)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.PUT("/me", cfg.UserHandler.UpdateMe)
		}

		if cfg.EnrollmentHandler != nil {
			protected.GET("/enrollments/:id", cfg.EnrollmentHandler.Get)
		}
	}

	// Course authoring
	authoring := protected.Group("/", httpMW.RequireRole(types.RoleInstructor, types.RoleAdmin))
	{
		if cfg.CourseHandler != nil {
			authoring.POST("/courses", cfg.CourseHandler.Create)
			authoring.PUT("/courses/:id", cfg.CourseHandler.Update)
			authoring.DELETE("/courses/:id", cfg.CourseHandler.Delete)
		}
		if cfg.LessonHandler != nil {
			authoring.POST("/courses/:id/lessons", cfg.LessonHandler.Upload)
			authoring.PUT("/lessons/:id", cfg.LessonHandler.Update)
			authoring.DELETE("/lessons/:id", cfg.LessonHandler.Delete)
		}
	}

	instructor := protected.Group("/instructor", httpMW.RequireRole(types.RoleInstructor))
	if cfg.CourseHandler != nil {
		instructor.GET("/courses", cfg.CourseHandler.ListMine)
	}

	// Enrollment lifecycle
	students := protected.Group("/", httpMW.RequireRole(types.RoleStudent))
	if cfg.EnrollmentHandler != nil {
		students.POST("/enrollments", cfg.EnrollmentHandler.Enroll)
		students.GET("/enrollments", cfg.EnrollmentHandler.ListMine)
		students.GET("/enrollments/check/:courseId", cfg.EnrollmentHandler.Check)
		students.PUT("/enrollments/:id/lessons/:lessonId/complete", cfg.EnrollmentHandler.CompleteLesson)
		students.PUT("/enrollments/:id/review", cfg.EnrollmentHandler.Review)
		students.PUT("/enrollments/:id/drop", cfg.EnrollmentHandler.Drop)
	}

	// Admin
	admin := protected.Group("/admin", httpMW.RequireRole(types.RoleAdmin))
	{
		if cfg.CourseHandler != nil {
			admin.GET("/courses/pending", cfg.CourseHandler.ListPending)
			admin.PUT("/courses/:id/approve", cfg.CourseHandler.Approve)
			admin.PUT("/courses/:id/reject", cfg.CourseHandler.Reject)
			admin.POST("/courses/:id/recompute", cfg.CourseHandler.RecomputeAggregates)
		}
		if cfg.UserHandler != nil {
			admin.GET("/users", cfg.UserHandler.ListUsers)
		}
		if cfg.EnrollmentHandler != nil {
			admin.DELETE("/enrollments/:id", cfg.EnrollmentHandler.AdminDelete)
		}
	}

	return r
}
