package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	httpapi "github.com/yungbote/coursehub-backend/internal/http"
	httpH "github.com/yungbote/coursehub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursehub-backend/internal/http/middleware"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Auth       *httpH.AuthHandler
	User       *httpH.UserHandler
	Course     *httpH.CourseHandler
	Lesson     *httpH.LessonHandler
	Enrollment *httpH.EnrollmentHandler
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Auth:       httpH.NewAuthHandler(services.Auth),
		User:       httpH.NewUserHandler(services.User),
		Course:     httpH.NewCourseHandler(log, services.Course, services.Enrollment),
		Lesson:     httpH.NewLessonHandler(services.Lesson),
		Enrollment: httpH.NewEnrollmentHandler(services.Enrollment),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:               log,
		ServiceName:       cfg.Otel.ServiceName,
		AllowedOrigins:    cfg.AllowedOrigins,
		AuthMiddleware:    middleware.Auth,
		HealthHandler:     handlers.Health,
		AuthHandler:       handlers.Auth,
		UserHandler:       handlers.User,
		CourseHandler:     handlers.Course,
		LessonHandler:     handlers.Lesson,
		EnrollmentHandler: handlers.Enrollment,
	})
}
