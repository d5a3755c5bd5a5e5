package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type Services struct {
	Mail       services.MailService
	Auth       services.AuthService
	User       services.UserService
	Ratings    services.RatingAggregator
	Course     services.CourseService
	Lesson     services.LessonService
	Enrollment services.EnrollmentService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")

	mail := services.NewMailService(log, clients.Mail, cfg.PublicURL)
	ratings := services.NewRatingAggregator(log, repos.Course)

	return Services{
		Mail:    mail,
		Auth:    services.NewAuthService(db, log, repos.User, repos.UserToken, repos.PasswordReset, mail, cfg.Auth),
		User:    services.NewUserService(db, log, repos.User),
		Ratings: ratings,
		Course: services.NewCourseService(
			db, log,
			repos.Course, repos.Lesson, repos.Enrollment,
			clients.Media, clients.Cache, cfg.CatalogCacheTTL,
		),
		Lesson: services.NewLessonService(db, log, repos.Course, repos.Lesson, repos.Enrollment, clients.Media),
		Enrollment: services.NewEnrollmentService(
			db, log,
			repos.Course, repos.Lesson, repos.Enrollment,
			ratings, cfg.ReenrollPolicy,
		),
	}
}
