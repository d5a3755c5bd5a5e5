package repos

import (
	"github.com/yungbote/coursehub-backend/internal/data/repos/auth"
	"github.com/yungbote/coursehub-backend/internal/data/repos/learning"
	"github.com/yungbote/coursehub-backend/internal/data/repos/user"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo
type UserQuery = user.UserQuery
type UserTokenRepo = auth.UserTokenRepo
type PasswordResetTokenRepo = auth.PasswordResetTokenRepo

type CourseRepo = learning.CourseRepo
type CourseQuery = learning.CourseQuery
type LessonRepo = learning.LessonRepo
type EnrollmentRepo = learning.EnrollmentRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}
func NewPasswordResetTokenRepo(db *gorm.DB, baseLog *logger.Logger) PasswordResetTokenRepo {
	return auth.NewPasswordResetTokenRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}
func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return learning.NewLessonRepo(db, baseLog)
}
func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return learning.NewEnrollmentRepo(db, baseLog)
}
