package domain

import (
	"github.com/yungbote/coursehub-backend/internal/domain/auth"
	"github.com/yungbote/coursehub-backend/internal/domain/learning"
	"github.com/yungbote/coursehub-backend/internal/domain/user"
)

type User = user.User
type Role = user.Role
type UserToken = auth.UserToken
type PasswordResetToken = auth.PasswordResetToken

type Course = learning.Course
type CourseStatus = learning.CourseStatus
type Category = learning.Category
type Level = learning.Level
type Lesson = learning.Lesson
type LessonType = learning.LessonType
type Enrollment = learning.Enrollment
type EnrollmentStatus = learning.EnrollmentStatus

const (
	RoleStudent    = user.RoleStudent
	RoleInstructor = user.RoleInstructor
	RoleAdmin      = user.RoleAdmin

	CourseStatusPending  = learning.CourseStatusPending
	CourseStatusApproved = learning.CourseStatusApproved
	CourseStatusRejected = learning.CourseStatusRejected

	LevelBeginner     = learning.LevelBeginner
	LevelIntermediate = learning.LevelIntermediate
	LevelAdvanced     = learning.LevelAdvanced
	LevelAllLevels    = learning.LevelAllLevels

	LessonTypeVideo    = learning.LessonTypeVideo
	LessonTypeDocument = learning.LessonTypeDocument

	EnrollmentStatusActive    = learning.EnrollmentStatusActive
	EnrollmentStatusCompleted = learning.EnrollmentStatusCompleted
	EnrollmentStatusDropped   = learning.EnrollmentStatusDropped
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&PasswordResetToken{},
		&Course{},
		&Lesson{},
		&Enrollment{},
	}
}

func ParseRole(s string) (Role, error) { return user.ParseRole(s) }
