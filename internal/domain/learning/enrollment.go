package learning

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/domain/user"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Enrollment joins one student to one course. The (student_id, course_id) pair is unique
// across every status, dropped rows included.
type Enrollment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course,priority:1" json:"student_id"`
	Student   *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
	CourseID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course,priority:2;index" json:"course_id"`
	Course    *Course    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`

	Status           EnrollmentStatus               `gorm:"column:status;not null;index" json:"status"`
	Progress         int                            `gorm:"column:progress;not null;default:0" json:"progress"`
	CompletedLessons datatypes.JSONSlice[uuid.UUID] `gorm:"column:completed_lessons" json:"completed_lessons"`

	Rating *int    `gorm:"column:rating" json:"rating"`
	Review *string `gorm:"column:review;type:text" json:"review"`

	EnrolledAt     time.Time  `gorm:"column:enrolled_at;not null" json:"enrolled_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at"`
	LastAccessedAt time.Time  `gorm:"column:last_accessed_at;not null" json:"last_accessed_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = EnrollmentStatusActive
	}
	if e.CompletedLessons == nil {
		e.CompletedLessons = datatypes.JSONSlice[uuid.UUID]{}
	}
	return nil
}

// HasCompleted reports whether lessonID is already in the completed set.
func (e *Enrollment) HasCompleted(lessonID uuid.UUID) bool {
	for _, id := range e.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// MarkCompleted adds lessonID to the completed set. It reports false when already present.
func (e *Enrollment) MarkCompleted(lessonID uuid.UUID) bool {
	if e.HasCompleted(lessonID) {
		return false
	}
	e.CompletedLessons = append(e.CompletedLessons, lessonID)
	return true
}

// CountsTowardEnrollment reports whether the row is included in Course.EnrolledCount.
func (e *Enrollment) CountsTowardEnrollment() bool {
	return e.Status != EnrollmentStatusDropped
}
