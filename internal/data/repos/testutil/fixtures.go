package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, role types.Role) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
		Role:      role,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, instructorID uuid.UUID, status types.CourseStatus) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:           uuid.New(),
		InstructorID: instructorID,
		Title:        "course",
		Description:  "description",
		Category:     "development",
		Level:        "beginner",
		Price:        10,
		Status:       status,
		IsPublished:  status == types.CourseStatusApproved,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedLessons creates n video lessons with strictly increasing created_at so authoring
// order is deterministic.
func SeedLessons(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, n int) []*types.Lesson {
	tb.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	out := make([]*types.Lesson, 0, n)
	for i := 0; i < n; i++ {
		l := &types.Lesson{
			ID:            uuid.New(),
			CourseID:      courseID,
			Title:         "lesson",
			Type:          types.LessonTypeVideo,
			VideoURL:      "https://cdn.example.com/v.mp4",
			VideoPublicID: "lessons/" + courseID.String() + "/" + uuid.NewString() + ".mp4",
			Order:         i + 1,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
			UpdatedAt:     base.Add(time.Duration(i) * time.Second),
		}
		if err := tx.WithContext(ctx).Create(l).Error; err != nil {
			tb.Fatalf("seed lesson: %v", err)
		}
		out = append(out, l)
	}
	return out
}

func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID, status types.EnrollmentStatus) *types.Enrollment {
	tb.Helper()
	now := time.Now().UTC()
	e := &types.Enrollment{
		ID:               uuid.New(),
		StudentID:        studentID,
		CourseID:         courseID,
		Status:           status,
		CompletedLessons: datatypes.JSONSlice[uuid.UUID]{},
		EnrolledAt:       now,
		LastAccessedAt:   now,
	}
	if status == types.EnrollmentStatusCompleted {
		e.Progress = 100
		e.CompletedAt = PtrTime(now)
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func PtrInt(v int) *int { return &v }

func PtrString(v string) *string { return &v }
