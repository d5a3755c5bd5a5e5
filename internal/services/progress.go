package services

import (
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/coursehub-backend/internal/domain"
)

// ComputeProgress rounds 100*completed/total half up. ok is false when total is zero, in
// which case the caller must leave progress untouched.
func ComputeProgress(completed, total int) (progress int, ok bool) {
	if total <= 0 {
		return 0, false
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	return (200*completed + total) / (2 * total), true
}

// ApplyProgress recomputes e.Progress from the lessons the course currently has and performs
// the one-way transition to completed. It reports whether that transition happened.
//
// Completed lessons that no longer belong to the course are not counted. A course without
// lessons leaves progress as it was. A completed enrollment stays completed whatever the
// new progress.
func ApplyProgress(e *types.Enrollment, courseLessonIDs []uuid.UUID, now time.Time) bool {
	if e == nil {
		return false
	}
	inCourse := make(map[uuid.UUID]struct{}, len(courseLessonIDs))
	for _, id := range courseLessonIDs {
		inCourse[id] = struct{}{}
	}
	done := 0
	for _, id := range e.CompletedLessons {
		if _, ok := inCourse[id]; ok {
			done++
		}
	}
	progress, ok := ComputeProgress(done, len(inCourse))
	if !ok {
		return false
	}
	e.Progress = progress
	if progress == 100 && e.Status != types.EnrollmentStatusCompleted {
		e.Status = types.EnrollmentStatusCompleted
		at := now
		e.CompletedAt = &at
		return true
	}
	return false
}
