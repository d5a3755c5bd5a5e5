package learning

import (
	"testing"

	"github.com/google/uuid"
)

func TestMarkCompletedIsSetInsert(t *testing.T) {
	e := &Enrollment{}
	l1 := uuid.New()

	if !e.MarkCompleted(l1) {
		t.Fatal("first insert should report added")
	}
	if e.MarkCompleted(l1) {
		t.Fatal("second insert should be a no-op")
	}
	if len(e.CompletedLessons) != 1 || e.CompletedLessons[0] != l1 {
		t.Fatalf("unexpected completed set: %v", e.CompletedLessons)
	}
}

func TestCountsTowardEnrollment(t *testing.T) {
	for status, want := range map[EnrollmentStatus]bool{
		EnrollmentStatusActive:    true,
		EnrollmentStatusCompleted: true,
		EnrollmentStatusDropped:   false,
	} {
		e := &Enrollment{Status: status}
		if got := e.CountsTowardEnrollment(); got != want {
			t.Fatalf("%s: want=%v got=%v", status, want, got)
		}
	}
}

func TestEnumValidation(t *testing.T) {
	if !CategoryITSoftware.Valid() || Category("cooking").Valid() {
		t.Fatal("category validation mismatch")
	}
	if !LevelAllLevels.Valid() || Level("expert").Valid() {
		t.Fatal("level validation mismatch")
	}
	if !LessonTypeDocument.Valid() || LessonType("audio").Valid() {
		t.Fatal("lesson type validation mismatch")
	}
}
