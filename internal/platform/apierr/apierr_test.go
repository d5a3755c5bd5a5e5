package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusAndCodeSurviveWrapping(t *testing.T) {
	base := Forbidden("not_enrollment_owner")
	wrapped := fmt.Errorf("complete lesson: %w", base)

	if got := StatusOf(wrapped); got != http.StatusForbidden {
		t.Fatalf("status: want=%d got=%d", http.StatusForbidden, got)
	}
	if got := CodeOf(wrapped); got != "not_enrollment_owner" {
		t.Fatalf("code: want=%q got=%q", "not_enrollment_owner", got)
	}
}

func TestStatusOfPlainError(t *testing.T) {
	if got := StatusOf(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", got)
	}
	if got := StatusOf(nil); got != http.StatusOK {
		t.Fatalf("status for nil: want=200 got=%d", got)
	}
	if got := CodeOf(errors.New("boom")); got != "" {
		t.Fatalf("code: want empty got=%q", got)
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	if got := NotFound("course_not_found").Error(); got != "course_not_found" {
		t.Fatalf("message: got=%q", got)
	}
	if got := New(http.StatusTeapot, "", nil).Error(); got != "api error (418)" {
		t.Fatalf("message: got=%q", got)
	}
	inner := errors.New("rating must be between 1 and 5")
	if got := Validation("rating_out_of_range", inner).Error(); got != inner.Error() {
		t.Fatalf("message: got=%q", got)
	}
}
