package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"gorm.io/gorm"
)

// SideEffect reports a denormalized write that failed after the primary write committed.
type SideEffect struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

const (
	sideEffectEnrolledCount = "enrolled_count"
	sideEffectCourseRating  = "course_rating"
)

// Requester is the authenticated caller an operation runs on behalf of.
type Requester struct {
	UserID uuid.UUID
	Role   types.Role
}

// RequesterFromContext reads the caller installed by the auth middleware.
func RequesterFromContext(ctx context.Context) (Requester, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return Requester{}, apierr.Unauthorized("unauthorized", errors.New("no authenticated user"))
	}
	role, err := types.ParseRole(rd.Role)
	if err != nil {
		return Requester{}, apierr.Unauthorized("unauthorized", err)
	}
	return Requester{UserID: rd.UserID, Role: role}, nil
}

// OptionalRequester is RequesterFromContext for routes that also serve anonymous viewers.
func OptionalRequester(ctx context.Context) *Requester {
	r, err := RequesterFromContext(ctx)
	if err != nil {
		return nil
	}
	return &r
}

func (r Requester) IsAdmin() bool { return r.Role == types.RoleAdmin }

// ownsCourse is true only for the instructor who authored the course.
func ownsCourse(r *Requester, c *types.Course) bool {
	if r == nil || c == nil {
		return false
	}
	switch r.Role {
	case types.RoleInstructor:
		return c.OwnedBy(r.UserID)
	case types.RoleStudent, types.RoleAdmin:
		return false
	default:
		return false
	}
}

// canManageCourse covers the owner and any admin.
func canManageCourse(r *Requester, c *types.Course) bool {
	if r == nil || c == nil {
		return false
	}
	switch r.Role {
	case types.RoleAdmin:
		return true
	case types.RoleInstructor:
		return c.OwnedBy(r.UserID)
	case types.RoleStudent:
		return false
	default:
		return false
	}
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key")
}

func sideEffect(name string, err error) SideEffect {
	return SideEffect{Name: name, Error: err.Error()}
}

func internalErr(op string, err error) error {
	return apierr.Internal("internal_error", fmt.Errorf("%s: %w", op, err))
}

func pageBounds(page, limit, defLimit, maxLimit int) (int, int, int) {
	if limit <= 0 {
		limit = defLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}
