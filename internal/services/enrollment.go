package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// ReenrollPolicy decides what enroll does when the pair already has a dropped row.
type ReenrollPolicy string

const (
	// ReenrollDenied treats any existing row, dropped included, as already enrolled.
	ReenrollDenied ReenrollPolicy = "denied"
	// ReenrollReactivate reuses a dropped row as a fresh active enrollment.
	ReenrollReactivate ReenrollPolicy = "reactivate"
)

func ParseReenrollPolicy(s string) (ReenrollPolicy, error) {
	switch p := ReenrollPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ReenrollDenied, nil
	case ReenrollDenied, ReenrollReactivate:
		return p, nil
	default:
		return "", fmt.Errorf("unknown re-enroll policy %q", s)
	}
}

type EnrollResult struct {
	Enrollment  *types.Enrollment `json:"enrollment"`
	SideEffects []SideEffect      `json:"side_effects,omitempty"`
}

type ProgressSnapshot struct {
	Progress         int                    `json:"progress"`
	CompletedLessons []uuid.UUID            `json:"completed_lessons"`
	Status           types.EnrollmentStatus `json:"status"`
	CompletedAt      *time.Time             `json:"completed_at"`
}

type ReviewResult struct {
	Enrollment  *types.Enrollment `json:"enrollment"`
	Course      *CourseRating     `json:"course,omitempty"`
	SideEffects []SideEffect      `json:"side_effects,omitempty"`
}

type DropResult struct {
	Enrollment  *types.Enrollment `json:"enrollment"`
	SideEffects []SideEffect      `json:"side_effects,omitempty"`
}

type DeleteEnrollmentResult struct {
	SideEffects []SideEffect `json:"side_effects,omitempty"`
}

// CourseReview is the public view of a rated enrollment.
type CourseReview struct {
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	StudentID    uuid.UUID `json:"student_id"`
	StudentName  string    `json:"student_name"`
	AvatarURL    string    `json:"avatar_url"`
	Rating       int       `json:"rating"`
	Review       string    `json:"review"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type EnrollmentService interface {
	Enroll(ctx context.Context, studentID, courseID uuid.UUID) (*EnrollResult, error)
	CompleteLesson(ctx context.Context, enrollmentID, requesterID, lessonID uuid.UUID) (*ProgressSnapshot, error)
	AddReview(ctx context.Context, enrollmentID, requesterID uuid.UUID, rating *int, review *string) (*ReviewResult, error)
	DropCourse(ctx context.Context, enrollmentID, requesterID uuid.UUID) (*DropResult, error)

	ListMine(ctx context.Context, studentID uuid.UUID) ([]*types.Enrollment, error)
	Get(ctx context.Context, enrollmentID uuid.UUID, requester Requester) (*types.Enrollment, error)
	// CheckEnrollment returns nil, nil when the student has no row for the course.
	CheckEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*types.Enrollment, error)
	ListCourseReviews(ctx context.Context, courseID uuid.UUID) ([]CourseReview, error)

	AdminDelete(ctx context.Context, enrollmentID uuid.UUID) (*DeleteEnrollmentResult, error)
	RecomputeAggregates(ctx context.Context, courseID uuid.UUID) (*types.Course, error)

	Policy() ReenrollPolicy
}

type enrollmentService struct {
	db             *gorm.DB
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	lessonRepo     repos.LessonRepo
	enrollmentRepo repos.EnrollmentRepo
	ratings        RatingAggregator
	policy         ReenrollPolicy
	now            func() time.Time
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	enrollmentRepo repos.EnrollmentRepo,
	ratings RatingAggregator,
	policy ReenrollPolicy,
) EnrollmentService {
	if policy == "" {
		policy = ReenrollDenied
	}
	return &enrollmentService{
		db:             db,
		log:            baseLog.With("service", "EnrollmentService"),
		courseRepo:     courseRepo,
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
		ratings:        ratings,
		policy:         policy,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (es *enrollmentService) Policy() ReenrollPolicy { return es.policy }

func (es *enrollmentService) Enroll(ctx context.Context, studentID, courseID uuid.UUID) (*EnrollResult, error) {
	if courseID == uuid.Nil {
		return nil, apierr.Validation("course_id_required", errors.New("course_id is required"))
	}
	dbc := dbctx.New(ctx)

	course, err := es.loadCourse(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != types.CourseStatusApproved {
		return nil, apierr.Conflict("course_not_available", errors.New("course is not available for enrollment"))
	}

	existing, err := es.enrollmentRepo.GetByStudentAndCourse(dbc, studentID, courseID)
	if err != nil {
		return nil, internalErr("lookup enrollment", err)
	}
	if existing != nil {
		return es.enrollExisting(dbc, existing)
	}

	now := es.now()
	e := &types.Enrollment{
		StudentID:      studentID,
		CourseID:       courseID,
		Status:         types.EnrollmentStatusActive,
		EnrolledAt:     now,
		LastAccessedAt: now,
	}
	if _, err := es.enrollmentRepo.Create(dbc, []*types.Enrollment{e}); err != nil {
		if isDuplicateKey(err) {
			return nil, alreadyEnrolled()
		}
		return nil, internalErr("create enrollment", err)
	}

	res := &EnrollResult{Enrollment: e}
	if err := es.courseRepo.AdjustEnrolledCount(dbc, courseID, 1); err != nil {
		es.log.Warn("enrolled count increment failed", "course_id", courseID, "enrollment_id", e.ID, "error", err)
		res.SideEffects = append(res.SideEffects, sideEffect(sideEffectEnrolledCount, err))
	}
	res.Enrollment = es.withRefs(dbc, e)
	es.log.Info("student enrolled", "enrollment_id", e.ID, "course_id", courseID, "student_id", studentID)
	return res, nil
}

func (es *enrollmentService) enrollExisting(dbc dbctx.Context, existing *types.Enrollment) (*EnrollResult, error) {
	switch es.policy {
	case ReenrollReactivate:
		if existing.Status != types.EnrollmentStatusDropped {
			return nil, alreadyEnrolled()
		}
		ok, err := es.enrollmentRepo.Reactivate(dbc, existing.ID, es.now())
		if err != nil {
			return nil, internalErr("reactivate enrollment", err)
		}
		if !ok {
			// Another request reactivated it first.
			return nil, alreadyEnrolled()
		}
		res := &EnrollResult{}
		if err := es.courseRepo.AdjustEnrolledCount(dbc, existing.CourseID, 1); err != nil {
			es.log.Warn("enrolled count increment failed", "course_id", existing.CourseID, "enrollment_id", existing.ID, "error", err)
			res.SideEffects = append(res.SideEffects, sideEffect(sideEffectEnrolledCount, err))
		}
		res.Enrollment = es.withRefs(dbc, existing)
		es.log.Info("dropped enrollment reactivated", "enrollment_id", existing.ID, "course_id", existing.CourseID)
		return res, nil
	case ReenrollDenied:
		return nil, alreadyEnrolled()
	default:
		return nil, alreadyEnrolled()
	}
}

func (es *enrollmentService) CompleteLesson(ctx context.Context, enrollmentID, requesterID, lessonID uuid.UUID) (*ProgressSnapshot, error) {
	if lessonID == uuid.Nil {
		return nil, apierr.Validation("lesson_id_required", errors.New("lesson_id is required"))
	}
	var snapshot *ProgressSnapshot
	var transitioned bool
	err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		e, err := es.enrollmentRepo.GetByIDForUpdate(inner, enrollmentID)
		if err != nil {
			return internalErr("load enrollment", err)
		}
		if e == nil {
			return apierr.NotFound("enrollment_not_found")
		}
		if e.StudentID != requesterID {
			return apierr.Forbidden("not_enrollment_owner")
		}
		if e.Status == types.EnrollmentStatusDropped {
			return apierr.Conflict("enrollment_dropped", errors.New("enrollment was dropped"))
		}

		lessonIDs, err := es.lessonRepo.ListIDsByCourseID(inner, e.CourseID)
		if err != nil {
			return internalErr("list course lessons", err)
		}

		now := es.now()
		e.MarkCompleted(lessonID)
		transitioned = ApplyProgress(e, lessonIDs, now)
		e.LastAccessedAt = now
		if err := es.enrollmentRepo.UpdateColumns(inner, e,
			"completed_lessons", "progress", "status", "completed_at", "last_accessed_at",
		); err != nil {
			return internalErr("save progress", err)
		}
		snapshot = &ProgressSnapshot{
			Progress:         e.Progress,
			CompletedLessons: append([]uuid.UUID{}, e.CompletedLessons...),
			Status:           e.Status,
			CompletedAt:      e.CompletedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transitioned {
		es.log.Info("enrollment completed", "enrollment_id", enrollmentID)
	}
	return snapshot, nil
}

func (es *enrollmentService) AddReview(ctx context.Context, enrollmentID, requesterID uuid.UUID, rating *int, review *string) (*ReviewResult, error) {
	if rating == nil {
		return nil, apierr.Validation("rating_required", errors.New("rating is required"))
	}
	if *rating < 1 || *rating > 5 {
		return nil, apierr.Validation("rating_out_of_range", errors.New("rating must be between 1 and 5"))
	}
	dbc := dbctx.New(ctx)
	e, err := es.loadOwned(dbc, enrollmentID, requesterID)
	if err != nil {
		return nil, err
	}

	text := ""
	if review != nil {
		text = strings.TrimSpace(*review)
	}
	r := *rating
	e.Rating = &r
	e.Review = &text
	if err := es.enrollmentRepo.UpdateColumns(dbc, e, "rating", "review"); err != nil {
		return nil, internalErr("save review", err)
	}

	res := &ReviewResult{Enrollment: e}
	agg, err := es.ratings.Recompute(ctx, e.CourseID)
	if err != nil {
		es.log.Warn("course rating recompute failed", "course_id", e.CourseID, "enrollment_id", e.ID, "error", err)
		res.SideEffects = append(res.SideEffects, sideEffect(sideEffectCourseRating, err))
	} else {
		res.Course = &agg
	}
	return res, nil
}

func (es *enrollmentService) DropCourse(ctx context.Context, enrollmentID, requesterID uuid.UUID) (*DropResult, error) {
	dbc := dbctx.New(ctx)
	e, err := es.loadOwned(dbc, enrollmentID, requesterID)
	if err != nil {
		return nil, err
	}
	dropped, err := es.enrollmentRepo.MarkDropped(dbc, e.ID)
	if err != nil {
		return nil, internalErr("drop enrollment", err)
	}
	e.Status = types.EnrollmentStatusDropped

	res := &DropResult{Enrollment: e}
	if !dropped {
		// Already dropped: the count was released the first time.
		return res, nil
	}
	if err := es.courseRepo.AdjustEnrolledCount(dbc, e.CourseID, -1); err != nil {
		es.log.Warn("enrolled count decrement failed", "course_id", e.CourseID, "enrollment_id", e.ID, "error", err)
		res.SideEffects = append(res.SideEffects, sideEffect(sideEffectEnrolledCount, err))
	}
	es.log.Info("enrollment dropped", "enrollment_id", e.ID, "course_id", e.CourseID)
	return res, nil
}

func (es *enrollmentService) ListMine(ctx context.Context, studentID uuid.UUID) ([]*types.Enrollment, error) {
	rows, err := es.enrollmentRepo.GetByStudentIDs(dbctx.New(ctx), []uuid.UUID{studentID})
	if err != nil {
		return nil, internalErr("list enrollments", err)
	}
	return rows, nil
}

func (es *enrollmentService) Get(ctx context.Context, enrollmentID uuid.UUID, requester Requester) (*types.Enrollment, error) {
	rows, err := es.enrollmentRepo.GetByIDsWithRefs(dbctx.New(ctx), []uuid.UUID{enrollmentID})
	if err != nil {
		return nil, internalErr("load enrollment", err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, apierr.NotFound("enrollment_not_found")
	}
	e := rows[0]
	switch requester.Role {
	case types.RoleAdmin:
		return e, nil
	case types.RoleStudent, types.RoleInstructor:
		if e.StudentID != requester.UserID {
			return nil, apierr.Forbidden("not_enrollment_owner")
		}
		return e, nil
	default:
		return nil, apierr.Forbidden("not_enrollment_owner")
	}
}

func (es *enrollmentService) CheckEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*types.Enrollment, error) {
	e, err := es.enrollmentRepo.GetByStudentAndCourse(dbctx.New(ctx), studentID, courseID)
	if err != nil {
		return nil, internalErr("lookup enrollment", err)
	}
	return e, nil
}

func (es *enrollmentService) ListCourseReviews(ctx context.Context, courseID uuid.UUID) ([]CourseReview, error) {
	dbc := dbctx.New(ctx)
	if _, err := es.loadCourse(dbc, courseID); err != nil {
		return nil, err
	}
	rows, err := es.enrollmentRepo.ListReviewsByCourseID(dbc, courseID)
	if err != nil {
		return nil, internalErr("list reviews", err)
	}
	out := make([]CourseReview, 0, len(rows))
	for _, e := range rows {
		if e == nil || e.Rating == nil {
			continue
		}
		cr := CourseReview{
			EnrollmentID: e.ID,
			StudentID:    e.StudentID,
			Rating:       *e.Rating,
			UpdatedAt:    e.UpdatedAt,
		}
		if e.Review != nil {
			cr.Review = *e.Review
		}
		if e.Student != nil {
			cr.StudentName = e.Student.FullName()
			cr.AvatarURL = e.Student.AvatarURL
		}
		out = append(out, cr)
	}
	return out, nil
}

func (es *enrollmentService) AdminDelete(ctx context.Context, enrollmentID uuid.UUID) (*DeleteEnrollmentResult, error) {
	dbc := dbctx.New(ctx)
	rows, err := es.enrollmentRepo.GetByIDs(dbc, []uuid.UUID{enrollmentID})
	if err != nil {
		return nil, internalErr("load enrollment", err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, apierr.NotFound("enrollment_not_found")
	}
	e := rows[0]
	if err := es.enrollmentRepo.FullDeleteByIDs(dbc, []uuid.UUID{e.ID}); err != nil {
		return nil, internalErr("delete enrollment", err)
	}

	res := &DeleteEnrollmentResult{}
	if e.CountsTowardEnrollment() {
		if err := es.courseRepo.RecomputeEnrolledCount(dbc, e.CourseID); err != nil {
			es.log.Warn("enrolled count repair failed", "course_id", e.CourseID, "error", err)
			res.SideEffects = append(res.SideEffects, sideEffect(sideEffectEnrolledCount, err))
		}
	}
	if e.Rating != nil {
		if _, err := es.ratings.Recompute(ctx, e.CourseID); err != nil {
			es.log.Warn("course rating recompute failed", "course_id", e.CourseID, "error", err)
			res.SideEffects = append(res.SideEffects, sideEffect(sideEffectCourseRating, err))
		}
	}
	es.log.Info("enrollment deleted by admin", "enrollment_id", e.ID, "course_id", e.CourseID)
	return res, nil
}

func (es *enrollmentService) RecomputeAggregates(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	dbc := dbctx.New(ctx)
	if _, err := es.loadCourse(dbc, courseID); err != nil {
		return nil, err
	}
	if err := es.courseRepo.RecomputeEnrolledCount(dbc, courseID); err != nil {
		return nil, internalErr("recompute enrolled count", err)
	}
	if _, err := es.ratings.Recompute(ctx, courseID); err != nil {
		return nil, internalErr("recompute rating", err)
	}
	return es.loadCourse(dbc, courseID)
}

func (es *enrollmentService) loadCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	found, err := es.courseRepo.GetByIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, internalErr("load course", err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, apierr.NotFound("course_not_found")
	}
	return found[0], nil
}

// loadOwned resolves the enrollment and checks the requester is its student. A missing row
// is 404; someone else's row is 403.
func (es *enrollmentService) loadOwned(dbc dbctx.Context, enrollmentID, requesterID uuid.UUID) (*types.Enrollment, error) {
	rows, err := es.enrollmentRepo.GetByIDs(dbc, []uuid.UUID{enrollmentID})
	if err != nil {
		return nil, internalErr("load enrollment", err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, apierr.NotFound("enrollment_not_found")
	}
	if rows[0].StudentID != requesterID {
		return nil, apierr.Forbidden("not_enrollment_owner")
	}
	return rows[0], nil
}

func (es *enrollmentService) withRefs(dbc dbctx.Context, e *types.Enrollment) *types.Enrollment {
	rows, err := es.enrollmentRepo.GetByIDsWithRefs(dbc, []uuid.UUID{e.ID})
	if err != nil || len(rows) == 0 || rows[0] == nil {
		es.log.Warn("enrollment refs not resolved", "enrollment_id", e.ID, "error", err)
		return e
	}
	return rows[0]
}

func alreadyEnrolled() error {
	return apierr.Conflict("already_enrolled", errors.New("student is already enrolled in this course"))
}
