package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/gcp"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/redis"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const catalogCacheNS = "catalog"

type CourseInput struct {
	Title        string  `json:"title" validate:"required,max=200"`
	Description  string  `json:"description" validate:"required,max=10000"`
	Category     string  `json:"category" validate:"required,course_category"`
	Level        string  `json:"level" validate:"omitempty,course_level"`
	Price        float64 `json:"price" validate:"gte=0"`
	ThumbnailURL string  `json:"thumbnail_url" validate:"omitempty,url"`
}

// CourseUpdate carries only the fields the caller sent.
type CourseUpdate struct {
	Title        *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string  `json:"description" validate:"omitempty,min=1,max=10000"`
	Category     *string  `json:"category" validate:"omitempty,course_category"`
	Level        *string  `json:"level" validate:"omitempty,course_level"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	ThumbnailURL *string  `json:"thumbnail_url" validate:"omitempty,url"`
}

type CatalogQuery struct {
	Search   string
	Category string
	Level    string
	Page     int
	Limit    int
}

type CoursePage struct {
	Courses []*types.Course `json:"courses"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

type CourseDeleteResult struct {
	LessonsRemoved     int `json:"lessons_removed"`
	MediaReleaseFailed int `json:"media_release_failed"`
}

type CourseService interface {
	Create(ctx context.Context, requester Requester, in CourseInput) (*types.Course, error)
	Update(ctx context.Context, requester Requester, courseID uuid.UUID, in CourseUpdate) (*types.Course, error)
	Get(ctx context.Context, viewer *Requester, courseID uuid.UUID) (*types.Course, error)
	ListPublished(ctx context.Context, q CatalogQuery) (*CoursePage, error)
	ListByInstructor(ctx context.Context, requester Requester) ([]*types.Course, error)
	Delete(ctx context.Context, requester Requester, courseID uuid.UUID) (*CourseDeleteResult, error)

	ListPending(ctx context.Context) ([]*types.Course, error)
	Approve(ctx context.Context, courseID uuid.UUID) (*types.Course, error)
	Reject(ctx context.Context, courseID uuid.UUID, reason string) (*types.Course, error)
}

type courseService struct {
	db             *gorm.DB
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	lessonRepo     repos.LessonRepo
	enrollmentRepo repos.EnrollmentRepo
	media          gcp.MediaStore
	cache          redis.Cache
	cacheTTL       time.Duration
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	enrollmentRepo repos.EnrollmentRepo,
	media gcp.MediaStore,
	cache redis.Cache,
	cacheTTL time.Duration,
) CourseService {
	if cache == nil {
		cache = redis.Nop()
	}
	return &courseService{
		db:             db,
		log:            baseLog.With("service", "CourseService"),
		courseRepo:     courseRepo,
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
		media:          media,
		cache:          cache,
		cacheTTL:       cacheTTL,
	}
}

func (cs *courseService) Create(ctx context.Context, requester Requester, in CourseInput) (*types.Course, error) {
	switch requester.Role {
	case types.RoleInstructor:
	case types.RoleStudent, types.RoleAdmin:
		return nil, apierr.Forbidden("instructor_only")
	default:
		return nil, apierr.Forbidden("instructor_only")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	level := types.Level(in.Level)
	if level == "" {
		level = types.LevelAllLevels
	}
	c := &types.Course{
		InstructorID: requester.UserID,
		Title:        in.Title,
		Description:  in.Description,
		Category:     types.Category(in.Category),
		Level:        level,
		Price:        in.Price,
		ThumbnailURL: strings.TrimSpace(in.ThumbnailURL),
		Status:       types.CourseStatusPending,
		IsPublished:  false,
	}
	if _, err := cs.courseRepo.Create(dbctx.New(ctx), []*types.Course{c}); err != nil {
		return nil, internalErr("create course", err)
	}
	cs.log.Info("course created", "course_id", c.ID, "instructor_id", requester.UserID)
	return c, nil
}

func (cs *courseService) Update(ctx context.Context, requester Requester, courseID uuid.UUID, in CourseUpdate) (*types.Course, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	c, err := cs.load(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if !ownsCourse(&requester, c) {
		return nil, apierr.Forbidden("not_course_owner")
	}

	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.Level != nil {
		fields["level"] = *in.Level
	}
	if in.Price != nil {
		fields["price"] = *in.Price
	}
	if in.ThumbnailURL != nil {
		fields["thumbnail_url"] = strings.TrimSpace(*in.ThumbnailURL)
	}
	if len(fields) == 0 {
		return c, nil
	}
	// A rejected course goes back into the review queue once edited.
	if c.Status == types.CourseStatusRejected {
		fields["status"] = types.CourseStatusPending
		fields["rejection_reason"] = ""
		fields["is_published"] = false
	}
	if err := cs.courseRepo.UpdateFields(dbc, courseID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("course_not_found")
		}
		return nil, internalErr("update course", err)
	}
	cs.invalidateCatalog(ctx)
	return cs.load(dbc, courseID)
}

func (cs *courseService) Get(ctx context.Context, viewer *Requester, courseID uuid.UUID) (*types.Course, error) {
	c, err := cs.load(dbctx.New(ctx), courseID)
	if err != nil {
		return nil, err
	}
	if !c.IsPublished && !canManageCourse(viewer, c) {
		return nil, apierr.NotFound("course_not_found")
	}
	return c, nil
}

func (cs *courseService) ListPublished(ctx context.Context, q CatalogQuery) (*CoursePage, error) {
	if q.Category != "" && !types.Category(q.Category).Valid() {
		return nil, apierr.Validation("category_invalid", fmt.Errorf("unknown category %q", q.Category))
	}
	if q.Level != "" && !types.Level(q.Level).Valid() {
		return nil, apierr.Validation("level_invalid", fmt.Errorf("unknown level %q", q.Level))
	}
	page, limit, offset := pageBounds(q.Page, q.Limit, 12, 100)
	search := strings.TrimSpace(q.Search)

	key := fmt.Sprintf("q=%s|c=%s|l=%s|p=%d|n=%d", strings.ToLower(search), q.Category, q.Level, page, limit)
	var cached CoursePage
	if hit, err := cs.cache.GetJSON(ctx, catalogCacheNS, key, &cached); err != nil {
		cs.log.Warn("catalog cache read failed", "error", err)
	} else if hit {
		return &cached, nil
	}

	courses, total, err := cs.courseRepo.Search(dbctx.New(ctx), repos.CourseQuery{
		Search:        search,
		Category:      types.Category(q.Category),
		Level:         types.Level(q.Level),
		PublishedOnly: true,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return nil, internalErr("search courses", err)
	}
	out := &CoursePage{Courses: courses, Total: total, Page: page, Limit: limit}
	if err := cs.cache.SetJSON(ctx, catalogCacheNS, key, out, cs.cacheTTL); err != nil {
		cs.log.Warn("catalog cache write failed", "error", err)
	}
	return out, nil
}

func (cs *courseService) ListByInstructor(ctx context.Context, requester Requester) ([]*types.Course, error) {
	courses, err := cs.courseRepo.GetByInstructorIDs(dbctx.New(ctx), []uuid.UUID{requester.UserID})
	if err != nil {
		return nil, internalErr("list instructor courses", err)
	}
	return courses, nil
}

func (cs *courseService) Delete(ctx context.Context, requester Requester, courseID uuid.UUID) (*CourseDeleteResult, error) {
	dbc := dbctx.New(ctx)
	c, err := cs.load(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(&requester, c) {
		return nil, apierr.Forbidden("not_course_owner")
	}
	lessons, err := cs.lessonRepo.GetByCourseIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, internalErr("list lessons", err)
	}

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, l := range lessons {
		g.Go(func() error {
			if errs := releaseLessonMedia(gctx, cs.media, cs.log, l); len(errs) > 0 {
				failed.Add(int32(len(errs)))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := cs.enrollmentRepo.FullDeleteByCourseIDs(inner, []uuid.UUID{courseID}); err != nil {
			return fmt.Errorf("delete enrollments: %w", err)
		}
		if err := cs.lessonRepo.FullDeleteByCourseIDs(inner, []uuid.UUID{courseID}); err != nil {
			return fmt.Errorf("delete lessons: %w", err)
		}
		if err := cs.courseRepo.FullDeleteByIDs(inner, []uuid.UUID{courseID}); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	}); err != nil {
		return nil, internalErr("delete course", err)
	}
	cs.invalidateCatalog(ctx)

	res := &CourseDeleteResult{LessonsRemoved: len(lessons), MediaReleaseFailed: int(failed.Load())}
	cs.log.Info("course deleted", "course_id", courseID, "lessons", res.LessonsRemoved, "media_release_failed", res.MediaReleaseFailed)
	return res, nil
}

func (cs *courseService) ListPending(ctx context.Context) ([]*types.Course, error) {
	courses, _, err := cs.courseRepo.Search(dbctx.New(ctx), repos.CourseQuery{Status: types.CourseStatusPending})
	if err != nil {
		return nil, internalErr("list pending courses", err)
	}
	return courses, nil
}

func (cs *courseService) Approve(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	return cs.review(ctx, courseID, map[string]any{
		"status":           types.CourseStatusApproved,
		"is_published":     true,
		"rejection_reason": "",
	})
}

func (cs *courseService) Reject(ctx context.Context, courseID uuid.UUID, reason string) (*types.Course, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apierr.Validation("rejection_reason_required", errors.New("a rejection reason is required"))
	}
	return cs.review(ctx, courseID, map[string]any{
		"status":           types.CourseStatusRejected,
		"is_published":     false,
		"rejection_reason": reason,
	})
}

// review applies an admin decision. Status and IsPublished only ever change together here.
func (cs *courseService) review(ctx context.Context, courseID uuid.UUID, fields map[string]any) (*types.Course, error) {
	dbc := dbctx.New(ctx)
	if err := cs.courseRepo.UpdateFields(dbc, courseID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("course_not_found")
		}
		return nil, internalErr("review course", err)
	}
	cs.invalidateCatalog(ctx)
	c, err := cs.load(dbc, courseID)
	if err != nil {
		return nil, err
	}
	cs.log.Info("course reviewed", "course_id", courseID, "status", c.Status)
	return c, nil
}

func (cs *courseService) load(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	found, err := cs.courseRepo.GetByIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, internalErr("load course", err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, apierr.NotFound("course_not_found")
	}
	return found[0], nil
}

func (cs *courseService) invalidateCatalog(ctx context.Context) {
	if err := cs.cache.Bump(ctx, catalogCacheNS); err != nil {
		cs.log.Warn("catalog cache invalidation failed", "error", err)
	}
}
