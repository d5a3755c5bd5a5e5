package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/gcp"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type LessonInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=10000"`
	Type        string `json:"type" validate:"required,lesson_type"`
	Duration    int    `json:"duration" validate:"gte=0"`
	Order       *int   `json:"order" validate:"omitempty,gte=1"`
	IsFree      bool   `json:"is_free"`
}

// LessonUpdate never touches type or media.
type LessonUpdate struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Duration    *int    `json:"duration" validate:"omitempty,gte=0"`
	Order       *int    `json:"order" validate:"omitempty,gte=1"`
	IsFree      *bool   `json:"is_free"`
}

type LessonFile struct {
	Name string
	Body io.Reader
}

type LessonService interface {
	Upload(ctx context.Context, requester Requester, courseID uuid.UUID, in LessonInput, file *LessonFile) (*types.Lesson, error)
	Update(ctx context.Context, requester Requester, lessonID uuid.UUID, in LessonUpdate) (*types.Lesson, error)
	Delete(ctx context.Context, requester Requester, lessonID uuid.UUID) error
	ListForViewer(ctx context.Context, courseID uuid.UUID, viewer *Requester) ([]*types.Lesson, error)
}

type lessonService struct {
	db             *gorm.DB
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	lessonRepo     repos.LessonRepo
	enrollmentRepo repos.EnrollmentRepo
	media          gcp.MediaStore
}

func NewLessonService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	enrollmentRepo repos.EnrollmentRepo,
	media gcp.MediaStore,
) LessonService {
	return &lessonService{
		db:             db,
		log:            baseLog.With("service", "LessonService"),
		courseRepo:     courseRepo,
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
		media:          media,
	}
}

func (ls *lessonService) Upload(ctx context.Context, requester Requester, courseID uuid.UUID, in LessonInput, file *LessonFile) (*types.Lesson, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if file == nil || file.Body == nil {
		return nil, apierr.Validation("file_required", errors.New("a media file is required"))
	}
	dbc := dbctx.New(ctx)
	course, err := ls.loadCourse(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if !ownsCourse(&requester, course) {
		return nil, apierr.Forbidden("not_course_owner")
	}

	order := 0
	if in.Order != nil {
		order = *in.Order
	} else {
		n, err := ls.lessonRepo.CountByCourseID(dbc, courseID)
		if err != nil {
			return nil, internalErr("count lessons", err)
		}
		order = int(n) + 1
	}

	lessonType := types.LessonType(in.Type)
	kind := mediaKindFor(lessonType)
	key := fmt.Sprintf("lessons/%s/%s%s", courseID, uuid.New(), strings.ToLower(path.Ext(file.Name)))
	obj, err := ls.media.Upload(dbc, kind, key, file.Body)
	if err != nil {
		if errors.Is(err, gcp.ErrMediaDisabled) {
			return nil, apierr.New(http.StatusServiceUnavailable, "media_unavailable", err)
		}
		return nil, apierr.New(http.StatusBadGateway, "media_upload_failed", err)
	}

	l := &types.Lesson{
		CourseID:    courseID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Type:        lessonType,
		Duration:    in.Duration,
		Order:       order,
		IsFree:      in.IsFree,
	}
	switch lessonType {
	case types.LessonTypeVideo:
		l.VideoURL, l.VideoPublicID = obj.URL, obj.PublicID
	case types.LessonTypeDocument:
		l.DocumentURL, l.DocumentPublicID = obj.URL, obj.PublicID
	}
	if _, err := ls.lessonRepo.Create(dbc, []*types.Lesson{l}); err != nil {
		releaseLessonMedia(ctx, ls.media, ls.log, l)
		return nil, internalErr("create lesson", err)
	}
	ls.log.Info("lesson uploaded", "lesson_id", l.ID, "course_id", courseID, "type", lessonType)
	return l, nil
}

func (ls *lessonService) Update(ctx context.Context, requester Requester, lessonID uuid.UUID, in LessonUpdate) (*types.Lesson, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	l, err := ls.loadOwnedLesson(dbc, requester, lessonID)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Duration != nil {
		fields["duration"] = *in.Duration
	}
	if in.Order != nil {
		fields["order"] = *in.Order
	}
	if in.IsFree != nil {
		fields["is_free"] = *in.IsFree
	}
	if len(fields) == 0 {
		return l, nil
	}
	if err := ls.lessonRepo.UpdateFields(dbc, lessonID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("lesson_not_found")
		}
		return nil, internalErr("update lesson", err)
	}
	found, err := ls.lessonRepo.GetByIDs(dbc, []uuid.UUID{lessonID})
	if err != nil || len(found) == 0 {
		return nil, internalErr("reload lesson", fmt.Errorf("lesson %s: %v", lessonID, err))
	}
	return found[0], nil
}

// Delete releases the lesson's media before removing the row. Media failures are logged and
// do not stop the delete.
func (ls *lessonService) Delete(ctx context.Context, requester Requester, lessonID uuid.UUID) error {
	dbc := dbctx.New(ctx)
	l, err := ls.loadOwnedLesson(dbc, requester, lessonID)
	if err != nil {
		return err
	}
	if errs := releaseLessonMedia(ctx, ls.media, ls.log, l); len(errs) > 0 {
		ls.log.Warn("lesson deleted with unreleased media", "lesson_id", lessonID, "failures", len(errs))
	}
	if err := ls.lessonRepo.FullDeleteByIDs(dbc, []uuid.UUID{lessonID}); err != nil {
		return internalErr("delete lesson", err)
	}
	ls.log.Info("lesson deleted", "lesson_id", lessonID, "course_id", l.CourseID)
	return nil
}

func (ls *lessonService) ListForViewer(ctx context.Context, courseID uuid.UUID, viewer *Requester) ([]*types.Lesson, error) {
	dbc := dbctx.New(ctx)
	course, err := ls.loadCourse(dbc, courseID)
	if err != nil {
		return nil, err
	}
	manager := canManageCourse(viewer, course)
	if !course.IsPublished && !manager {
		return nil, apierr.NotFound("course_not_found")
	}
	lessons, err := ls.lessonRepo.GetByCourseIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, internalErr("list lessons", err)
	}

	canPlay := manager
	if !canPlay && viewer != nil {
		e, err := ls.enrollmentRepo.GetByStudentAndCourse(dbc, viewer.UserID, courseID)
		if err != nil {
			return nil, internalErr("lookup enrollment", err)
		}
		canPlay = e != nil && e.CountsTowardEnrollment()
	}
	if !canPlay {
		for _, l := range lessons {
			if !l.IsFree {
				l.HideMedia()
			}
		}
	}
	return lessons, nil
}

func (ls *lessonService) loadCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	found, err := ls.courseRepo.GetByIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, internalErr("load course", err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, apierr.NotFound("course_not_found")
	}
	return found[0], nil
}

func (ls *lessonService) loadOwnedLesson(dbc dbctx.Context, requester Requester, lessonID uuid.UUID) (*types.Lesson, error) {
	found, err := ls.lessonRepo.GetByIDs(dbc, []uuid.UUID{lessonID})
	if err != nil {
		return nil, internalErr("load lesson", err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, apierr.NotFound("lesson_not_found")
	}
	course, err := ls.loadCourse(dbc, found[0].CourseID)
	if err != nil {
		return nil, err
	}
	if !ownsCourse(&requester, course) {
		return nil, apierr.Forbidden("not_course_owner")
	}
	return found[0], nil
}
