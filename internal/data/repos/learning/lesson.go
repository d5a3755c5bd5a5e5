package learning

import (
	"github.com/google/uuid"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.Lesson, error)
	// GetByCourseIDs returns lessons in display order.
	GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Lesson, error)
	// ListIDsByCourseID returns the course's lesson ids in authoring order.
	ListIDsByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error)
	CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int64, error)
	UpdateFields(dbc dbctx.Context, lessonID uuid.UUID, fields map[string]any) error
	FullDeleteByIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error
	FullDeleteByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	repoLog := baseLog.With("repo", "LessonRepo")
	return &lessonRepo{db: db, log: repoLog}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := dbc.DB(r.db).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if len(lessonIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("id IN ?", lessonIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if len(courseIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("course_id IN ?", courseIDs).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) ListIDsByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *lessonRepo) CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	var count int64
	if err := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *lessonRepo) UpdateFields(dbc dbctx.Context, lessonID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("id = ?", lessonID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *lessonRepo) FullDeleteByIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("id IN ?", lessonIDs).
		Delete(&types.Lesson{}).Error
}

func (r *lessonRepo) FullDeleteByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) error {
	if len(courseIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("course_id IN ?", courseIDs).
		Delete(&types.Lesson{}).Error
}
