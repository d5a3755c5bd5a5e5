package learning

import (
	"strings"

	"github.com/google/uuid"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// CourseQuery filters the catalog. Zero values mean "any".
type CourseQuery struct {
	Search        string
	Category      types.Category
	Level         types.Level
	PublishedOnly bool
	Status        types.CourseStatus
	Limit         int
	Offset        int
}

type CourseRepo interface {
	Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error)
	GetByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Course, error)
	GetByInstructorIDs(dbc dbctx.Context, instructorIDs []uuid.UUID) ([]*types.Course, error)
	Search(dbc dbctx.Context, q CourseQuery) ([]*types.Course, int64, error)
	UpdateFields(dbc dbctx.Context, courseID uuid.UUID, fields map[string]any) error

	// Aggregate maintenance. Each is a single UPDATE statement so concurrent callers
	// never lose each other's writes.
	AdjustEnrolledCount(dbc dbctx.Context, courseID uuid.UUID, delta int) error
	RecomputeEnrolledCount(dbc dbctx.Context, courseID uuid.UUID) error
	RecomputeRating(dbc dbctx.Context, courseID uuid.UUID) error

	FullDeleteByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error) {
	if len(courses) == 0 {
		return []*types.Course{}, nil
	}
	if err := dbc.DB(r.db).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Course, error) {
	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) GetByInstructorIDs(dbc dbctx.Context, instructorIDs []uuid.UUID) ([]*types.Course, error) {
	var results []*types.Course
	if len(instructorIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("instructor_id IN ?", instructorIDs).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) Search(dbc dbctx.Context, q CourseQuery) ([]*types.Course, int64, error) {
	query := dbc.DB(r.db).Model(&types.Course{})
	if q.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Level != "" {
		query = query.Where("level = ?", q.Level)
	}
	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+s+"%")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Course
	page := query.Preload("Instructor").Order("created_at DESC")
	if q.Limit > 0 {
		page = page.Limit(q.Limit).Offset(q.Offset)
	}
	if err := page.Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *courseRepo) UpdateFields(dbc dbctx.Context, courseID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := dbc.DB(r.db).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustEnrolledCount adds delta in place. The result never drops below zero.
func (r *courseRepo) AdjustEnrolledCount(dbc dbctx.Context, courseID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	expr := gorm.Expr("enrolled_count + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN enrolled_count + ? < 0 THEN 0 ELSE enrolled_count + ? END", delta, delta)
	}
	res := dbc.DB(r.db).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Update("enrolled_count", expr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecomputeEnrolledCount rebuilds enrolled_count from the non-dropped enrollments.
func (r *courseRepo) RecomputeEnrolledCount(dbc dbctx.Context, courseID uuid.UUID) error {
	res := dbc.DB(r.db).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Update("enrolled_count", gorm.Expr(
			"(SELECT COUNT(*) FROM enrollment WHERE enrollment.course_id = ? AND enrollment.status <> ?)",
			courseID, types.EnrollmentStatusDropped,
		))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecomputeRating sets rating to the exact mean of every non-null enrollment rating for
// the course (0 when there are none) and review_count to their number.
func (r *courseRepo) RecomputeRating(dbc dbctx.Context, courseID uuid.UUID) error {
	res := dbc.DB(r.db).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Updates(map[string]any{
			"rating": gorm.Expr(
				"(SELECT COALESCE(AVG(enrollment.rating), 0) FROM enrollment WHERE enrollment.course_id = ? AND enrollment.rating IS NOT NULL)",
				courseID,
			),
			"review_count": gorm.Expr(
				"(SELECT COUNT(enrollment.rating) FROM enrollment WHERE enrollment.course_id = ?)",
				courseID,
			),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepo) FullDeleteByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) error {
	if len(courseIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("id IN ?", courseIDs).
		Delete(&types.Course{}).Error
}
