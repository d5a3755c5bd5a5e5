package learning

import (
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepo interface {
	Create(dbc dbctx.Context, enrollments []*types.Enrollment) ([]*types.Enrollment, error)
	GetByIDs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) ([]*types.Enrollment, error)
	// GetByIDsWithRefs also resolves Student and Course for display.
	GetByIDsWithRefs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) ([]*types.Enrollment, error)
	// GetByIDForUpdate locks the row for the rest of the transaction; nil, nil when missing.
	GetByIDForUpdate(dbc dbctx.Context, enrollmentID uuid.UUID) (*types.Enrollment, error)
	// GetByStudentAndCourse returns nil, nil when the pair has no row in any status.
	GetByStudentAndCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) (*types.Enrollment, error)
	GetByStudentIDs(dbc dbctx.Context, studentIDs []uuid.UUID) ([]*types.Enrollment, error)
	GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Enrollment, error)
	ListReviewsByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Enrollment, error)
	// UpdateColumns writes the named columns of e, zero values included.
	UpdateColumns(dbc dbctx.Context, e *types.Enrollment, columns ...string) error
	// MarkDropped reports false when the row was already dropped.
	MarkDropped(dbc dbctx.Context, enrollmentID uuid.UUID) (bool, error)
	// Reactivate turns a dropped row back into a fresh active one. Rating and review survive.
	Reactivate(dbc dbctx.Context, enrollmentID uuid.UUID, now time.Time) (bool, error)
	FullDeleteByIDs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) error
	FullDeleteByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	repoLog := baseLog.With("repo", "EnrollmentRepo")
	return &enrollmentRepo{db: db, log: repoLog}
}

func (r *enrollmentRepo) Create(dbc dbctx.Context, enrollments []*types.Enrollment) ([]*types.Enrollment, error) {
	if len(enrollments) == 0 {
		return []*types.Enrollment{}, nil
	}
	if err := dbc.DB(r.db).Omit(clause.Associations).Create(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *enrollmentRepo) GetByIDs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) ([]*types.Enrollment, error) {
	var results []*types.Enrollment
	if len(enrollmentIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("id IN ?", enrollmentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *enrollmentRepo) GetByIDsWithRefs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) ([]*types.Enrollment, error) {
	var results []*types.Enrollment
	if len(enrollmentIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Preload("Student").
		Preload("Course").
		Where("id IN ?", enrollmentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *enrollmentRepo) GetByIDForUpdate(dbc dbctx.Context, enrollmentID uuid.UUID) (*types.Enrollment, error) {
	var results []*types.Enrollment
	if err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", enrollmentID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *enrollmentRepo) GetByStudentAndCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) (*types.Enrollment, error) {
	var results []*types.Enrollment
	if err := dbc.DB(r.db).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *enrollmentRepo) GetByStudentIDs(dbc dbctx.Context, studentIDs []uuid.UUID) ([]*types.Enrollment, error) {
	var results []*types.Enrollment
	if len(studentIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Preload("Course").
		Preload("Course.Instructor").
		Where("student_id IN ?", studentIDs).
		Order("enrolled_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *enrollmentRepo) GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Enrollment, error) {
	var results []*types.Enrollment
	if len(courseIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("course_id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *enrollmentRepo) ListReviewsByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Enrollment, error) {
	var results []*types.Enrollment
	if err := dbc.DB(r.db).
		Preload("Student").
		Where("course_id = ? AND rating IS NOT NULL", courseID).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *enrollmentRepo) UpdateColumns(dbc dbctx.Context, e *types.Enrollment, columns ...string) error {
	if e == nil || len(columns) == 0 {
		return nil
	}
	cols := append(append([]string{}, columns...), "updated_at")
	res := dbc.DB(r.db).
		Model(e).
		Select(cols).
		Omit(clause.Associations).
		Updates(e)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *enrollmentRepo) MarkDropped(dbc dbctx.Context, enrollmentID uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.Enrollment{}).
		Where("id = ? AND status <> ?", enrollmentID, types.EnrollmentStatusDropped).
		Updates(map[string]any{
			"status":     types.EnrollmentStatusDropped,
			"updated_at": r.db.NowFunc(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) Reactivate(dbc dbctx.Context, enrollmentID uuid.UUID, now time.Time) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.Enrollment{}).
		Where("id = ? AND status = ?", enrollmentID, types.EnrollmentStatusDropped).
		Updates(map[string]any{
			"status":            types.EnrollmentStatusActive,
			"progress":          0,
			"completed_lessons": datatypes.JSONSlice[uuid.UUID]{},
			"completed_at":      nil,
			"enrolled_at":       now,
			"last_accessed_at":  now,
			"updated_at":        now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) FullDeleteByIDs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) error {
	if len(enrollmentIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("id IN ?", enrollmentIDs).
		Delete(&types.Enrollment{}).Error
}

func (r *enrollmentRepo) FullDeleteByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) error {
	if len(courseIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("course_id IN ?", courseIDs).
		Delete(&types.Enrollment{}).Error
}
