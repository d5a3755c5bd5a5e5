package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

func TestEnrollmentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewEnrollmentRepo(db, testutil.Logger(t))

	inst := testutil.SeedUser(t, ctx, tx, "enr-inst@example.com", types.RoleInstructor)
	stu := testutil.SeedUser(t, ctx, tx, "enr-stu@example.com", types.RoleStudent)
	c := testutil.SeedCourse(t, ctx, tx, inst.ID, types.CourseStatusApproved)

	now := time.Now().UTC()
	e := &types.Enrollment{StudentID: stu.ID, CourseID: c.ID, EnrolledAt: now, LastAccessedAt: now}
	if _, err := repo.Create(dbc, []*types.Enrollment{e}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Status != types.EnrollmentStatusActive || e.CompletedLessons == nil {
		t.Fatalf("Create defaults: %+v", e)
	}

	got, err := repo.GetByStudentAndCourse(dbc, stu.ID, c.ID)
	if err != nil || got == nil || got.ID != e.ID {
		t.Fatalf("GetByStudentAndCourse: got=%+v err=%v", got, err)
	}
	if missing, err := repo.GetByStudentAndCourse(dbc, inst.ID, c.ID); err != nil || missing != nil {
		t.Fatalf("GetByStudentAndCourse missing: got=%+v err=%v", missing, err)
	}

	withRefs, err := repo.GetByIDsWithRefs(dbc, []uuid.UUID{e.ID})
	if err != nil || len(withRefs) != 1 || withRefs[0].Student == nil || withRefs[0].Course == nil {
		t.Fatalf("GetByIDsWithRefs: err=%v rows=%+v", err, withRefs)
	}

	lesson := uuid.New()
	e.MarkCompleted(lesson)
	e.Progress = 50
	e.Rating = testutil.PtrInt(4)
	e.Review = testutil.PtrString("")
	if err := repo.UpdateColumns(dbc, e, "progress", "completed_lessons", "rating", "review"); err != nil {
		t.Fatalf("UpdateColumns: %v", err)
	}
	rows, err := repo.GetByIDs(dbc, []uuid.UUID{e.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v", err)
	}
	if rows[0].Progress != 50 || len(rows[0].CompletedLessons) != 1 || rows[0].CompletedLessons[0] != lesson {
		t.Fatalf("UpdateColumns not persisted: %+v", rows[0])
	}
	if rows[0].Review == nil || *rows[0].Review != "" {
		t.Fatalf("empty review should persist as empty string, got %v", rows[0].Review)
	}

	reviews, err := repo.ListReviewsByCourseID(dbc, c.ID)
	if err != nil || len(reviews) != 1 || reviews[0].Student == nil {
		t.Fatalf("ListReviewsByCourseID: err=%v rows=%+v", err, reviews)
	}

	mine, err := repo.GetByStudentIDs(dbc, []uuid.UUID{stu.ID})
	if err != nil || len(mine) != 1 || mine[0].Course == nil || mine[0].Course.Instructor == nil {
		t.Fatalf("GetByStudentIDs: err=%v rows=%+v", err, mine)
	}

	if err := repo.FullDeleteByIDs(dbc, []uuid.UUID{e.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	if err := repo.UpdateColumns(dbc, e, "progress"); err == nil {
		t.Fatal("UpdateColumns on deleted row: expected error")
	}
}

func TestEnrollmentRepoUniquePair(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewEnrollmentRepo(db, testutil.Logger(t))

	inst := testutil.SeedUser(t, ctx, tx, "pair-inst@example.com", types.RoleInstructor)
	stu := testutil.SeedUser(t, ctx, tx, "pair-stu@example.com", types.RoleStudent)
	c := testutil.SeedCourse(t, ctx, tx, inst.ID, types.CourseStatusApproved)
	testutil.SeedEnrollment(t, ctx, tx, stu.ID, c.ID, types.EnrollmentStatusDropped)

	now := time.Now().UTC()
	dup := &types.Enrollment{StudentID: stu.ID, CourseID: c.ID, EnrolledAt: now, LastAccessedAt: now}
	_, err := repo.Create(dbc, []*types.Enrollment{dup})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate pair: want gorm.ErrDuplicatedKey got %v", err)
	}
}

func TestEnrollmentRepoDropAndReactivate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewEnrollmentRepo(db, testutil.Logger(t))

	inst := testutil.SeedUser(t, ctx, tx, "drop-inst@example.com", types.RoleInstructor)
	stu := testutil.SeedUser(t, ctx, tx, "drop-stu@example.com", types.RoleStudent)
	c := testutil.SeedCourse(t, ctx, tx, inst.ID, types.CourseStatusApproved)
	e := testutil.SeedEnrollment(t, ctx, tx, stu.ID, c.ID, types.EnrollmentStatusCompleted)
	e.Rating = testutil.PtrInt(5)
	if err := repo.UpdateColumns(dbc, e, "rating"); err != nil {
		t.Fatalf("UpdateColumns: %v", err)
	}

	if ok, err := repo.Reactivate(dbc, e.ID, time.Now().UTC()); err != nil || ok {
		t.Fatalf("Reactivate on non-dropped row: ok=%v err=%v", ok, err)
	}

	ok, err := repo.MarkDropped(dbc, e.ID)
	if err != nil || !ok {
		t.Fatalf("MarkDropped: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.MarkDropped(dbc, e.ID); err != nil || ok {
		t.Fatalf("MarkDropped twice: ok=%v err=%v", ok, err)
	}

	locked, err := repo.GetByIDForUpdate(dbc, e.ID)
	if err != nil || locked == nil {
		t.Fatalf("GetByIDForUpdate: got=%v err=%v", locked, err)
	}
	if locked.Status != types.EnrollmentStatusDropped || locked.Progress != 100 {
		t.Fatalf("drop must keep progress: %+v", locked)
	}

	ok, err = repo.Reactivate(dbc, e.ID, time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("Reactivate: ok=%v err=%v", ok, err)
	}
	got, err := repo.GetByIDForUpdate(dbc, e.ID)
	if err != nil || got == nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != types.EnrollmentStatusActive || got.Progress != 0 || len(got.CompletedLessons) != 0 || got.CompletedAt != nil {
		t.Fatalf("reactivated row not reset: %+v", got)
	}
	if got.Rating == nil || *got.Rating != 5 {
		t.Fatalf("rating must survive reactivation: %v", got.Rating)
	}

	if missing, err := repo.GetByIDForUpdate(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByIDForUpdate missing: got=%v err=%v", missing, err)
	}
}
