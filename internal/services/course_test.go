package services

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func validCourseInput() CourseInput {
	return CourseInput{
		Title:       "Go for backend engineers",
		Description: "Services, storage and tests.",
		Category:    "development",
		Level:       "intermediate",
		Price:       49,
	}
}

func TestCourseApprovalLifecycle(t *testing.T) {
	env := newTestEnv(t, ReenrollDenied)
	inst := env.instructor(t)
	owner := Requester{UserID: inst.ID, Role: types.RoleInstructor}

	c, err := env.courseSvc.Create(env.ctx, owner, validCourseInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != types.CourseStatusPending || c.IsPublished {
		t.Fatalf("new course must be pending and unpublished: %+v", c)
	}

	// Unpublished courses are hidden from everyone but the owner and admins.
	if _, err := env.courseSvc.Get(env.ctx, nil, c.ID); err == nil {
		t.Fatal("anonymous viewer saw a pending course")
	}
	if _, err := env.courseSvc.Get(env.ctx, &owner, c.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}

	pending, err := env.courseSvc.ListPending(env.ctx)
	if err != nil || len(pending) != 1 || pending[0].ID != c.ID {
		t.Fatalf("ListPending: rows=%d err=%v", len(pending), err)
	}

	_, err = env.courseSvc.Reject(env.ctx, c.ID, "  ")
	requireCode(t, err, http.StatusBadRequest, "rejection_reason_required")

	rejected, err := env.courseSvc.Reject(env.ctx, c.ID, "missing syllabus")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != types.CourseStatusRejected || rejected.IsPublished || rejected.RejectionReason != "missing syllabus" {
		t.Fatalf("rejected: %+v", rejected)
	}

	title := "Go for backend engineers, 2nd edition"
	edited, err := env.courseSvc.Update(env.ctx, owner, c.ID, CourseUpdate{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if edited.Status != types.CourseStatusPending || edited.RejectionReason != "" || edited.Title != title {
		t.Fatalf("editing a rejected course must requeue it: %+v", edited)
	}

	approved, err := env.courseSvc.Approve(env.ctx, c.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != types.CourseStatusApproved || !approved.IsPublished {
		t.Fatalf("approved: %+v", approved)
	}
	if _, err := env.courseSvc.Get(env.ctx, nil, c.ID); err != nil {
		t.Fatalf("anonymous Get after approve: %v", err)
	}

	_, err = env.courseSvc.Approve(env.ctx, uuid.New())
	requireCode(t, err, http.StatusNotFound, "course_not_found")
}

func TestCourseCreateAndUpdateRules(t *testing.T) {
	env := newTestEnv(t, ReenrollDenied)
	inst := env.instructor(t)
	owner := Requester{UserID: inst.ID, Role: types.RoleInstructor}
	stranger := Requester{UserID: env.instructor(t).ID, Role: types.RoleInstructor}
	student := Requester{UserID: env.student(t).ID, Role: types.RoleStudent}

	_, err := env.courseSvc.Create(env.ctx, student, validCourseInput())
	requireCode(t, err, http.StatusForbidden, "instructor_only")

	in := validCourseInput()
	in.Category = "cooking"
	_, err = env.courseSvc.Create(env.ctx, owner, in)
	requireCode(t, err, http.StatusBadRequest, "category_invalid")

	in = validCourseInput()
	in.Title = "   "
	_, err = env.courseSvc.Create(env.ctx, owner, in)
	requireCode(t, err, http.StatusBadRequest, "title_required")

	in = validCourseInput()
	in.Level = ""
	c, err := env.courseSvc.Create(env.ctx, owner, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Level != types.LevelAllLevels {
		t.Fatalf("default level: %s", c.Level)
	}

	price := 10.0
	_, err = env.courseSvc.Update(env.ctx, stranger, c.ID, CourseUpdate{Price: &price})
	requireCode(t, err, http.StatusForbidden, "not_course_owner")
	_, err = env.courseSvc.Update(env.ctx, owner, uuid.New(), CourseUpdate{Price: &price})
	requireCode(t, err, http.StatusNotFound, "course_not_found")

	negative := -1.0
	_, err = env.courseSvc.Update(env.ctx, owner, c.ID, CourseUpdate{Price: &negative})
	requireCode(t, err, http.StatusBadRequest, "price_invalid")

	mine, err := env.courseSvc.ListByInstructor(env.ctx, owner)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListByInstructor: rows=%d err=%v", len(mine), err)
	}
}

func TestListPublishedFiltersAndPages(t *testing.T) {
	env := newTestEnv(t, ReenrollDenied)
	inst := env.instructor(t)
	for i := 0; i < 5; i++ {
		testutil.SeedCourse(t, env.ctx, env.db, inst.ID, types.CourseStatusApproved)
	}
	testutil.SeedCourse(t, env.ctx, env.db, inst.ID, types.CourseStatusPending)
	testutil.SeedCourse(t, env.ctx, env.db, inst.ID, types.CourseStatusRejected)

	page, err := env.courseSvc.ListPublished(env.ctx, CatalogQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if page.Total != 5 || len(page.Courses) != 2 || page.Page != 2 || page.Limit != 2 {
		t.Fatalf("page: total=%d rows=%d page=%d limit=%d", page.Total, len(page.Courses), page.Page, page.Limit)
	}
	for _, c := range page.Courses {
		if !c.IsPublished {
			t.Fatalf("unpublished course listed: %+v", c)
		}
	}

	byCategory, err := env.courseSvc.ListPublished(env.ctx, CatalogQuery{Category: "music"})
	if err != nil || byCategory.Total != 0 {
		t.Fatalf("category filter: %+v %v", byCategory, err)
	}
	_, err = env.courseSvc.ListPublished(env.ctx, CatalogQuery{Level: "expert"})
	requireCode(t, err, http.StatusBadRequest, "level_invalid")

	search, err := env.courseSvc.ListPublished(env.ctx, CatalogQuery{Search: "COUR"})
	if err != nil || search.Total != 5 {
		t.Fatalf("search: %+v %v", search, err)
	}
}

func TestDeleteCourseReleasesMediaAndCascades(t *testing.T) {
	env := newTestEnv(t, ReenrollDenied)
	c, lessons := env.approvedCourse(t, 3)
	s := env.student(t)
	env.enroll(t, s.ID, c.ID)

	env.media.failFor[lessons[1].VideoPublicID] = true

	_, err := env.courseSvc.Delete(env.ctx, Requester{UserID: s.ID, Role: types.RoleStudent}, c.ID)
	requireCode(t, err, http.StatusForbidden, "not_course_owner")

	res, err := env.courseSvc.Delete(env.ctx, Requester{UserID: c.InstructorID, Role: types.RoleInstructor}, c.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.LessonsRemoved != 3 || res.MediaReleaseFailed != 1 {
		t.Fatalf("delete result: %+v", res)
	}

	deleted := strings.Join(env.media.deletedIDs(), ",")
	for _, l := range lessons {
		if !strings.Contains(deleted, l.VideoPublicID) {
			t.Fatalf("media %s not released; deleted=%s", l.VideoPublicID, deleted)
		}
	}

	dbc := dbctx.New(env.ctx)
	if rows, _ := env.courses.GetByIDs(dbc, []uuid.UUID{c.ID}); len(rows) != 0 {
		t.Fatal("course row survived delete")
	}
	if n, _ := env.lessons.CountByCourseID(dbc, c.ID); n != 0 {
		t.Fatalf("lessons survived delete: %d", n)
	}
	if rows, _ := env.enrollments.GetByCourseIDs(dbc, []uuid.UUID{c.ID}); len(rows) != 0 {
		t.Fatalf("enrollments survived delete: %d", len(rows))
	}
}

func TestAdminMayDeleteAnyCourse(t *testing.T) {
	env := newTestEnv(t, ReenrollDenied)
	c, _ := env.approvedCourse(t, 0)
	if _, err := env.courseSvc.Delete(env.ctx, Requester{UserID: uuid.New(), Role: types.RoleAdmin}, c.ID); err != nil {
		t.Fatalf("admin Delete: %v", err)
	}
	_, err := env.courseSvc.Delete(env.ctx, Requester{UserID: uuid.New(), Role: types.RoleAdmin}, c.ID)
	requireCode(t, err, http.StatusNotFound, "course_not_found")
}
