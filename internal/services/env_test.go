package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/gcp"
	"gorm.io/gorm"
)

type fakeMedia struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	deleted   []string
	failFor   map[string]bool
	uploadErr error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{uploads: map[string][]byte{}, failFor: map[string]bool{}}
}

func (f *fakeMedia) Upload(_ dbctx.Context, kind gcp.MediaKind, key string, file io.Reader) (gcp.MediaObject, error) {
	if f.uploadErr != nil {
		return gcp.MediaObject{}, f.uploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return gcp.MediaObject{}, err
	}
	f.mu.Lock()
	f.uploads[key] = buf.Bytes()
	f.mu.Unlock()
	return gcp.MediaObject{URL: f.PublicURL(kind, key), PublicID: key}, nil
}

func (f *fakeMedia) Delete(_ dbctx.Context, _ gcp.MediaKind, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	if f.failFor[publicID] {
		return errors.New("storage unavailable")
	}
	return nil
}

func (f *fakeMedia) PublicURL(kind gcp.MediaKind, key string) string {
	return "https://cdn.test/" + string(kind) + "/" + key
}

func (f *fakeMedia) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.deleted...)
}

type fakeMail struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]string
	err    error
}

func (f *fakeMail) SendPasswordReset(_ context.Context, u *types.User, rawToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens == nil {
		f.tokens = map[uuid.UUID]string{}
	}
	f.tokens[u.ID] = rawToken
	return f.err
}

type testEnv struct {
	ctx         context.Context
	db          *gorm.DB
	courses     repos.CourseRepo
	lessons     repos.LessonRepo
	enrollments repos.EnrollmentRepo
	users       repos.UserRepo
	media       *fakeMedia
	ratings     RatingAggregator
	enrollSvc   EnrollmentService
	courseSvc   CourseService
	lessonSvc   LessonService
}

func newTestEnv(t *testing.T, policy ReenrollPolicy) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	env := &testEnv{
		ctx:         context.Background(),
		db:          db,
		courses:     repos.NewCourseRepo(db, log),
		lessons:     repos.NewLessonRepo(db, log),
		enrollments: repos.NewEnrollmentRepo(db, log),
		users:       repos.NewUserRepo(db, log),
		media:       newFakeMedia(),
	}
	env.ratings = NewRatingAggregator(log, env.courses)
	env.enrollSvc = NewEnrollmentService(db, log, env.courses, env.lessons, env.enrollments, env.ratings, policy)
	env.courseSvc = NewCourseService(db, log, env.courses, env.lessons, env.enrollments, env.media, nil, 0)
	env.lessonSvc = NewLessonService(db, log, env.courses, env.lessons, env.enrollments, env.media)
	return env
}

func (env *testEnv) student(t *testing.T) *types.User {
	t.Helper()
	return testutil.SeedUser(t, env.ctx, env.db, uuid.NewString()+"@students.test", types.RoleStudent)
}

func (env *testEnv) instructor(t *testing.T) *types.User {
	t.Helper()
	return testutil.SeedUser(t, env.ctx, env.db, uuid.NewString()+"@instructors.test", types.RoleInstructor)
}

// approvedCourse seeds an approved course with n lessons and returns the lessons in
// authoring order.
func (env *testEnv) approvedCourse(t *testing.T, n int) (*types.Course, []*types.Lesson) {
	t.Helper()
	inst := env.instructor(t)
	c := testutil.SeedCourse(t, env.ctx, env.db, inst.ID, types.CourseStatusApproved)
	var lessons []*types.Lesson
	if n > 0 {
		lessons = testutil.SeedLessons(t, env.ctx, env.db, c.ID, n)
	}
	return c, lessons
}

func (env *testEnv) reloadCourse(t *testing.T, id uuid.UUID) *types.Course {
	t.Helper()
	found, err := env.courses.GetByIDs(dbctx.New(env.ctx), []uuid.UUID{id})
	if err != nil || len(found) != 1 {
		t.Fatalf("reload course: rows=%d err=%v", len(found), err)
	}
	return found[0]
}

func (env *testEnv) reloadEnrollment(t *testing.T, id uuid.UUID) *types.Enrollment {
	t.Helper()
	found, err := env.enrollments.GetByIDs(dbctx.New(env.ctx), []uuid.UUID{id})
	if err != nil || len(found) != 1 {
		t.Fatalf("reload enrollment: rows=%d err=%v", len(found), err)
	}
	return found[0]
}

func (env *testEnv) enroll(t *testing.T, studentID, courseID uuid.UUID) *types.Enrollment {
	t.Helper()
	res, err := env.enrollSvc.Enroll(env.ctx, studentID, courseID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if len(res.SideEffects) != 0 {
		t.Fatalf("Enroll side effects: %+v", res.SideEffects)
	}
	return res.Enrollment
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d %s, got nil error", status, code)
	}
	if got := apierr.StatusOf(err); got != status {
		t.Fatalf("status: want=%d got=%d (err=%v)", status, got, err)
	}
	if got := apierr.CodeOf(err); got != code {
		t.Fatalf("code: want=%q got=%q (err=%v)", code, got, err)
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func dbcOf(env *testEnv) dbctx.Context { return dbctx.New(env.ctx) }
