package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	httpH "github.com/yungbote/coursehub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursehub-backend/internal/http/middleware"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/gcp"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type memoryMedia struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryMedia) Upload(_ dbctx.Context, kind gcp.MediaKind, key string, file io.Reader) (gcp.MediaObject, error) {
	if _, err := io.Copy(io.Discard, file); err != nil {
		return gcp.MediaObject{}, err
	}
	m.mu.Lock()
	m.keys[key] = true
	m.mu.Unlock()
	return gcp.MediaObject{URL: m.PublicURL(kind, key), PublicID: key}, nil
}

func (m *memoryMedia) Delete(_ dbctx.Context, _ gcp.MediaKind, publicID string) error {
	m.mu.Lock()
	delete(m.keys, publicID)
	m.mu.Unlock()
	return nil
}

func (m *memoryMedia) PublicURL(kind gcp.MediaKind, key string) string {
	return "https://media.test/" + string(kind) + "/" + key
}

type discardMail struct{}

func (discardMail) SendPasswordReset(context.Context, *types.User, string) error { return nil }

type apiEnv struct {
	t      *testing.T
	engine *gin.Engine
	users  repos.UserRepo
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	userRepo := repos.NewUserRepo(db, log)
	tokenRepo := repos.NewUserTokenRepo(db, log)
	resetRepo := repos.NewPasswordResetTokenRepo(db, log)
	courseRepo := repos.NewCourseRepo(db, log)
	lessonRepo := repos.NewLessonRepo(db, log)
	enrollmentRepo := repos.NewEnrollmentRepo(db, log)
	media := &memoryMedia{keys: map[string]bool{}}

	authSvc := services.NewAuthService(db, log, userRepo, tokenRepo, resetRepo, discardMail{}, services.AuthConfig{
		JWTSecretKey: "router-test",
		AccessTTL:    time.Minute,
		RefreshTTL:   time.Hour,
		ResetTTL:     time.Hour,
		BcryptCost:   bcrypt.MinCost,
	})
	ratings := services.NewRatingAggregator(log, courseRepo)
	enrollSvc := services.NewEnrollmentService(db, log, courseRepo, lessonRepo, enrollmentRepo, ratings, services.ReenrollDenied)
	courseSvc := services.NewCourseService(db, log, courseRepo, lessonRepo, enrollmentRepo, media, nil, 0)
	lessonSvc := services.NewLessonService(db, log, courseRepo, lessonRepo, enrollmentRepo, media)

	engine := NewRouter(RouterConfig{
		Log:               log,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, authSvc),
		HealthHandler:     httpH.NewHealthHandler(db),
		AuthHandler:       httpH.NewAuthHandler(authSvc),
		UserHandler:       httpH.NewUserHandler(services.NewUserService(db, log, userRepo)),
		CourseHandler:     httpH.NewCourseHandler(log, courseSvc, enrollSvc),
		LessonHandler:     httpH.NewLessonHandler(lessonSvc),
		EnrollmentHandler: httpH.NewEnrollmentHandler(enrollSvc),
	})
	return &apiEnv{t: t, engine: engine, users: userRepo}
}

func (env *apiEnv) do(method, path, token string, body any) (int, map[string]any) {
	env.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(env.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return env.serve(req, token)
}

func (env *apiEnv) serve(req *nethttp.Request, token string) (int, map[string]any) {
	env.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(env.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (env *apiEnv) upload(token, courseID, title, lessonType, filename string) (int, map[string]any) {
	env.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(env.t, w.WriteField("title", title))
	require.NoError(env.t, w.WriteField("type", lessonType))
	require.NoError(env.t, w.WriteField("duration", "300"))
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(env.t, err)
	_, err = fw.Write([]byte("media bytes"))
	require.NoError(env.t, err)
	require.NoError(env.t, w.Close())

	req := httptest.NewRequest(nethttp.MethodPost, "/api/courses/"+courseID+"/lessons", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return env.serve(req, token)
}

func (env *apiEnv) register(email, role string) {
	env.t.Helper()
	status, body := env.do(nethttp.MethodPost, "/api/auth/register", "", map[string]any{
		"email":      email,
		"password":   "correct-horse",
		"first_name": "Grace",
		"last_name":  "Hopper",
		"role":       role,
	})
	require.Equal(env.t, nethttp.StatusCreated, status, body)
}

func (env *apiEnv) login(email string) string {
	env.t.Helper()
	status, body := env.do(nethttp.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    email,
		"password": "correct-horse",
	})
	require.Equal(env.t, nethttp.StatusOK, status, body)
	token, _ := body["access_token"].(string)
	require.NotEmpty(env.t, token)
	return token
}

func (env *apiEnv) seedAdmin(email string) {
	env.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(env.t, err)
	_, err = env.users.Create(dbctx.New(context.Background()), []*types.User{{
		Email:     email,
		Password:  string(hash),
		FirstName: "Root",
		Role:      types.RoleAdmin,
	}})
	require.NoError(env.t, err)
}

func errCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func field(body map[string]any, obj, key string) any {
	m, _ := body[obj].(map[string]any)
	return m[key]
}

func TestEnrollmentLifecycleOverHTTP(t *testing.T) {
	env := newAPIEnv(t)

	status, _ := env.do(nethttp.MethodGet, "/healthcheck", "", nil)
	require.Equal(t, nethttp.StatusOK, status)

	env.register("teach@example.com", "instructor")
	env.register("learn@example.com", "")
	env.seedAdmin("admin@example.com")
	instructor := env.login("teach@example.com")
	student := env.login("learn@example.com")
	admin := env.login("admin@example.com")

	status, body := env.do(nethttp.MethodGet, "/api/me", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", errCode(body))

	// Authoring and approval.
	newCourse := map[string]any{
		"title":       "Distributed Systems",
		"description": "Consensus, replication and failure.",
		"category":    "development",
		"price":       49.5,
	}
	status, body = env.do(nethttp.MethodPost, "/api/courses", student, newCourse)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body = env.do(nethttp.MethodPost, "/api/courses", instructor, newCourse)
	require.Equal(t, nethttp.StatusCreated, status, body)
	courseID, _ := field(body, "course", "id").(string)
	require.NotEmpty(t, courseID)
	assert.Equal(t, "pending", field(body, "course", "status"))

	status, body = env.do(nethttp.MethodGet, "/api/courses/"+courseID, "", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "course_not_found", errCode(body))

	status, body = env.do(nethttp.MethodPut, "/api/admin/courses/"+courseID+"/approve", instructor, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "admin_only", errCode(body))

	status, body = env.do(nethttp.MethodPut, "/api/admin/courses/"+courseID+"/approve", admin, nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.Equal(t, "approved", field(body, "course", "status"))

	status, body = env.upload(instructor, courseID, "Intro", "video", "intro.mp4")
	require.Equal(t, nethttp.StatusCreated, status, body)
	lesson1, _ := field(body, "lesson", "id").(string)
	status, body = env.upload(instructor, courseID, "Notes", "document", "notes.pdf")
	require.Equal(t, nethttp.StatusCreated, status, body)
	lesson2, _ := field(body, "lesson", "id").(string)

	// Enrollment.
	status, body = env.do(nethttp.MethodPost, "/api/enrollments", instructor, map[string]any{"course_id": courseID})
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "students_only", errCode(body))

	status, body = env.do(nethttp.MethodPost, "/api/enrollments", student, map[string]any{"course_id": courseID})
	require.Equal(t, nethttp.StatusCreated, status, body)
	enrollmentID, _ := field(body, "enrollment", "id").(string)
	require.NotEmpty(t, enrollmentID)
	assert.Nil(t, body["side_effects"])

	status, body = env.do(nethttp.MethodPost, "/api/enrollments", student, map[string]any{"course_id": courseID})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "already_enrolled", errCode(body))

	status, body = env.do(nethttp.MethodGet, "/api/enrollments/check/"+courseID, student, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, true, body["enrolled"])

	status, body = env.do(nethttp.MethodGet, "/api/enrollments/not-a-uuid", student, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "enrollment_id_invalid", errCode(body))

	// Progress.
	status, body = env.do(nethttp.MethodPut, "/api/enrollments/"+enrollmentID+"/lessons/"+lesson1+"/complete", student, nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.EqualValues(t, 50, body["progress"])
	assert.Equal(t, "active", body["status"])

	status, body = env.do(nethttp.MethodPut, "/api/enrollments/"+enrollmentID+"/lessons/"+lesson2+"/complete", student, nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.EqualValues(t, 100, body["progress"])
	assert.Equal(t, "completed", body["status"])
	assert.NotNil(t, body["completed_at"])

	// Review and course aggregates.
	status, body = env.do(nethttp.MethodPut, "/api/enrollments/"+enrollmentID+"/review", student, map[string]any{"rating": 9})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "rating_out_of_range", errCode(body))

	status, body = env.do(nethttp.MethodPut, "/api/enrollments/"+enrollmentID+"/review", student, map[string]any{"rating": 4, "review": " Solid. "})
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.EqualValues(t, 4, field(body, "course", "rating"))
	assert.EqualValues(t, 1, field(body, "course", "review_count"))

	status, body = env.do(nethttp.MethodGet, "/api/courses/"+courseID, "", nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.EqualValues(t, 1, field(body, "course", "enrolled_count"))
	assert.EqualValues(t, 4, field(body, "course", "rating"))

	status, body = env.do(nethttp.MethodGet, "/api/courses/"+courseID+"/reviews", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	reviews, _ := body["reviews"].([]any)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Solid.", reviews[0].(map[string]any)["review"])

	// Drop.
	status, body = env.do(nethttp.MethodPut, "/api/enrollments/"+enrollmentID+"/drop", student, nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.Equal(t, "dropped", field(body, "enrollment", "status"))

	status, body = env.do(nethttp.MethodGet, "/api/courses/"+courseID, "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.EqualValues(t, 0, field(body, "course", "enrolled_count"))

	status, body = env.do(nethttp.MethodPut, "/api/enrollments/"+enrollmentID+"/lessons/"+lesson1+"/complete", student, nil)
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "enrollment_dropped", errCode(body))

	// Admin listing and logout.
	status, body = env.do(nethttp.MethodGet, "/api/admin/users?role=student", admin, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, _ = env.do(nethttp.MethodPost, "/api/auth/logout", student, nil)
	require.Equal(t, nethttp.StatusOK, status)
	status, body = env.do(nethttp.MethodGet, "/api/me", student, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "session_revoked", errCode(body))
}

func TestOwnershipAndNotFoundOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	env.register("owner@example.com", "")
	env.register("other@example.com", "")
	env.register("teach@example.com", "instructor")
	env.seedAdmin("admin@example.com")
	owner := env.login("owner@example.com")
	other := env.login("other@example.com")
	instructor := env.login("teach@example.com")
	admin := env.login("admin@example.com")

	_, body := env.do(nethttp.MethodPost, "/api/courses", instructor, map[string]any{
		"title": "Go", "description": "Types and interfaces.", "category": "it_software",
	})
	courseID, _ := field(body, "course", "id").(string)
	status, _ := env.do(nethttp.MethodPut, "/api/admin/courses/"+courseID+"/approve", admin, nil)
	require.Equal(t, nethttp.StatusOK, status)

	status, body = env.do(nethttp.MethodPost, "/api/enrollments", owner, map[string]any{"course_id": courseID})
	require.Equal(t, nethttp.StatusCreated, status, body)
	enrollmentID, _ := field(body, "enrollment", "id").(string)

	status, body = env.do(nethttp.MethodPut, "/api/enrollments/"+enrollmentID+"/drop", other, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "not_enrollment_owner", errCode(body))

	status, body = env.do(nethttp.MethodPut, "/api/enrollments/"+uuid.NewString()+"/drop", other, nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "enrollment_not_found", errCode(body))

	status, body = env.do(nethttp.MethodPost, "/api/enrollments", owner, map[string]any{"course_id": "nope"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "course_id_invalid", errCode(body))

	status, body = env.do(nethttp.MethodPost, "/api/enrollments", owner, map[string]any{"course_id": uuid.NewString()})
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "course_not_found", errCode(body))

	status, body = env.do(nethttp.MethodGet, "/api/enrollments/"+enrollmentID, admin, nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.Equal(t, enrollmentID, field(body, "enrollment", "id"))

	status, body = env.do(nethttp.MethodDelete, "/api/admin/enrollments/"+enrollmentID, admin, nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	status, body = env.do(nethttp.MethodGet, "/api/courses/"+courseID, owner, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.EqualValues(t, 0, field(body, "course", "enrolled_count"))
}
