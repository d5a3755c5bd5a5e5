package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type EnrollmentHandler struct {
	enrollmentService services.EnrollmentService
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService}
}

// POST /api/enrollments
// body: { "course_id": "<uuid>" }
func (eh *EnrollmentHandler) Enroll(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	var req struct {
		CourseID string `json:"course_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	courseID := uuid.Nil
	if raw := strings.TrimSpace(req.CourseID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondServiceError(c, apierr.Validation("course_id_invalid", errors.New("course_id must be a uuid")))
			return
		}
		courseID = id
	}
	res, err := eh.enrollmentService.Enroll(c.Request.Context(), r.UserID, courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/enrollments
func (eh *EnrollmentHandler) ListMine(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	enrollments, err := eh.enrollmentService.ListMine(c.Request.Context(), r.UserID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": enrollments})
}

// GET /api/enrollments/check/:courseId
func (eh *EnrollmentHandler) Check(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId", "course_id")
	if !ok {
		return
	}
	e, err := eh.enrollmentService.CheckEnrollment(c.Request.Context(), r.UserID, courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrolled": e != nil, "enrollment": e})
}

// GET /api/enrollments/:id
func (eh *EnrollmentHandler) Get(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	enrollmentID, ok := uuidParam(c, "id", "enrollment_id")
	if !ok {
		return
	}
	e, err := eh.enrollmentService.Get(c.Request.Context(), enrollmentID, r)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": e})
}

// PUT /api/enrollments/:id/lessons/:lessonId/complete
func (eh *EnrollmentHandler) CompleteLesson(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	enrollmentID, ok := uuidParam(c, "id", "enrollment_id")
	if !ok {
		return
	}
	lessonID, ok := uuidParam(c, "lessonId", "lesson_id")
	if !ok {
		return
	}
	snapshot, err := eh.enrollmentService.CompleteLesson(c.Request.Context(), enrollmentID, r.UserID, lessonID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, snapshot)
}

// PUT /api/enrollments/:id/review
// body: { "rating": 1..5, "review": "..." }
func (eh *EnrollmentHandler) Review(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	enrollmentID, ok := uuidParam(c, "id", "enrollment_id")
	if !ok {
		return
	}
	var req struct {
		Rating *int    `json:"rating"`
		Review *string `json:"review"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := eh.enrollmentService.AddReview(c.Request.Context(), enrollmentID, r.UserID, req.Rating, req.Review)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// PUT /api/enrollments/:id/drop
func (eh *EnrollmentHandler) Drop(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	enrollmentID, ok := uuidParam(c, "id", "enrollment_id")
	if !ok {
		return
	}
	res, err := eh.enrollmentService.DropCourse(c.Request.Context(), enrollmentID, r.UserID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// DELETE /api/admin/enrollments/:id
func (eh *EnrollmentHandler) AdminDelete(c *gin.Context) {
	enrollmentID, ok := uuidParam(c, "id", "enrollment_id")
	if !ok {
		return
	}
	res, err := eh.enrollmentService.AdminDelete(c.Request.Context(), enrollmentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "side_effects": res.SideEffects})
}
