package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type CourseHandler struct {
	log               *logger.Logger
	courseService     services.CourseService
	enrollmentService services.EnrollmentService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService, enrollmentService services.EnrollmentService) *CourseHandler {
	return &CourseHandler{
		log:               log.With("handler", "CourseHandler"),
		courseService:     courseService,
		enrollmentService: enrollmentService,
	}
}

// GET /api/courses?search=&category=&level=&page=&limit=
func (h *CourseHandler) ListPublished(c *gin.Context) {
	page, err := h.courseService.ListPublished(c.Request.Context(), services.CatalogQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Level:    c.Query("level"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	courseID, ok := uuidParam(c, "id", "course_id")
	if !ok {
		return
	}
	course, err := h.courseService.Get(c.Request.Context(), services.OptionalRequester(c.Request.Context()), courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// GET /api/courses/:id/reviews
func (h *CourseHandler) ListReviews(c *gin.Context) {
	courseID, ok := uuidParam(c, "id", "course_id")
	if !ok {
		return
	}
	if _, err := h.courseService.Get(c.Request.Context(), services.OptionalRequester(c.Request.Context()), courseID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	reviews, err := h.enrollmentService.ListCourseReviews(c.Request.Context(), courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reviews": reviews})
}

// POST /api/courses
func (h *CourseHandler) Create(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	var req services.CourseInput
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courseService.Create(c.Request.Context(), r, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

// PUT /api/courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "id", "course_id")
	if !ok {
		return
	}
	var req services.CourseUpdate
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courseService.Update(c.Request.Context(), r, courseID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// DELETE /api/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "id", "course_id")
	if !ok {
		return
	}
	res, err := h.courseService.Delete(c.Request.Context(), r, courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if res.MediaReleaseFailed > 0 {
		h.log.Warn("course deleted with unreleased media", "course_id", courseID, "failed", res.MediaReleaseFailed)
	}
	response.RespondOK(c, gin.H{"ok": true, "result": res})
}

// GET /api/instructor/courses
func (h *CourseHandler) ListMine(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	courses, err := h.courseService.ListByInstructor(c.Request.Context(), r)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /api/admin/courses/pending
func (h *CourseHandler) ListPending(c *gin.Context) {
	courses, err := h.courseService.ListPending(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// PUT /api/admin/courses/:id/approve
func (h *CourseHandler) Approve(c *gin.Context) {
	courseID, ok := uuidParam(c, "id", "course_id")
	if !ok {
		return
	}
	course, err := h.courseService.Approve(c.Request.Context(), courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// PUT /api/admin/courses/:id/reject
// body: { "reason": "..." }
func (h *CourseHandler) Reject(c *gin.Context) {
	courseID, ok := uuidParam(c, "id", "course_id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courseService.Reject(c.Request.Context(), courseID, req.Reason)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// POST /api/admin/courses/:id/recompute
func (h *CourseHandler) RecomputeAggregates(c *gin.Context) {
	courseID, ok := uuidParam(c, "id", "course_id")
	if !ok {
		return
	}
	course, err := h.enrollmentService.RecomputeAggregates(c.Request.Context(), courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}
