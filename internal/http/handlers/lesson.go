package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/services"
)

const maxLessonUploadBytes = 512 << 20

type LessonHandler struct {
	lessonService services.LessonService
}

func NewLessonHandler(lessonService services.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// GET /api/courses/:id/lessons
func (lh *LessonHandler) ListCourseLessons(c *gin.Context) {
	courseID, ok := uuidParam(c, "id", "course_id")
	if !ok {
		return
	}
	lessons, err := lh.lessonService.ListForViewer(c.Request.Context(), courseID, services.OptionalRequester(c.Request.Context()))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lessons": lessons})
}

// POST /api/courses/:id/lessons (multipart/form-data)
// fields: title, description, type, duration, order, is_free; file: "file"
func (lh *LessonHandler) Upload(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "id", "course_id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLessonUploadBytes)

	in, err := lessonInputFromForm(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	var file *services.LessonFile
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			response.RespondServiceError(c, apierr.Validation("file_unreadable", err))
			return
		}
		defer f.Close()
		file = &services.LessonFile{Name: fh.Filename, Body: f}
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.RespondServiceError(c, apierr.Validation("invalid_request", err))
		return
	}

	lesson, err := lh.lessonService.Upload(c.Request.Context(), r, courseID, in, file)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"lesson": lesson})
}

// PUT /api/lessons/:id
func (lh *LessonHandler) Update(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	lessonID, ok := uuidParam(c, "id", "lesson_id")
	if !ok {
		return
	}
	var req services.LessonUpdate
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := lh.lessonService.Update(c.Request.Context(), r, lessonID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// DELETE /api/lessons/:id
func (lh *LessonHandler) Delete(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	lessonID, ok := uuidParam(c, "id", "lesson_id")
	if !ok {
		return
	}
	if err := lh.lessonService.Delete(c.Request.Context(), r, lessonID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func lessonInputFromForm(c *gin.Context) (services.LessonInput, error) {
	in := services.LessonInput{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Type:        strings.ToLower(strings.TrimSpace(c.PostForm("type"))),
	}
	if v := strings.TrimSpace(c.PostForm("duration")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, apierr.Validation("duration_invalid", errors.New("duration must be an integer"))
		}
		in.Duration = n
	}
	if v := strings.TrimSpace(c.PostForm("order")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, apierr.Validation("order_invalid", errors.New("order must be an integer"))
		}
		in.Order = &n
	}
	if v := strings.TrimSpace(c.PostForm("is_free")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, apierr.Validation("is_free_invalid", errors.New("is_free must be a boolean"))
		}
		in.IsFree = b
	}
	return in, nil
}
