package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/services"
)

// uuidParam reads a path parameter, answering 400 "<code>_invalid" when it is not a uuid.
func uuidParam(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondServiceError(c, apierr.Validation(code+"_invalid", errors.New(code+" must be a uuid")))
		return uuid.Nil, false
	}
	return id, true
}

func requester(c *gin.Context) (services.Requester, bool) {
	r, err := services.RequesterFromContext(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return services.Requester{}, false
	}
	return r, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondServiceError(c, apierr.Validation("invalid_request", err))
		return false
	}
	return true
}

// queryInt returns 0 for a missing or malformed value so the service default applies.
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil {
		return 0
	}
	return n
}
