package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	me, err := uh.userService.GetMe(c.Request.Context(), r.UserID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": me})
}

// PUT /api/me
// body: { "first_name", "last_name", "bio", "avatar_url" }, all optional
func (uh *UserHandler) UpdateMe(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}
	var req services.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	u, err := uh.userService.UpdateProfile(c.Request.Context(), r.UserID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

// GET /api/admin/users?role=&search=&page=&limit=
func (uh *UserHandler) ListUsers(c *gin.Context) {
	page, err := uh.userService.ListUsers(c.Request.Context(), services.UserListQuery{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, page)
}
