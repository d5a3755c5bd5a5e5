package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	middlewareLogger := log.With("middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, authService: authService}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		if !am.install(c, tokenString) {
			return
		}
		c.Next()
	}
}

// OptionalAuth lets anonymous callers through but rejects a token that does not verify.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString != "" && !am.install(c, tokenString) {
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) install(c *gin.Context, tokenString string) bool {
	ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
	if err != nil {
		status := apierr.StatusOf(err)
		if status >= http.StatusInternalServerError {
			am.log.Error("token check failed", "error", err)
		}
		code := apierr.CodeOf(err)
		if code == "" {
			code = "unauthorized"
		}
		response.AbortError(c, status, code, err)
		return false
	}
	c.Request = c.Request.WithContext(ctx)
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		response.AbortError(c, http.StatusUnauthorized, "unauthorized", errors.New("no authenticated user"))
		return false
	}
	return true
}

// RequireRole admits callers whose role is one of roles. It must run after RequireAuth.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", errors.New("no authenticated user"))
			return
		}
		role, err := types.ParseRole(rd.Role)
		if err != nil {
			response.AbortError(c, http.StatusForbidden, "forbidden", err)
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.AbortError(c, http.StatusForbidden, roleCode(roles), errors.New("role "+role.String()+" may not perform this action"))
	}
}

func roleCode(roles []types.Role) string {
	if len(roles) != 1 {
		return "forbidden"
	}
	switch roles[0] {
	case types.RoleStudent:
		return "students_only"
	case types.RoleInstructor:
		return "instructor_only"
	case types.RoleAdmin:
		return "admin_only"
	default:
		return "forbidden"
	}
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
