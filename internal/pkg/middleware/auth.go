package middleware

import (
	"context"
	"net/http"
	"strings"

	"campusfind/pkg/response"
	"campusfind/pkg/utils"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	CtxUserID   = "userID"
	CtxRole     = "role"
	CtxUserName = "userName"
)

// ApprovalChecker 查询用户显示名与是否已通过审核
type ApprovalChecker interface {
	Approval(ctx context.Context, userID string) (fullName string, approved bool, err error)
}

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Authorization header is required")
			c.Abort()
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// AdminMiddleware 管理员权限中间件，需在 AuthMiddleware 之后使用
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Admin permission required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ApprovedMiddleware 仅允许审核通过的用户（管理员直接放行）。
// 每次请求都重新读取状态，审核被拒后下一次请求即失效。
func ApprovedMiddleware(checker ApprovalChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAdmin(c) {
			c.Next()
			return
		}

		name, ok, err := checker.Approval(c.Request.Context(), CurrentUserID(c))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Unknown user")
			c.Abort()
			return
		}
		if !ok {
			response.Error(c, http.StatusForbidden, response.ErrNotApproved, "Account is not approved yet")
			c.Abort()
			return
		}
		c.Set(CtxUserName, name)
		c.Next()
	}
}

// CurrentUserID 当前登录用户 ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(CtxUserID)
}

// CurrentUserName 当前用户显示名，仅在 ApprovedMiddleware 之后可用
func CurrentUserName(c *gin.Context) string {
	if IsAdmin(c) {
		return "Admin"
	}
	return c.GetString(CtxUserName)
}

// IsAdmin 当前请求是否为管理员
func IsAdmin(c *gin.Context) bool {
	return c.GetString(CtxRole) == utils.RoleAdmin
}
