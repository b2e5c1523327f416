package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

const userKey = "current_user"

// Auth 校验 Bearer 令牌（websocket 握手可用 token 查询参数），并把当前用户写入上下文
func Auth(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.Unauthorized(c, "authorization token is missing")
			c.Abort()
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, service.ErrAccountSuspended) {
				response.Forbidden(c, err.Error())
			} else {
				response.Unauthorized(c, "invalid or expired token")
			}
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// AdminOnly 仅管理员可访问，需放在 Auth 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).IsAdmin() {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser 取出 Auth 写入的用户，未登录时为 nil
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

// SetUser 供测试注入当前用户
func SetUser(c *gin.Context, u *model.User) {
	c.Set(userKey, u)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		if after, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return strings.TrimSpace(header)
	}
	return c.Query("token")
}
