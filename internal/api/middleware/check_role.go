package middleware

import (
	"Herald/internal/pkg/response"
	"slices"

	"github.com/gin-gonic/gin"
)

// CheckRoles 令牌类型命中任一 kind 即放行，需挂在 AuthMiddleware 之后
func CheckRoles(kinds ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := c.GetStringSlice("roles")
		if !slices.ContainsFunc(kinds, func(k string) bool { return slices.Contains(roles, k) }) {
			response.Fail(c, response.Forbidden, "权限不足：当前身份无权访问该资源")
			c.Abort()
			return
		}
		c.Next()
	}
}
