package middleware

import (
	"Herald/internal/pkg/consts"
	"Herald/internal/pkg/response"
	"Herald/internal/pkg/security"
	"context"
	"errors"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerToken 取 Authorization: Bearer 头中的 Token
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// AuthMiddleware 负责验证 JWT 并将调用方身份注入 Context
func AuthMiddleware(verifier security.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, security.ErrTokenInvalid) || errors.Is(err, security.ErrTokenRevoked) {
				response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			} else {
				log.ErrorContext(c.Request.Context(), "verify token failed", "err", err)
				response.Fail(c, response.InternalServerError, "未知错误")
			}
			c.Abort()
			return
		}

		c.Set(consts.CtxUserID, identity.SubjectID)
		c.Set(consts.CtxPrincipal, identity)
		c.Set("roles", identity.AllRoles())

		newCtx := context.WithValue(c.Request.Context(), consts.CtxUserID, identity.SubjectID)
		c.Request = c.Request.WithContext(newCtx)

		c.Next()
	}
}

// Principal 取鉴权中间件写入的身份
func Principal(c *gin.Context) *security.Identity {
	v, ok := c.Get(consts.CtxPrincipal)
	if !ok {
		return nil
	}
	identity, _ := v.(*security.Identity)
	return identity
}
