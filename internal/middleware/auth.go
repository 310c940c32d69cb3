package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"Lee_Moments/internal/pkg"

	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

// TokenStore 单点登录：redis 里只保存每个用户最新的一枚 token
type TokenStore interface {
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
}

func AuthMiddleware(tokens TokenStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "msg": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "msg": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		claims, err := pkg.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "msg": "invalid or expired token"})
			return
		}

		// redis校验是否是正确的token
		origin, err := tokens.GetUserToken(c.Request.Context(), claims.UserID)
		if err != nil || origin != tokenStr {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "msg": "account has been logged in elsewhere"})
			return
		}

		// 校验通过后更新过期时间
		if err := tokens.ExtendUserToken(c.Request.Context(), claims.UserID); err != nil {
			logger.Error("extend token failed", "user", claims.UserID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "UNKNOWN", "msg": err.Error()})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID 取出中间件注入的 user_id
func UserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok && id > 0
}
