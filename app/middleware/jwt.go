package middleware

import (
	"net/http"
	"strings"

	"note-sync/app/auth"
	"note-sync/app/config"

	"github.com/gin-gonic/gin"
)

// JWTAuth JWT认证中间件，未配置密钥时直接放行
func JWTAuth(cfg config.JWTConfig) gin.HandlerFunc {
	jwtService := auth.NewJWTService(cfg)

	return func(c *gin.Context) {
		if !jwtService.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, "Authorization header is required")
			return
		}

		// 检查Bearer前缀
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			abort(c, "Invalid token: "+err.Error())
			return
		}

		c.Set("client", claims.Subject)
		c.Next()
	}
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": http.StatusUnauthorized,
		"msg":  msg,
	})
}
