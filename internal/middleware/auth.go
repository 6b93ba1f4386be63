// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smart-chat-go/internal/service"
	"smart-chat-go/pkg/token"
)

// AuthMiddleware 创建一个 Gin 中间件，用于访问令牌认证。
// 除了校验令牌签名与有效期，还要求令牌与当前唯一的活跃会话一致
// （单会话模型：重新登录或登出会让旧令牌立即失效），
// 并将当前用户与会话存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager, authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从 Authorization 请求头中获取 token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权头"})
			return
		}

		// Token 通常以 "Bearer <token>" 的形式提供，我们需要提取出 token 本身
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
			return
		}

		// 令牌本身有效还不够：它必须对应当前活跃会话。
		// CurrentSession 已对过期会话做了处理。
		session := authService.CurrentSession()
		if session == nil || session.AccessToken != tokenString {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "会话已失效，请重新登录"})
			return
		}

		// 将当前用户与会话存储在 context 中，供后续处理函数使用
		c.Set("user", &session.User)
		c.Set("session", session)
		c.Set("claims", claims)

		c.Next()
	}
}
