package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/identity"
)

// ContextUserIDKey 是 Auth 写入 Gin 上下文的键
const ContextUserIDKey = "user_id"

// TokenVerifier 校验 token 并返回其中的用户 ID。
type TokenVerifier interface {
	Verify(tokenStr string) (string, error)
}

// ErrMissingAuthHeader 表示请求未携带 token
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// ErrMalformedAuthHeader 表示 Authorization 头不是 Bearer 格式
var ErrMalformedAuthHeader = errors.New("malformed Authorization header")

// Auth 返回一个 Gin 中间件，用于验证 JWT token。
// 浏览器无法为 WebSocket 握手设置请求头，所以也接受 token 查询参数。
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	if tokens == nil {
		panic("TokenVerifier cannot be nil for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingAuthHeader) {
				logrus.Warn("Auth middleware: Missing Authorization header")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			} else {
				logrus.WithError(err).Warn("Auth middleware: Malformed token format")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			c.Abort()
			return
		}

		userID, err := tokens.Verify(tokenStr)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: Invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), identity.Identity{UserID: userID}))
		logrus.WithField("user_id", userID).Debug("Auth middleware: User authenticated via JWT")

		c.Next()
	}
}

// UserID 返回 Auth 设置的用户 ID。
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}

// extractToken 从 Authorization 头或 token 查询参数中提取 token
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", ErrMissingAuthHeader
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedAuthHeader
	}
	return parts[1], nil
}
