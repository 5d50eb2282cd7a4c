package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"code-collaboration-studio/internal/middleware"
)

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// requireUser 取出 Auth 中间件设置的用户 ID，缺失时直接写 401
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return "", false
	}
	return userID, true
}

// httpWriter 是 HTTP 请求发布变更事件时使用的写入方标识，不会与任何会话 ID 相同
const httpWriter = "http"
