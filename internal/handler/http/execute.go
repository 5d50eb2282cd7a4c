package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/execution"
)

// ExecuteHandler 把代码提交给执行服务
type ExecuteHandler struct {
	runner execution.Runner
}

// NewExecuteHandler 创建 ExecuteHandler 实例
func NewExecuteHandler(runner execution.Runner) *ExecuteHandler {
	if runner == nil {
		panic("Runner cannot be nil for ExecuteHandler")
	}
	return &ExecuteHandler{runner: runner}
}

// ExecuteRequest 定义执行请求。code 为空时由执行客户端返回错误结果
type ExecuteRequest struct {
	Code  string `json:"code"`
	Stdin string `json:"stdin"`
}

// Execute 运行代码，三种结果都以 200 返回，由 kind 字段区分
func (h *ExecuteHandler) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}
	outcome := h.runner.Run(c.Request.Context(), req.Code, req.Stdin)
	raw, err := execution.MarshalOutcome(outcome)
	if err != nil {
		logrus.WithError(err).Error("Handler.Execute: Failed to encode outcome")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
