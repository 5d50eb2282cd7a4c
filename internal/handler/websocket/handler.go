package websocket

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/hub"
	"code-collaboration-studio/internal/identity"
	"code-collaboration-studio/internal/middleware"
	"code-collaboration-studio/internal/session"
)

// IdentityResolver 解析已认证用户的显示名称
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (identity.Identity, error)
}

// Options 是 WebSocketHandler 的会话和连接参数
type Options struct {
	Session        session.Config
	Limits         hub.Limits
	AllowedOrigins []string // 为空时只允许同源
	NewID          func() string
}

// WebSocketHandler 负责处理 WebSocket 升级请求，并为每个连接创建房间会话
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	resolver IdentityResolver
	deps     session.Deps
	opts     Options
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。deps.Lifecycle 为空时使用 Hub。
func NewWebSocketHandler(h *hub.Hub, resolver IdentityResolver, deps session.Deps, opts Options) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if resolver == nil {
		panic("IdentityResolver cannot be nil for WebSocketHandler")
	}
	if opts.NewID == nil {
		panic("NewID cannot be nil for WebSocketHandler")
	}
	if deps.Lifecycle == nil {
		deps.Lifecycle = h
	}
	handler := &WebSocketHandler{hub: h, resolver: resolver, deps: deps, opts: opts}
	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     handler.checkOrigin,
	}
	return handler
}

// checkOrigin 允许配置的来源；未配置时退回同源检查
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	if len(h.opts.AllowedOrigins) > 0 {
		return false
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// HandleConnection 处理 WebSocket 连接请求。进入哪个房间由客户端的 room.enter 命令决定。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	// 升级前解析身份，存储不可用时还能返回 HTTP 错误
	user, err := h.resolver.Resolve(c.Request.Context(), userID)
	if err != nil {
		logCtx.WithError(err).Error("WS Handler: Failed to resolve identity")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写出 HTTP 错误响应
		logCtx.WithError(err).Warn("WS Handler: Failed to upgrade connection")
		return
	}

	sessionID := h.opts.NewID()
	client := hub.NewClient(h.hub, conn, h.opts.Limits, func(emit session.EmitFunc) *session.Session {
		return session.New(sessionID, user, h.deps, h.opts.Session, emit)
	})
	if !h.hub.Register(client) {
		logCtx.Error("WS Handler: Hub unavailable, closing connection")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"))
		conn.Close()
		return
	}
	client.Run()
	logCtx.WithField("session_id", sessionID).Info("WS Handler: Session started")
}
