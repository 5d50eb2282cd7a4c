package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"code-collaboration-studio/internal/session"
)

// Limits 是单个连接的消息令牌桶参数。
type Limits struct {
	PerSecond float64
	Burst     int
}

// DefaultLimits 允许正常的绘制频率（指针移动事件较密集）。
var DefaultLimits = Limits{PerSecond: 60, Burst: 120}

// Client 代表一个连接到 Hub 的 WebSocket 客户端，持有该连接的房间会话。
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *session.Session
	limiter *rate.Limiter
	log     *logrus.Entry

	sendMu sync.Mutex
	send   chan []byte // 用于向此客户端发送消息的缓冲通道
	closed bool
}

// NewClient 创建连接。newSession 用 Client 的 Send 作为会话的事件出口构造会话。
func NewClient(hub *Hub, conn *websocket.Conn, limits Limits, newSession func(emit session.EmitFunc) *session.Session) *Client {
	if limits.PerSecond <= 0 {
		limits = DefaultLimits
	}
	if limits.Burst <= 0 {
		limits.Burst = 1
	}
	c := &Client{
		hub:     hub,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(limits.PerSecond), limits.Burst),
		send:    make(chan []byte, 256),
	}
	c.session = newSession(c.Send)
	c.log = logrus.WithFields(logrus.Fields{
		"session_id": c.session.ID(),
		"user_id":    c.session.User().UserID,
	})
	return c
}

// Session 返回连接的会话。
func (c *Client) Session() *session.Session { return c.session }

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// Send 序列化事件并放入发送通道。通道满时丢弃事件，不阻塞调用方。
func (c *Client) Send(ev session.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.log.WithError(err).WithField("event", ev.Type).Error("Failed to marshal event")
		return
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.WithField("event", ev.Type).Warn("Client send buffer full, dropping event")
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump 把客户端命令交给会话执行。它在自己的 goroutine 中运行。
func (c *Client) ReadPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		// 离开房间要在注销之前完成，保证离开通知还能写出
		c.session.Close()
		c.hub.unregister(c)
		c.conn.Close()
		c.log.Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.log.Debug("WebSocket connection closed normally or read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.log.Debugf("Received non-text message type: %d", messageType)
			continue
		}
		if !c.limiter.Allow() {
			c.Send(session.ErrorEvent(session.ErrRateLimited))
			continue
		}
		cmd, err := session.DecodeCommand(message)
		if err != nil {
			c.Send(session.ErrorEvent(err))
			continue
		}
		if err := c.session.Handle(ctx, cmd); err != nil {
			logCtx := c.log.WithField("command", cmd.Type).WithError(err)
			if session.ErrorCode(err) == session.ErrCodeInternal || session.ErrorCode(err) == session.ErrCodeUnavailable {
				logCtx.Error("Command failed")
			} else if !errors.Is(err, context.Canceled) {
				logCtx.Debug("Command rejected")
			}
		}
	}
}

// WritePump 将消息从 send 通道写到 WebSocket 连接，并定期发送 Ping。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Hub 关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}
