package hub

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 文档快照整份上传，需要足够大。
	maxMessageSize = 512 * 1024

	// 离线任务入队超时
	scheduleTimeout = 5 * time.Second
)

// OfflineScheduler 在用户最后一个会话离开房间时被调用。
type OfflineScheduler interface {
	ScheduleMemberOffline(ctx context.Context, roomID, userID string) error
}

type messageKind int

const (
	msgRegister messageKind = iota
	msgUnregister
)

// hubMessage 是在 Hub 内部通道传递的消息
type hubMessage struct {
	kind   messageKind
	client *Client
}

type liveKey struct {
	roomID string
	userID string
}

// Hub 维护活跃连接，并按 (房间, 用户) 统计仍在房间内的会话。
type Hub struct {
	messageChan chan hubMessage
	done        chan struct{}
	stopped     chan struct{}
	stopOnce    sync.Once

	// 只在 Run 循环中访问
	clients map[*Client]bool

	liveMu sync.RWMutex
	live   map[liveKey]map[string]bool
	count  int // 当前连接数，供监控读取

	offline OfflineScheduler
	log     *logrus.Entry
}

// NewHub 创建 Hub。offline 为空时不调度离线任务。
func NewHub(offline OfflineScheduler) *Hub {
	return &Hub{
		messageChan: make(chan hubMessage, 512),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		clients:     make(map[*Client]bool),
		live:        make(map[liveKey]map[string]bool),
		offline:     offline,
		log:         logrus.WithField("component", "hub"),
	}
}

// Run 启动 Hub 的主事件循环，直到 Stop 被调用。
func (h *Hub) Run() {
	h.log.Info("Hub is running...")
	defer close(h.stopped)
	for {
		select {
		case msg := <-h.messageChan:
			switch msg.kind {
			case msgRegister:
				h.registerClient(msg.client)
			case msgUnregister:
				h.unregisterClient(msg.client)
			default:
				h.log.Warnf("Hub: Received unknown message kind: %d", msg.kind)
			}
		case <-h.done:
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.setCount(0)
			h.log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop 停止事件循环并关闭所有连接的发送通道。
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.stopped
}

// queue 非阻塞地把消息放入 Hub 通道。
func (h *Hub) queue(msg hubMessage) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.messageChan <- msg:
		return true
	default:
		h.log.Warn("Hub message channel full")
		return false
	}
}

// Register 请求登记一个连接。返回 false 表示 Hub 已停止或繁忙。
func (h *Hub) Register(client *Client) bool {
	return h.queue(hubMessage{kind: msgRegister, client: client})
}

func (h *Hub) unregister(client *Client) {
	if !h.queue(hubMessage{kind: msgUnregister, client: client}) {
		// Hub 停止后由 Run 统一关闭
		client.closeSend()
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		h.log.Error("Hub: Attempted to register a nil client")
		return
	}
	h.clients[client] = true
	h.setCount(len(h.clients))
	client.log.Info("Client registered to Hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil || !h.clients[client] {
		return
	}
	delete(h.clients, client)
	client.closeSend()
	h.setCount(len(h.clients))
	client.log.Info("Client unregistered from Hub")
}

func (h *Hub) setCount(n int) {
	h.liveMu.Lock()
	h.count = n
	h.liveMu.Unlock()
}

// ClientCount 返回当前连接数。
func (h *Hub) ClientCount() int {
	h.liveMu.RLock()
	defer h.liveMu.RUnlock()
	return h.count
}

// RoomEntered 记录一个会话进入房间。
func (h *Hub) RoomEntered(sessionID, roomID, userID string) {
	key := liveKey{roomID: roomID, userID: userID}
	h.liveMu.Lock()
	sessions, ok := h.live[key]
	if !ok {
		sessions = make(map[string]bool)
		h.live[key] = sessions
	}
	sessions[sessionID] = true
	h.liveMu.Unlock()
}

// RoomExited 记录一个会话离开房间。该用户在房间内没有其他会话时调度离线任务。
func (h *Hub) RoomExited(sessionID, roomID, userID string) {
	key := liveKey{roomID: roomID, userID: userID}
	h.liveMu.Lock()
	sessions := h.live[key]
	if !sessions[sessionID] {
		h.liveMu.Unlock()
		return
	}
	delete(sessions, sessionID)
	last := len(sessions) == 0
	if last {
		delete(h.live, key)
	}
	h.liveMu.Unlock()

	if !last || h.offline == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), scheduleTimeout)
	defer cancel()
	if err := h.offline.ScheduleMemberOffline(ctx, roomID, userID); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).Error("Failed to schedule member offline")
	}
}

// LiveSessions 返回用户在房间内仍然活跃的会话数。
func (h *Hub) LiveSessions(roomID, userID string) int {
	h.liveMu.RLock()
	defer h.liveMu.RUnlock()
	return len(h.live[liveKey{roomID: roomID, userID: userID}])
}
