package session

import (
	"sort"
	"sync"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/feed"
)

// ChatDelta 是一条聊天变更。删除时只有 Message.ID 有意义。
type ChatDelta struct {
	Kind    feed.Kind
	Message domain.ChatMessage
}

// maxBufferedDeltas 限制加载前缓存的变更数，超出时丢弃最早的，重新加载的历史会覆盖它们
const maxBufferedDeltas = 200

// ChatStream 是按 created_at 升序、按 ID 去重的消息日志。
// 历史加载完成之前到达的变更会先缓存，加载后按到达顺序重放。
type ChatStream struct {
	mu       sync.Mutex
	loaded   bool
	messages []domain.ChatMessage
	buffered []ChatDelta
}

// NewChatStream 创建空的消息日志。
func NewChatStream() *ChatStream {
	return &ChatStream{}
}

// Load 用历史消息初始化日志，并重放加载期间缓存的变更。
func (c *ChatStream) Load(history []domain.ChatMessage) []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages[:0], history...)
	sort.SliceStable(c.messages, func(i, j int) bool {
		return c.messages[i].CreatedAt.Before(c.messages[j].CreatedAt)
	})
	c.loaded = true
	for _, delta := range c.buffered {
		c.applyLocked(delta)
	}
	c.buffered = nil
	return c.snapshotLocked()
}

// Loaded 报告历史是否已加载。
func (c *ChatStream) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Apply 应用一条变更，返回日志是否改变。未加载时只缓存，返回 false。
func (c *ChatStream) Apply(delta ChatDelta) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		if len(c.buffered) >= maxBufferedDeltas {
			c.buffered = c.buffered[1:]
		}
		c.buffered = append(c.buffered, delta)
		return false
	}
	return c.applyLocked(delta)
}

func (c *ChatStream) applyLocked(delta ChatDelta) bool {
	idx := c.indexLocked(delta.Message.ID)
	switch delta.Kind {
	case feed.KindInsert:
		if idx >= 0 {
			// 乐观插入的回声，以存储中的行为准
			if sameMessage(c.messages[idx], delta.Message) {
				return false
			}
			c.messages[idx] = delta.Message
			return true
		}
		c.insertSortedLocked(delta.Message)
		return true
	case feed.KindUpdate:
		if idx < 0 {
			return false
		}
		updated := delta.Message
		updated.CreatedAt = c.messages[idx].CreatedAt // 修改不会移动消息的位置
		if sameMessage(c.messages[idx], updated) {
			return false
		}
		c.messages[idx] = updated
		return true
	case feed.KindDelete:
		if idx < 0 {
			return false
		}
		c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
		return true
	}
	return false
}

// insertSortedLocked 从尾部找插入位置，新消息通常直接追加
func (c *ChatStream) insertSortedLocked(m domain.ChatMessage) {
	i := len(c.messages)
	for i > 0 && c.messages[i-1].CreatedAt.After(m.CreatedAt) {
		i--
	}
	c.messages = append(c.messages, domain.ChatMessage{})
	copy(c.messages[i+1:], c.messages[i:])
	c.messages[i] = m
}

func (c *ChatStream) indexLocked(id string) int {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Find 按 ID 查找消息。
func (c *ChatStream) Find(id string) (domain.ChatMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexLocked(id); idx >= 0 {
		return c.messages[idx], true
	}
	return domain.ChatMessage{}, false
}

// Messages 返回日志的副本。
func (c *ChatStream) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *ChatStream) snapshotLocked() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func sameMessage(a, b domain.ChatMessage) bool {
	return a.ID == b.ID && a.RoomID == b.RoomID && a.UserID == b.UserID &&
		a.Content == b.Content && a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}
